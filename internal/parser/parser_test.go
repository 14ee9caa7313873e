package parser

import (
	"errors"
	"testing"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/solana"
	"solana-wallet-analytics/internal/tokens"
)

const (
	testWallet = "WaLLet1111111111111111111111111111111111111"
	testPool   = "PooL1111111111111111111111111111111111111111"
)

// ammTx builds a Raydium transaction skeleton with the given token balance
// snapshots. Account layout: [wallet, pool, program].
func ammTx(sig string, pre, post []solana.TokenBalance) *solana.Transaction {
	return &solana.Transaction{
		Slot:      1000,
		Signature: sig,
		BlockTime: 1700000000,
		Meta: &solana.TransactionMeta{
			Fee:               5000,
			PreTokenBalances:  pre,
			PostTokenBalances: post,
		},
		Message: &solana.TransactionMessage{
			AccountKeys: []string{testWallet, testPool, RaydiumAMMV4},
			Instructions: []solana.Instruction{
				{ProgramIDIndex: 2, Accounts: []int{1, 0}},
			},
		},
	}
}

func bal(owner, mint string, amount float64, decimals int) solana.TokenBalance {
	return solana.TokenBalance{Owner: owner, Mint: mint, UIAmount: amount, Decimals: decimals}
}

func TestParse_SimpleSwap(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	tx := ammTx("sig1",
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 50, 9),
			bal(testWallet, tokens.MintUSDC, 0, 6),
		},
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 40, 9),
			bal(testWallet, tokens.MintUSDC, 1000, 6),
		},
	)

	swap, err := p.Parse(tx, testWallet)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if swap == nil {
		t.Fatal("expected swap, got nil")
	}

	if swap.TokenIn.Mint != tokens.MintSOL || swap.TokenIn.Amount != 10 {
		t.Errorf("unexpected token in: %+v", swap.TokenIn)
	}
	if swap.TokenIn.Symbol != "SOL" || swap.TokenIn.Decimals != 9 {
		t.Errorf("token in metadata wrong: %+v", swap.TokenIn)
	}
	if swap.TokenOut.Mint != tokens.MintUSDC || swap.TokenOut.Amount != 1000 {
		t.Errorf("unexpected token out: %+v", swap.TokenOut)
	}
	if swap.FeeLamports != 5000 {
		t.Errorf("expected fee 5000, got %d", swap.FeeLamports)
	}
	if swap.PoolID != testPool {
		t.Errorf("expected pool %s, got %s", testPool, swap.PoolID)
	}
	if swap.BlockTime != 1700000000 || swap.Slot != 1000 {
		t.Errorf("unexpected timing: blockTime=%d slot=%d", swap.BlockTime, swap.Slot)
	}
}

func TestParse_FailedTransaction(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	tx := ammTx("sig1",
		[]solana.TokenBalance{bal(testWallet, tokens.MintSOL, 50, 9)},
		[]solana.TokenBalance{bal(testWallet, tokens.MintSOL, 40, 9)},
	)
	tx.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}

	swap, err := p.Parse(tx, testWallet)
	if err != nil || swap != nil {
		t.Fatalf("expected nil, nil for failed tx, got %v, %v", swap, err)
	}
}

func TestParse_NoAMMProgram(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	tx := ammTx("sig1",
		[]solana.TokenBalance{bal(testWallet, tokens.MintSOL, 50, 9)},
		[]solana.TokenBalance{bal(testWallet, tokens.MintSOL, 40, 9)},
	)
	tx.Message.AccountKeys[2] = "SomeOtherProgram111111111111111111111111111"

	swap, err := p.Parse(tx, testWallet)
	if err != nil || swap != nil {
		t.Fatalf("expected nil, nil for non-AMM tx, got %v, %v", swap, err)
	}
}

func TestParse_NoWalletDeltas(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	otherOwner := "other11111111111111111111111111111111111111"
	tx := ammTx("sig1",
		[]solana.TokenBalance{bal(otherOwner, tokens.MintSOL, 50, 9)},
		[]solana.TokenBalance{bal(otherOwner, tokens.MintSOL, 40, 9)},
	)

	swap, err := p.Parse(tx, testWallet)
	if err != nil || swap != nil {
		t.Fatalf("expected nil, nil when wallet untouched, got %v, %v", swap, err)
	}
}

func TestParse_NotTwoLegs(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	// Three non-dust changes: not a simple swap.
	tx := ammTx("sig1",
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 50, 9),
			bal(testWallet, tokens.MintUSDC, 0, 6),
			bal(testWallet, tokens.MintRAY, 0, 6),
		},
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 40, 9),
			bal(testWallet, tokens.MintUSDC, 500, 6),
			bal(testWallet, tokens.MintRAY, 100, 6),
		},
	)

	swap, err := p.Parse(tx, testWallet)
	if swap != nil {
		t.Fatal("expected no swap")
	}
	var ae *domain.AnalysisError
	if !errors.As(err, &ae) || ae.Kind != domain.ErrKindParsing {
		t.Fatalf("expected ParsingError, got %v", err)
	}
	if ae.Signature != "sig1" {
		t.Errorf("error missing signature context: %+v", ae)
	}
}

func TestParse_SameSignDeltas(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	tx := ammTx("sig1",
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 0, 9),
			bal(testWallet, tokens.MintUSDC, 0, 6),
		},
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 10, 9),
			bal(testWallet, tokens.MintUSDC, 500, 6),
		},
	)

	_, err := p.Parse(tx, testWallet)
	var ae *domain.AnalysisError
	if !errors.As(err, &ae) || ae.Kind != domain.ErrKindParsing {
		t.Fatalf("expected ParsingError for same-sign deltas, got %v", err)
	}
}

func TestParse_DustIgnored(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	// The RAY residue is below the dust threshold and must not break the
	// two-leg shape.
	tx := ammTx("sig1",
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 50, 9),
			bal(testWallet, tokens.MintUSDC, 0, 6),
			bal(testWallet, tokens.MintRAY, 1.0, 6),
		},
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 40, 9),
			bal(testWallet, tokens.MintUSDC, 1000, 6),
			bal(testWallet, tokens.MintRAY, 1.0000000000001, 6),
		},
	)

	swap, err := p.Parse(tx, testWallet)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if swap == nil {
		t.Fatal("expected swap despite dust residue")
	}
}

func TestParse_UnsupportedMintDiscarded(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	unknownMint := "UnknownMint11111111111111111111111111111111"
	tx := ammTx("sig1",
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 50, 9),
			bal(testWallet, unknownMint, 0, 6),
		},
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 40, 9),
			bal(testWallet, unknownMint, 12345, 6),
		},
	)

	swap, err := p.Parse(tx, testWallet)
	if err != nil || swap != nil {
		t.Fatalf("expected nil, nil for unsupported mint, got %v, %v", swap, err)
	}
}

func TestParse_MissingBlockTime(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	tx := ammTx("sig1",
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 50, 9),
			bal(testWallet, tokens.MintUSDC, 0, 6),
		},
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 40, 9),
			bal(testWallet, tokens.MintUSDC, 1000, 6),
		},
	)
	tx.BlockTime = 0

	_, err := p.Parse(tx, testWallet)
	var ae *domain.AnalysisError
	if !errors.As(err, &ae) || ae.Kind != domain.ErrKindParsing {
		t.Fatalf("expected ParsingError for missing block time, got %v", err)
	}
}

func TestParse_ClosedTokenAccount(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	// Sold the entire RAY balance and the account was closed, so the mint
	// appears only in the pre snapshot.
	tx := ammTx("sig1",
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintRAY, 200, 6),
			bal(testWallet, tokens.MintUSDC, 0, 6),
		},
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintUSDC, 300, 6),
		},
	)

	swap, err := p.Parse(tx, testWallet)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if swap == nil {
		t.Fatal("expected swap")
	}
	if swap.TokenIn.Mint != tokens.MintRAY || swap.TokenIn.Amount != 200 {
		t.Errorf("unexpected token in: %+v", swap.TokenIn)
	}
}

func TestParseBatch_CollectsErrors(t *testing.T) {
	p := NewParser(tokens.NewRegistry())

	good := ammTx("good",
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 50, 9),
			bal(testWallet, tokens.MintUSDC, 0, 6),
		},
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 40, 9),
			bal(testWallet, tokens.MintUSDC, 1000, 6),
		},
	)

	bad := ammTx("bad",
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 50, 9),
			bal(testWallet, tokens.MintUSDC, 0, 6),
		},
		[]solana.TokenBalance{
			bal(testWallet, tokens.MintSOL, 40, 9),
			bal(testWallet, tokens.MintUSDC, 1000, 6),
		},
	)
	bad.BlockTime = 0

	irrelevant := ammTx("skip",
		[]solana.TokenBalance{bal(testWallet, tokens.MintSOL, 50, 9)},
		[]solana.TokenBalance{bal(testWallet, tokens.MintSOL, 50, 9)},
	)

	swaps, errs := p.ParseBatch([]*solana.Transaction{good, bad, irrelevant}, testWallet)

	if len(swaps) != 1 || swaps[0].Signature != "good" {
		t.Fatalf("expected 1 swap from good tx, got %d", len(swaps))
	}
	if len(errs) != 1 || errs[0].Signature != "bad" {
		t.Fatalf("expected 1 error from bad tx, got %d", len(errs))
	}
}
