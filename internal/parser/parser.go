// Package parser reconstructs economic swap events from raw Solana
// transactions. Parsing is a pure function over transaction data; all I/O
// happens upstream.
package parser

import (
	"math"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/solana"
	"solana-wallet-analytics/internal/tokens"
)

// Recognized AMM program IDs.
const (
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	PumpFun      = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
)

// dustThreshold filters out token-balance noise below economic relevance.
// Balance snapshots carry rounding residue from other instructions in the
// same transaction.
const dustThreshold = 1e-9

// Parser converts raw transactions into normalized swap records.
type Parser struct {
	registry *tokens.Registry
	programs map[string]struct{}
}

// NewParser creates a parser scoped to the given token allow-list. The
// default recognized AMM set is Raydium AMM v4 and pump.fun.
func NewParser(registry *tokens.Registry) *Parser {
	return &Parser{
		registry: registry,
		programs: map[string]struct{}{
			RaydiumAMMV4: {},
			PumpFun:      {},
		},
	}
}

// balanceDelta is one wallet-owned net token movement within a transaction.
type balanceDelta struct {
	mint     string
	amount   float64 // signed, negative = wallet gave up the token
	decimals int
}

// Parse converts one transaction into zero-or-one swap attributable to
// walletAddress.
//
// Returns (nil, nil) when the transaction is simply not a swap for this
// wallet: it failed on-chain, touches no recognized AMM program, moves no
// wallet token balance, or involves a mint outside the allow-list. Returns
// a ParsingError when the transaction looks like a swap but cannot be
// interpreted as a clean two-leg exchange.
func (p *Parser) Parse(tx *solana.Transaction, walletAddress string) (*domain.Swap, error) {
	if tx == nil || tx.Meta == nil || tx.Message == nil {
		return nil, nil
	}

	// Failed transactions moved no funds.
	if tx.Meta.Err != nil {
		return nil, nil
	}

	ammIx, ok := p.findAMMInstruction(tx.Message)
	if !ok {
		return nil, nil
	}

	if tx.BlockTime == 0 {
		return nil, domain.Errorf(domain.ErrKindParsing, walletAddress, "missing block time").
			WithSignature(tx.Signature)
	}

	deltas := walletDeltas(tx.Meta, walletAddress)
	if len(deltas) == 0 {
		return nil, nil
	}

	// A simple two-leg swap nets out to exactly one token spent and one
	// received. Anything else (LP deposits, multi-hop routes, airdrops in
	// the same transaction) is out of scope.
	if len(deltas) != 2 {
		return nil, domain.Errorf(domain.ErrKindParsing, walletAddress,
			"expected 2 token deltas, got %d", len(deltas)).
			WithSignature(tx.Signature).WithTimestamp(tx.BlockTime)
	}
	if deltas[0].amount*deltas[1].amount >= 0 {
		return nil, domain.Errorf(domain.ErrKindParsing, walletAddress,
			"token deltas are not of opposite sign").
			WithSignature(tx.Signature).WithTimestamp(tx.BlockTime)
	}

	in, out := deltas[0], deltas[1]
	if in.amount > 0 {
		in, out = out, in
	}

	inInfo, ok := p.registry.Lookup(in.mint)
	if !ok {
		return nil, nil
	}
	outInfo, ok := p.registry.Lookup(out.mint)
	if !ok {
		return nil, nil
	}

	swap := &domain.Swap{
		Signature:     tx.Signature,
		WalletAddress: walletAddress,
		BlockTime:     tx.BlockTime,
		Slot:          tx.Slot,
		TokenIn: domain.TokenAmount{
			Mint:     in.mint,
			Symbol:   inInfo.Symbol,
			Amount:   math.Abs(in.amount),
			Decimals: in.decimals,
		},
		TokenOut: domain.TokenAmount{
			Mint:     out.mint,
			Symbol:   outInfo.Symbol,
			Amount:   out.amount,
			Decimals: out.decimals,
		},
		FeeLamports: tx.Meta.Fee,
		PoolID:      poolAccount(ammIx, tx.Message.AccountKeys),
		SwapType:    domain.SwapTypeUnknown,
	}

	return swap, nil
}

// ParseBatch parses many transactions, collecting per-transaction errors
// instead of aborting. Transactions that are not swaps for this wallet are
// silently skipped.
func (p *Parser) ParseBatch(txs []*solana.Transaction, walletAddress string) ([]*domain.Swap, []*domain.AnalysisError) {
	var swaps []*domain.Swap
	var errs []*domain.AnalysisError

	for _, tx := range txs {
		swap, err := p.Parse(tx, walletAddress)
		if err != nil {
			if ae, ok := err.(*domain.AnalysisError); ok {
				errs = append(errs, ae)
			} else {
				errs = append(errs, domain.NewAnalysisError(domain.ErrKindParsing, walletAddress, err))
			}
			continue
		}
		if swap != nil {
			swaps = append(swaps, swap)
		}
	}

	return swaps, errs
}

// findAMMInstruction locates the first top-level instruction from a
// recognized AMM program.
func (p *Parser) findAMMInstruction(msg *solana.TransactionMessage) (solana.Instruction, bool) {
	for _, ix := range msg.Instructions {
		if _, ok := p.programs[ix.ProgramID(msg.AccountKeys)]; ok {
			return ix, true
		}
	}
	return solana.Instruction{}, false
}

// walletDeltas computes net non-dust token balance changes owned by wallet,
// one entry per mint, from the pre/post snapshots. A mint present only in
// the pre snapshot counts as fully spent: closed token accounts drop out of
// postTokenBalances.
func walletDeltas(meta *solana.TransactionMeta, wallet string) []balanceDelta {
	net := make(map[string]balanceDelta)

	for _, b := range meta.PostTokenBalances {
		if b.Owner != wallet {
			continue
		}
		d := net[b.Mint]
		d.mint = b.Mint
		d.decimals = b.Decimals
		d.amount += b.UIAmount
		net[b.Mint] = d
	}
	for _, b := range meta.PreTokenBalances {
		if b.Owner != wallet {
			continue
		}
		d, ok := net[b.Mint]
		if !ok {
			d.mint = b.Mint
			d.decimals = b.Decimals
		}
		d.amount -= b.UIAmount
		net[b.Mint] = d
	}

	var deltas []balanceDelta
	for _, d := range net {
		if math.Abs(d.amount) > dustThreshold {
			deltas = append(deltas, d)
		}
	}
	return deltas
}

// poolAccount resolves the first account of the AMM instruction, the pool
// by Raydium account layout convention.
func poolAccount(ix solana.Instruction, keys []string) string {
	if len(ix.Accounts) == 0 {
		return ""
	}
	idx := ix.Accounts[0]
	if idx < 0 || idx >= len(keys) {
		return ""
	}
	return keys[idx]
}
