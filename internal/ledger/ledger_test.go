package ledger

import (
	"context"
	"errors"
	"math"
	"testing"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/pricing"
	"solana-wallet-analytics/internal/tokens"
)

const testWallet = "WaLLet1111111111111111111111111111111111111"

func mkSwap(sig string, ts int64, inMint, inSym string, inAmt float64, outMint, outSym string, outAmt float64) *domain.Swap {
	return &domain.Swap{
		Signature:     sig,
		WalletAddress: testWallet,
		BlockTime:     ts,
		TokenIn:       domain.TokenAmount{Mint: inMint, Symbol: inSym, Amount: inAmt},
		TokenOut:      domain.TokenAmount{Mint: outMint, Symbol: outSym, Amount: outAmt},
		SwapType:      domain.SwapTypeUnknown,
	}
}

func approx(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

// stablePrices returns a history with USDC pinned at $1 from t=0.
func stablePrices() *pricing.History {
	h := pricing.NewHistory()
	h.Add(tokens.MintUSDC, 0, 1.0)
	return h
}

func TestProcessSwaps_PnlConservation(t *testing.T) {
	prices := stablePrices()
	prices.Add(tokens.MintSOL, 1000, 100)
	prices.Add(tokens.MintSOL, 2000, 110)

	l := New(testWallet, prices)

	swaps := []*domain.Swap{
		mkSwap("buy", 1000, tokens.MintUSDC, "USDC", 1000, tokens.MintSOL, "SOL", 10),
		mkSwap("sell", 2000, tokens.MintSOL, "SOL", 10, tokens.MintUSDC, "USDC", 1100),
	}

	out, err := l.ProcessSwaps(context.Background(), swaps)
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}

	if len(out.Trades) != 1 {
		t.Fatalf("expected exactly 1 completed trade, got %d", len(out.Trades))
	}
	trade := out.Trades[0]
	if !approx(trade.RealizedPnlUsd, 100, 1e-9) {
		t.Errorf("expected realized P&L 100, got %f", trade.RealizedPnlUsd)
	}
	if !approx(trade.RoiPercent, 10, 1e-9) {
		t.Errorf("expected ROI 10%%, got %f", trade.RoiPercent)
	}
	if trade.Quantity != 10 || trade.EntryPriceUsd != 100 || trade.ExitPriceUsd != 110 {
		t.Errorf("unexpected trade: %+v", trade)
	}
	if trade.EntrySignature != "buy" || trade.ExitSignature != "sell" {
		t.Errorf("trade signatures wrong: %+v", trade)
	}

	// SOL position fully closed; only the USDC proceeds remain open.
	for _, pos := range out.Positions {
		if pos.Mint == tokens.MintSOL {
			t.Errorf("SOL position should be removed, got %+v", pos)
		}
	}

	if len(out.EnhancedSwaps) != 2 {
		t.Fatalf("expected 2 enhanced swaps, got %d", len(out.EnhancedSwaps))
	}
	if !approx(out.EnhancedSwaps[1].RealizedPnlUsd, 100, 1e-9) {
		t.Errorf("sell swap should carry the realized P&L, got %f", out.EnhancedSwaps[1].RealizedPnlUsd)
	}
	if len(out.Errors) != 0 {
		t.Errorf("unexpected errors: %v", out.Errors)
	}
}

func TestProcessSwaps_FIFOPartialConsumption(t *testing.T) {
	prices := stablePrices()
	prices.SetSeries(tokens.MintRAY, []pricing.PricePoint{
		{Timestamp: 1000, PriceUsd: 10},
		{Timestamp: 2000, PriceUsd: 20},
		{Timestamp: 3000, PriceUsd: 30},
	})

	l := New(testWallet, prices)

	swaps := []*domain.Swap{
		mkSwap("buy1", 1000, tokens.MintUSDC, "USDC", 50, tokens.MintRAY, "RAY", 5),
		mkSwap("buy2", 2000, tokens.MintUSDC, "USDC", 100, tokens.MintRAY, "RAY", 5),
		mkSwap("sell", 3000, tokens.MintRAY, "RAY", 7, tokens.MintUSDC, "USDC", 210),
	}

	out, err := l.ProcessSwaps(context.Background(), swaps)
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}

	if len(out.Trades) != 2 {
		t.Fatalf("expected 2 completed trades, got %d", len(out.Trades))
	}

	// Oldest lot first: the whole 5-unit $10 lot, then 2 units of $20.
	first, second := out.Trades[0], out.Trades[1]
	if first.Quantity != 5 || !approx(first.EntryPriceUsd, 10, 1e-9) {
		t.Errorf("first trade should consume the $10 lot in full: %+v", first)
	}
	if !approx(first.RealizedPnlUsd, 100, 1e-9) {
		t.Errorf("first trade P&L: want 100, got %f", first.RealizedPnlUsd)
	}
	if second.Quantity != 2 || !approx(second.EntryPriceUsd, 20, 1e-9) {
		t.Errorf("second trade should take 2 units from the $20 lot: %+v", second)
	}
	if !approx(second.RealizedPnlUsd, 20, 1e-9) {
		t.Errorf("second trade P&L: want 20, got %f", second.RealizedPnlUsd)
	}

	var ray *domain.TokenPosition
	for _, pos := range out.Positions {
		if pos.Mint == tokens.MintRAY {
			ray = pos
		}
	}
	if ray == nil {
		t.Fatal("RAY position should remain open")
	}
	if len(ray.Lots) != 1 || !approx(ray.Lots[0].Amount, 3, 1e-9) {
		t.Fatalf("expected one remaining 3-unit lot, got %+v", ray.Lots)
	}
	if !approx(ray.TotalAmount, 3, 1e-9) || !approx(ray.TotalCostBasisUsd, 60, 1e-9) {
		t.Errorf("remaining position totals wrong: %+v", ray)
	}
	if !approx(ray.AvgCostBasisUsd(), 20, 1e-9) {
		t.Errorf("expected avg cost 20, got %f", ray.AvgCostBasisUsd())
	}
}

func TestProcessSwaps_ShortSaleFallback(t *testing.T) {
	prices := stablePrices()
	prices.Add(tokens.MintRAY, 1000, 10)
	prices.Add(tokens.MintRAY, 2000, 20)

	l := New(testWallet, prices)

	swaps := []*domain.Swap{
		mkSwap("buy", 1000, tokens.MintUSDC, "USDC", 50, tokens.MintRAY, "RAY", 5),
		mkSwap("sell", 2000, tokens.MintRAY, "RAY", 8, tokens.MintUSDC, "USDC", 160),
	}

	out, err := l.ProcessSwaps(context.Background(), swaps)
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}

	if len(out.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(out.Trades))
	}

	covered, uncovered := out.Trades[0], out.Trades[1]
	if covered.ZeroCostBasis {
		t.Error("covered portion must not be flagged zero cost basis")
	}
	if !approx(covered.RealizedPnlUsd, 50, 1e-9) {
		t.Errorf("covered P&L: want 50, got %f", covered.RealizedPnlUsd)
	}

	if !uncovered.ZeroCostBasis {
		t.Error("uncovered remainder must be flagged zero cost basis")
	}
	if uncovered.Quantity != 3 || !approx(uncovered.RealizedPnlUsd, 60, 1e-9) {
		t.Errorf("uncovered remainder: want qty 3 pnl 60, got %+v", uncovered)
	}

	for _, pos := range out.Positions {
		if pos.Mint == tokens.MintRAY {
			t.Errorf("RAY position should be removed after exhaustion: %+v", pos)
		}
	}
}

func TestProcessSwaps_FundingLegEmitsNoTrade(t *testing.T) {
	prices := stablePrices()
	prices.Add(tokens.MintSOL, 1000, 100)

	l := New(testWallet, prices)

	// The wallet spends USDC it was never observed acquiring. That is a
	// funding leg, not a position close.
	out, err := l.ProcessSwaps(context.Background(), []*domain.Swap{
		mkSwap("buy", 1000, tokens.MintUSDC, "USDC", 1000, tokens.MintSOL, "SOL", 10),
	})
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}

	if len(out.Trades) != 0 {
		t.Fatalf("expected no trades for funding leg, got %d", len(out.Trades))
	}
	if len(out.EnhancedSwaps) != 1 {
		t.Fatalf("swap itself should still be valued, got %d enhanced", len(out.EnhancedSwaps))
	}
}

func TestProcessSwaps_PriceUnavailableDegradesSwap(t *testing.T) {
	prices := stablePrices()
	prices.Add(tokens.MintSOL, 1000, 100)
	// No BONK prices at all.

	l := New(testWallet, prices)

	swaps := []*domain.Swap{
		mkSwap("ok", 1000, tokens.MintUSDC, "USDC", 100, tokens.MintSOL, "SOL", 1),
		mkSwap("degraded", 1000, tokens.MintUSDC, "USDC", 100, tokens.MintBONK, "BONK", 5000000),
	}

	out, err := l.ProcessSwaps(context.Background(), swaps)
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}

	if out.SwapsProcessed != 1 || out.SwapsSkipped != 1 {
		t.Fatalf("expected 1 processed / 1 skipped, got %d / %d", out.SwapsProcessed, out.SwapsSkipped)
	}
	if len(out.EnhancedSwaps) != 1 || out.EnhancedSwaps[0].Signature != "ok" {
		t.Fatalf("degraded swap must be excluded from enhanced output")
	}

	if len(out.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(out.Errors))
	}
	ae := out.Errors[0]
	if ae.Kind != domain.ErrKindPriceUnavailable {
		t.Errorf("expected PriceUnavailable, got %s", ae.Kind)
	}
	if ae.Signature != "degraded" || ae.Mint != tokens.MintBONK {
		t.Errorf("error context wrong: %+v", ae)
	}
	if !errors.Is(ae, pricing.ErrUnavailable) {
		t.Error("recorded error should wrap pricing.ErrUnavailable")
	}
}

func TestProcessSwaps_RejectsOutOfOrder(t *testing.T) {
	l := New(testWallet, stablePrices())

	swaps := []*domain.Swap{
		mkSwap("late", 2000, tokens.MintUSDC, "USDC", 100, tokens.MintSOL, "SOL", 1),
		mkSwap("early", 1000, tokens.MintUSDC, "USDC", 100, tokens.MintSOL, "SOL", 1),
	}

	_, err := l.ProcessSwaps(context.Background(), swaps)
	var ae *domain.AnalysisError
	if !errors.As(err, &ae) || ae.Kind != domain.ErrKindCalculation {
		t.Fatalf("expected CalculationError for out-of-order input, got %v", err)
	}
}

func TestProcessSwaps_FeeConversion(t *testing.T) {
	prices := stablePrices()
	prices.Add(tokens.MintSOL, 1000, 100)

	l := New(testWallet, prices)

	swap := mkSwap("s", 1000, tokens.MintUSDC, "USDC", 100, tokens.MintSOL, "SOL", 1)
	swap.FeeLamports = 5_000_000 // 0.005 SOL

	out, err := l.ProcessSwaps(context.Background(), []*domain.Swap{swap})
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}
	if !approx(out.EnhancedSwaps[0].FeeUsd, 0.5, 1e-9) {
		t.Errorf("expected fee $0.50, got %f", out.EnhancedSwaps[0].FeeUsd)
	}
}

func TestProcessSwaps_FeeDegradesWithoutSolPrice(t *testing.T) {
	prices := stablePrices()
	prices.Add(tokens.MintRAY, 1000, 10)
	// No SOL price anywhere.

	l := New(testWallet, prices)

	swap := mkSwap("s", 1000, tokens.MintUSDC, "USDC", 50, tokens.MintRAY, "RAY", 5)
	swap.FeeLamports = 5_000_000

	out, err := l.ProcessSwaps(context.Background(), []*domain.Swap{swap})
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}

	if out.EnhancedSwaps[0].FeeUsd != 0 {
		t.Errorf("fee should degrade to 0, got %f", out.EnhancedSwaps[0].FeeUsd)
	}
	if len(out.Errors) != 1 || out.Errors[0].Kind != domain.ErrKindPriceUnavailable {
		t.Fatalf("expected one PriceUnavailable error for the fee, got %v", out.Errors)
	}
}

func TestProcessSwaps_Slippage(t *testing.T) {
	prices := stablePrices()
	prices.Add(tokens.MintSOL, 1000, 100)

	l := New(testWallet, prices)

	// $1000 in, $990 out: 1% slippage.
	out, err := l.ProcessSwaps(context.Background(), []*domain.Swap{
		mkSwap("s1", 1000, tokens.MintUSDC, "USDC", 1000, tokens.MintSOL, "SOL", 9.9),
	})
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}
	if !approx(out.EnhancedSwaps[0].SlippagePercent, 1.0, 1e-9) {
		t.Errorf("expected 1%% slippage, got %f", out.EnhancedSwaps[0].SlippagePercent)
	}

	// Favorable execution clamps to zero.
	out2, err := l.ProcessSwaps(context.Background(), []*domain.Swap{
		mkSwap("s2", 1000, tokens.MintUSDC, "USDC", 1000, tokens.MintSOL, "SOL", 10.5),
	})
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}
	if out2.EnhancedSwaps[0].SlippagePercent != 0 {
		t.Errorf("expected clamped 0 slippage, got %f", out2.EnhancedSwaps[0].SlippagePercent)
	}
}

func TestValidatePositions_DetectsCorruption(t *testing.T) {
	prices := stablePrices()
	prices.Add(tokens.MintSOL, 1000, 100)

	l := New(testWallet, prices)

	_, err := l.ProcessSwaps(context.Background(), []*domain.Swap{
		mkSwap("buy", 1000, tokens.MintUSDC, "USDC", 1000, tokens.MintSOL, "SOL", 10),
	})
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}

	if err := l.ValidatePositions(); err != nil {
		t.Fatalf("fresh ledger should validate: %v", err)
	}

	for _, pos := range l.Positions() {
		pos.TotalAmount += 1
	}
	if err := l.ValidatePositions(); err == nil {
		t.Fatal("expected validation failure after corrupting totals")
	}
}

func TestProcessSwaps_ReBuyAfterFullClose(t *testing.T) {
	prices := stablePrices()
	prices.SetSeries(tokens.MintSOL, []pricing.PricePoint{
		{Timestamp: 1000, PriceUsd: 100},
		{Timestamp: 2000, PriceUsd: 110},
		{Timestamp: 3000, PriceUsd: 90},
	})

	l := New(testWallet, prices)

	swaps := []*domain.Swap{
		mkSwap("buy1", 1000, tokens.MintUSDC, "USDC", 1000, tokens.MintSOL, "SOL", 10),
		mkSwap("sell1", 2000, tokens.MintSOL, "SOL", 10, tokens.MintUSDC, "USDC", 1100),
		mkSwap("buy2", 3000, tokens.MintUSDC, "USDC", 900, tokens.MintSOL, "SOL", 10),
	}

	out, err := l.ProcessSwaps(context.Background(), swaps)
	if err != nil {
		t.Fatalf("ProcessSwaps: %v", err)
	}

	var sol *domain.TokenPosition
	for _, pos := range out.Positions {
		if pos.Mint == tokens.MintSOL {
			sol = pos
		}
	}
	if sol == nil {
		t.Fatal("re-opened SOL position missing")
	}
	// The new position starts fresh: one lot at the re-buy price.
	if len(sol.Lots) != 1 || !approx(sol.AvgCostBasisUsd(), 90, 1e-9) {
		t.Errorf("re-opened position should have a single $90 lot: %+v", sol)
	}
	if sol.FirstAcquiredAt != 3000 {
		t.Errorf("FirstAcquiredAt should reset on re-open, got %d", sol.FirstAcquiredAt)
	}
}
