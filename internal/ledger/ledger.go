// Package ledger tracks per-token cost basis with FIFO lot accounting and
// computes realized and unrealized P&L at historical USD prices.
//
// A Ledger instance is constructed per analysis run, fed one wallet's swaps
// in timestamp order, and discarded after use. It is not safe for
// concurrent use; batch analyses give each wallet its own instance.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/observability"
	"solana-wallet-analytics/internal/pricing"
	"solana-wallet-analytics/internal/tokens"
)

const lamportsPerSol = 1e9

// Ledger maintains open positions for one wallet while processing swaps.
type Ledger struct {
	wallet    string
	prices    pricing.Source
	positions map[string]*domain.TokenPosition // keyed by mint
	logger    zerolog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger.With().Str("component", "ledger").Str("wallet", l.wallet).Logger()
	}
}

// New creates an empty ledger for one wallet.
func New(wallet string, prices pricing.Source, opts ...Option) *Ledger {
	l := &Ledger{
		wallet:    wallet,
		prices:    prices,
		positions: make(map[string]*domain.TokenPosition),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Outcome is the result of processing one wallet's swap stream.
type Outcome struct {
	EnhancedSwaps []*domain.EnhancedSwap
	Trades        []*domain.CompletedTrade
	Positions     []*domain.TokenPosition
	Errors        []*domain.AnalysisError

	SwapsProcessed int // swaps fully valued and applied
	SwapsSkipped   int // swaps dropped for missing prices
}

// ProcessSwaps applies swaps to the ledger in order, producing one
// EnhancedSwap and zero-or-more CompletedTrades per applied swap.
//
// Swaps must already be sorted by block time: FIFO results depend on order,
// so out-of-order input is rejected as a CalculationError rather than
// silently re-sorted.
func (l *Ledger) ProcessSwaps(ctx context.Context, swaps []*domain.Swap) (*Outcome, error) {
	for i := 1; i < len(swaps); i++ {
		if swaps[i].BlockTime < swaps[i-1].BlockTime {
			return nil, domain.Errorf(domain.ErrKindCalculation, l.wallet,
				"swaps out of order at index %d: %d < %d",
				i, swaps[i].BlockTime, swaps[i-1].BlockTime)
		}
	}

	out := &Outcome{}

	for _, swap := range swaps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l.processSwap(ctx, swap, out)

		if err := l.ValidatePositions(); err != nil {
			out.Errors = append(out.Errors, domain.NewAnalysisError(
				domain.ErrKindCalculation, l.wallet, err).WithSignature(swap.Signature))
		}
	}

	out.Positions = l.Positions()
	return out, nil
}

func (l *Ledger) processSwap(ctx context.Context, swap *domain.Swap, out *Outcome) {
	priceIn, ok := l.lookupPrice(ctx, swap, swap.TokenIn.Mint, out)
	if !ok {
		out.SwapsSkipped++
		observability.RecordSwapSkipped("price_unavailable")
		return
	}
	priceOut, ok := l.lookupPrice(ctx, swap, swap.TokenOut.Mint, out)
	if !ok {
		out.SwapsSkipped++
		observability.RecordSwapSkipped("price_unavailable")
		return
	}

	trades := l.dispose(swap, priceIn)
	l.acquire(swap, priceOut)

	var realized float64
	for _, t := range trades {
		realized += t.RealizedPnlUsd
	}
	out.Trades = append(out.Trades, trades...)

	inValue := swap.TokenIn.Amount * priceIn
	outValue := swap.TokenOut.Amount * priceOut

	enhanced := &domain.EnhancedSwap{
		Swap:             *swap,
		TokenInPriceUsd:  priceIn,
		TokenOutPriceUsd: priceOut,
		TokenInValueUsd:  inValue,
		TokenOutValueUsd: outValue,
		RealizedPnlUsd:   realized,
		SlippagePercent:  slippage(inValue, outValue),
		FeeUsd:           l.feeUsd(ctx, swap, priceIn, priceOut, out),
	}

	out.EnhancedSwaps = append(out.EnhancedSwaps, enhanced)
	out.SwapsProcessed++
}

// lookupPrice resolves one leg's price, recording unavailability as a
// degraded-swap error rather than failing the run.
func (l *Ledger) lookupPrice(ctx context.Context, swap *domain.Swap, mint string, out *Outcome) (float64, bool) {
	price, err := l.prices.PriceAt(ctx, mint, swap.BlockTime)
	if err == nil {
		observability.RecordPriceLookup("hit")
		return price, true
	}

	kind := domain.ErrKindPriceUnavailable
	outcome := "miss"
	if !errors.Is(err, pricing.ErrUnavailable) {
		// The source itself failed, not just a data gap.
		kind = domain.ErrKindFetch
		outcome = "error"
	}
	observability.RecordPriceLookup(outcome)

	out.Errors = append(out.Errors, domain.NewAnalysisError(kind, l.wallet, err).
		WithSignature(swap.Signature).WithMint(mint).WithTimestamp(swap.BlockTime))

	l.logger.Debug().Str("mint", mint).Str("signature", swap.Signature).
		Int64("ts", swap.BlockTime).Msg("price lookup failed, skipping swap")
	return 0, false
}

// dispose consumes open lots for the sold token, oldest first, emitting one
// CompletedTrade per lot portion consumed at currentPrice.
//
// Spending a token the ledger never saw acquired (the quote leg funding a
// buy, or a deposit from another wallet) closes nothing: no position, no
// trade. The zero-cost-basis fallback applies only when a tracked position
// exists but is smaller than the sold amount.
func (l *Ledger) dispose(swap *domain.Swap, currentPrice float64) []*domain.CompletedTrade {
	pos, ok := l.positions[swap.TokenIn.Mint]
	if !ok {
		return nil
	}

	remaining := swap.TokenIn.Amount
	var trades []*domain.CompletedTrade

	for remaining > domain.AmountEpsilon && len(pos.Lots) > 0 {
		lot := pos.Lots[0]

		take := remaining
		if lot.Amount < take {
			take = lot.Amount
		}

		unitCost := lot.UnitCostUsd()
		costBasis := take * unitCost
		pnl := take*currentPrice - costBasis

		trades = append(trades, l.newTrade(swap, lot, take, costBasis, pnl, currentPrice, false))

		lot.Amount -= take
		lot.CostBasisUsd -= costBasis
		remaining -= take

		if lot.Amount <= domain.AmountEpsilon {
			pos.Lots = pos.Lots[1:]
		}
	}

	// Short sale: the wallet sold more than its tracked lots cover. The
	// uncovered remainder carries no cost basis, so the entire proceeds
	// count as realized gain. Auditable via the ZeroCostBasis flag and
	// the fallback counter.
	if remaining > domain.AmountEpsilon {
		proceeds := remaining * currentPrice
		trades = append(trades, l.newTrade(swap, nil, remaining, 0, proceeds, currentPrice, true))

		observability.RecordShortSaleFallback()
		l.logger.Warn().
			Str("mint", swap.TokenIn.Mint).
			Str("signature", swap.Signature).
			Float64("uncovered_amount", remaining).
			Msg("sale exceeds tracked position, using zero cost basis")
	}

	l.reconcile(pos, swap.BlockTime)
	if pos.TotalAmount <= domain.AmountEpsilon {
		delete(l.positions, swap.TokenIn.Mint)
	}

	for range trades {
		observability.RecordTradeCompleted()
	}
	return trades
}

// newTrade builds a CompletedTrade for take units closed against lot. A nil
// lot means the zero-cost-basis short-sale fallback.
func (l *Ledger) newTrade(swap *domain.Swap, lot *domain.PurchaseLot, take, costBasis, pnl, currentPrice float64, zeroCost bool) *domain.CompletedTrade {
	t := &domain.CompletedTrade{
		WalletAddress:  l.wallet,
		Mint:           swap.TokenIn.Mint,
		Symbol:         swap.TokenIn.Symbol,
		ExitTime:       swap.BlockTime,
		ExitPriceUsd:   currentPrice,
		ExitValueUsd:   take * currentPrice,
		ExitSignature:  swap.Signature,
		Quantity:       take,
		RealizedPnlUsd: pnl,
		EntryValueUsd:  costBasis,
		ZeroCostBasis:  zeroCost,
	}

	if lot != nil {
		t.EntryTime = lot.AcquiredAt
		t.EntryPriceUsd = lot.UnitCostUsd()
		t.EntrySignature = lot.Signature
		t.HoldingDays = float64(swap.BlockTime-lot.AcquiredAt) / 86400.0
	} else {
		t.EntryTime = swap.BlockTime
	}

	if costBasis > domain.AmountEpsilon {
		t.RoiPercent = pnl / costBasis * 100
	}

	return t
}

// acquire appends a new purchase lot for the received token.
func (l *Ledger) acquire(swap *domain.Swap, price float64) {
	mint := swap.TokenOut.Mint

	pos, ok := l.positions[mint]
	if !ok {
		pos = &domain.TokenPosition{
			WalletAddress:   l.wallet,
			Mint:            mint,
			Symbol:          swap.TokenOut.Symbol,
			FirstAcquiredAt: swap.BlockTime,
		}
		l.positions[mint] = pos
	}

	pos.Lots = append(pos.Lots, &domain.PurchaseLot{
		Amount:       swap.TokenOut.Amount,
		CostBasisUsd: swap.TokenOut.Amount * price,
		AcquiredAt:   swap.BlockTime,
		Signature:    swap.Signature,
	})

	l.reconcile(pos, swap.BlockTime)
}

// reconcile recomputes cached totals from the lots. Totals are always
// derived, never incrementally adjusted, so the lot-sum invariant holds by
// construction.
func (l *Ledger) reconcile(pos *domain.TokenPosition, now int64) {
	var amount, cost float64
	for _, lot := range pos.Lots {
		amount += lot.Amount
		cost += lot.CostBasisUsd
	}
	pos.TotalAmount = amount
	pos.TotalCostBasisUsd = cost
	pos.LastActivityAt = now
}

// feeUsd converts the network fee to USD at the swap timestamp. The fee is
// paid in SOL; when no SOL price is available the fee degrades to zero with
// a recorded error.
func (l *Ledger) feeUsd(ctx context.Context, swap *domain.Swap, priceIn, priceOut float64, out *Outcome) float64 {
	if swap.FeeLamports == 0 {
		return 0
	}

	solPrice := 0.0
	switch {
	case swap.TokenIn.Mint == tokens.MintSOL:
		solPrice = priceIn
	case swap.TokenOut.Mint == tokens.MintSOL:
		solPrice = priceOut
	default:
		p, err := l.prices.PriceAt(ctx, tokens.MintSOL, swap.BlockTime)
		if err != nil {
			out.Errors = append(out.Errors, domain.NewAnalysisError(
				domain.ErrKindPriceUnavailable, l.wallet,
				fmt.Errorf("fee conversion: %w", err)).
				WithSignature(swap.Signature).WithMint(tokens.MintSOL).
				WithTimestamp(swap.BlockTime))
			return 0
		}
		solPrice = p
	}

	return float64(swap.FeeLamports) / lamportsPerSol * solPrice
}

// slippage estimates execution slippage as the relative USD value lost
// between the spent and received legs, clamped to non-negative.
func slippage(inValue, outValue float64) float64 {
	if inValue <= 0 {
		return 0
	}
	s := (inValue - outValue) / inValue * 100
	if s < 0 {
		return 0
	}
	return s
}

// Positions returns a snapshot of open positions sorted by mint.
func (l *Ledger) Positions() []*domain.TokenPosition {
	out := make([]*domain.TokenPosition, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mint < out[j].Mint })
	return out
}

// ValidatePositions reconciles every position's cached totals against the
// sum over its lots. Exposed for tests; ProcessSwaps runs it after every
// swap.
func (l *Ledger) ValidatePositions() error {
	for mint, pos := range l.positions {
		var amount, cost float64
		for _, lot := range pos.Lots {
			amount += lot.Amount
			cost += lot.CostBasisUsd
		}
		if diff := pos.TotalAmount - amount; diff > domain.AmountEpsilon || diff < -domain.AmountEpsilon {
			return fmt.Errorf("position %s: total amount %.12f != lot sum %.12f", mint, pos.TotalAmount, amount)
		}
		if diff := pos.TotalCostBasisUsd - cost; diff > domain.AmountEpsilon || diff < -domain.AmountEpsilon {
			return fmt.Errorf("position %s: cost basis %.12f != lot sum %.12f", mint, pos.TotalCostBasisUsd, cost)
		}
	}
	return nil
}
