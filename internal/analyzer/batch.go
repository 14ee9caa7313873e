package analyzer

import (
	"context"
	"sync"
	"time"

	"solana-wallet-analytics/internal/domain"
	"solana-wallet-analytics/internal/observability"
)

// AnalyzeBatch analyzes every wallet in the request with a fixed worker
// pool. The shared rate limiter gates pipeline starts across workers, so
// the transaction source sees at most the configured request rate.
//
// Every requested wallet gets a terminal result; one wallet's failure never
// affects its siblings.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, req *domain.BatchRequest) *domain.BatchAnalysisResult {
	started := time.Now()
	wallets := req.WalletAddresses

	batch := &domain.BatchAnalysisResult{
		Results:   make([]*domain.WalletAnalysisResult, len(wallets)),
		Priority:  req.Priority,
		StartedAt: started,
	}
	observability.RecordBatch(len(wallets))

	if len(wallets) == 0 {
		return batch
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < a.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				batch.Results[i] = a.runOne(ctx, wallets[i], req.Config)
			}
		}()
	}

	for i := range wallets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var totalWalletTime time.Duration
	for _, res := range batch.Results {
		totalWalletTime += res.Duration
		switch res.Status {
		case domain.StatusCompleted:
			batch.Completed++
		case domain.StatusPartial:
			batch.Partial++
		default:
			batch.Failed++
		}
	}

	batch.TotalDuration = time.Since(started)
	batch.AvgDuration = totalWalletTime / time.Duration(len(wallets))

	a.logger.Info().
		Int("wallets", len(wallets)).
		Int("completed", batch.Completed).
		Int("partial", batch.Partial).
		Int("failed", batch.Failed).
		Dur("duration", batch.TotalDuration).
		Msg("batch analysis finished")

	return batch
}

// runOne gates one wallet pipeline behind the shared rate limiter. A
// cancelled batch context turns the remaining wallets into failed results
// instead of leaving holes in the result slice.
func (a *Analyzer) runOne(ctx context.Context, wallet string, cfg domain.AnalysisConfig) *domain.WalletAnalysisResult {
	if err := a.limiter.Wait(ctx); err != nil {
		return &domain.WalletAnalysisResult{
			WalletAddress: wallet,
			Status:        domain.StatusFailed,
			StartedAt:     time.Now(),
			Errors: []*domain.AnalysisError{
				domain.NewAnalysisError(domain.ErrKindTimeout, wallet, err),
			},
		}
	}
	return a.AnalyzeWallet(ctx, wallet, cfg)
}
