package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"solana-wallet-analytics/internal/tokens"
)

// DefaultBaseURL is the CoinGecko public API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// coingeckoIDs maps supported mints to CoinGecko coin identifiers.
var coingeckoIDs = map[string]string{
	tokens.MintSOL:  "solana",
	tokens.MintUSDC: "usd-coin",
	tokens.MintUSDT: "tether",
	tokens.MintRAY:  "raydium",
	tokens.MintBONK: "bonk",
	tokens.MintJUP:  "jupiter-exchange-solana",
}

// HTTPSource fetches historical daily prices from a CoinGecko-style API.
// Historical lookups resolve at day granularity; when the historical
// endpoint has no data the current price is used as an approximation.
type HTTPSource struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

var _ Source = (*HTTPSource)(nil)

// HTTPSourceOption configures HTTPSource.
type HTTPSourceOption func(*HTTPSource)

// WithBaseURL overrides the API root, used by tests.
func WithBaseURL(u string) HTTPSourceOption {
	return func(s *HTTPSource) { s.baseURL = u }
}

// WithAPIKey sets the demo API key header.
func WithAPIKey(key string) HTTPSourceOption {
	return func(s *HTTPSource) { s.apiKey = key }
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(rps float64) HTTPSourceOption {
	return func(s *HTTPSource) { s.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithRetries overrides retry behavior.
func WithRetries(n int, delay time.Duration) HTTPSourceOption {
	return func(s *HTTPSource) {
		s.maxRetries = n
		s.retryDelay = delay
	}
}

// NewHTTPSource creates a price source backed by the CoinGecko API. The
// free tier allows roughly 2 requests per second, which is the default
// limit here.
func NewHTTPSource(logger zerolog.Logger, opts ...HTTPSourceOption) *HTTPSource {
	s := &HTTPSource{
		baseURL:    DefaultBaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     logger.With().Str("component", "price_source").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PriceAt resolves the historical daily price for mint, falling back to the
// current price when the historical endpoint has nothing for that day.
func (s *HTTPSource) PriceAt(ctx context.Context, mint string, unixTime int64) (float64, error) {
	id, ok := coingeckoIDs[mint]
	if !ok {
		return 0, ErrUnavailable
	}

	price, err := s.historicalPrice(ctx, id, unixTime)
	if err == nil {
		return price, nil
	}
	if err != ErrUnavailable {
		return 0, err
	}

	s.logger.Debug().Str("mint", mint).Int64("ts", unixTime).
		Msg("no historical price, falling back to current")
	return s.currentPrice(ctx, id)
}

func (s *HTTPSource) historicalPrice(ctx context.Context, id string, unixTime int64) (float64, error) {
	date := time.Unix(unixTime, 0).UTC().Format("02-01-2006")

	q := url.Values{}
	q.Set("date", date)
	q.Set("localization", "false")
	endpoint := fmt.Sprintf("%s/coins/%s/history?%s", s.baseURL, id, q.Encode())

	var resp struct {
		MarketData *struct {
			CurrentPrice map[string]float64 `json:"current_price"`
		} `json:"market_data"`
	}
	if err := s.get(ctx, endpoint, &resp); err != nil {
		return 0, err
	}

	if resp.MarketData == nil {
		return 0, ErrUnavailable
	}
	price, ok := resp.MarketData.CurrentPrice["usd"]
	if !ok {
		return 0, ErrUnavailable
	}
	return price, nil
}

func (s *HTTPSource) currentPrice(ctx context.Context, id string) (float64, error) {
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	endpoint := fmt.Sprintf("%s/simple/price?%s", s.baseURL, q.Encode())

	var resp map[string]map[string]float64
	if err := s.get(ctx, endpoint, &resp); err != nil {
		return 0, err
	}

	price, ok := resp[id]["usd"]
	if !ok {
		return 0, ErrUnavailable
	}
	return price, nil
}

// get performs a rate-limited GET with retries on transient failures.
func (s *HTTPSource) get(ctx context.Context, endpoint string, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if s.apiKey != "" {
			req.Header.Set("X-CG-Demo-API-Key", s.apiKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			return ErrUnavailable
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
