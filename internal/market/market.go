// Package market fetches price, volume and market-cap snapshots for the
// assets the portfolio engine values. Quotes are cached for 60 seconds;
// portfolio math tolerates that staleness.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cubecore/chainops/internal/cache"
	"github.com/cubecore/chainops/internal/metrics"
	"github.com/cubecore/chainops/internal/retry"
)

const quoteTTL = 60 * time.Second

// Quote is one asset's market snapshot in the display currency.
type Quote struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Change24h   decimal.Decimal `json:"change24h"` // percent
	Volume24h   decimal.Decimal `json:"volume24h"`
	MarketCap   decimal.Decimal `json:"marketCap"`
	RetrievedAt time.Time       `json:"retrievedAt"`
}

// Source provides market quotes.
type Source interface {
	Quotes(ctx context.Context, symbols []string) (map[string]Quote, error)
}

// HTTPSource reads quotes from the market data service's /v1/quotes
// endpoint, caching each symbol independently.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	cache   *cache.TTL[string, Quote]
	logger  *slog.Logger
}

func NewHTTPSource(baseURL string, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache.NewTTL[string, Quote](quoteTTL),
		logger:  logger.With("component", "market"),
	}
}

// Quotes returns the snapshot for each requested symbol. Symbols the
// service does not know are absent from the result, not errors.
func (s *HTTPSource) Quotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	out := make(map[string]Quote, len(symbols))
	var missing []string
	for _, sym := range symbols {
		if q, ok := s.cache.Get(sym); ok {
			metrics.CacheHits.WithLabelValues("market").Inc()
			out[sym] = q
			continue
		}
		metrics.CacheMisses.WithLabelValues("market").Inc()
		missing = append(missing, sym)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.fetch(ctx, missing)
	if err != nil {
		if len(out) > 0 {
			// Serve what the cache had; the caller's partial-result
			// policy decides what a missing symbol means.
			s.logger.Warn("quote refresh failed, serving cached subset", "error", err, "missing", missing)
			return out, nil
		}
		return nil, err
	}

	for sym, q := range fetched {
		s.cache.Put(sym, q)
		out[sym] = q
	}
	return out, nil
}

type quotesResponse struct {
	Quotes []struct {
		Symbol    string          `json:"symbol"`
		Price     decimal.Decimal `json:"price"`
		Change24h decimal.Decimal `json:"change24h"`
		Volume24h decimal.Decimal `json:"volume24h"`
		MarketCap decimal.Decimal `json:"marketCap"`
	} `json:"quotes"`
}

func (s *HTTPSource) fetch(ctx context.Context, symbols []string) (map[string]Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/quotes?symbols=%s", s.baseURL, url.QueryEscape(strings.Join(symbols, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create quotes request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("market service: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quotes response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Transient(fmt.Errorf("market service status %d: %s", resp.StatusCode, raw))
	}

	var decoded quotesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode quotes response: %w", err)
	}

	now := time.Now().UTC()
	out := make(map[string]Quote, len(decoded.Quotes))
	for _, q := range decoded.Quotes {
		out[q.Symbol] = Quote{
			Symbol:      q.Symbol,
			Price:       q.Price,
			Change24h:   q.Change24h,
			Volume24h:   q.Volume24h,
			MarketCap:   q.MarketCap,
			RetrievedAt: now,
		}
	}
	return out, nil
}

// StaticSource serves a fixed quote table. Used in tests and setups
// without a market data service.
type StaticSource map[string]Quote

func (s StaticSource) Quotes(_ context.Context, symbols []string) (map[string]Quote, error) {
	out := make(map[string]Quote, len(symbols))
	for _, sym := range symbols {
		if q, ok := s[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}
