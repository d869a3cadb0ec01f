package market

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubecore/chainops/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quoteServer(t *testing.T, calls *atomic.Int64, fail *atomic.Bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.Equal(t, "/v1/quotes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"quotes":[
			{"symbol":"ETH","price":"2000","change24h":"1.5","volume24h":"1000000","marketCap":"240000000000"},
			{"symbol":"SOL","price":"150","change24h":"-0.4","volume24h":"500000","marketCap":"70000000000"}
		]}`)
	}))
}

func TestQuotesFetchAndCache(t *testing.T) {
	var calls atomic.Int64
	var fail atomic.Bool
	srv := quoteServer(t, &calls, &fail)
	defer srv.Close()

	source := NewHTTPSource(srv.URL, testLogger())

	quotes, err := source.Quotes(context.Background(), []string{"ETH", "SOL"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.True(t, quotes["ETH"].Price.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, int64(1), calls.Load())

	// Second read inside the TTL never touches the service.
	quotes, err = source.Quotes(context.Background(), []string{"ETH", "SOL"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, int64(1), calls.Load())
}

func TestQuotesServesCachedSubsetOnRefreshFailure(t *testing.T) {
	var calls atomic.Int64
	var fail atomic.Bool
	srv := quoteServer(t, &calls, &fail)
	defer srv.Close()

	source := NewHTTPSource(srv.URL, testLogger())

	_, err := source.Quotes(context.Background(), []string{"ETH"})
	require.NoError(t, err)

	fail.Store(true)

	// ETH is cached, BTC is not; the cached subset is served without error.
	quotes, err := source.Quotes(context.Background(), []string{"ETH", "BTC"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Contains(t, quotes, "ETH")
}

func TestQuotesFailureWithEmptyCacheIsTransient(t *testing.T) {
	var calls atomic.Int64
	var fail atomic.Bool
	fail.Store(true)
	srv := quoteServer(t, &calls, &fail)
	defer srv.Close()

	source := NewHTTPSource(srv.URL, testLogger())

	_, err := source.Quotes(context.Background(), []string{"ETH"})
	require.Error(t, err)
	assert.True(t, retry.Classify(err).IsTransient())
}

func TestQuotesUnknownSymbolsAbsentNotErrors(t *testing.T) {
	var calls atomic.Int64
	var fail atomic.Bool
	srv := quoteServer(t, &calls, &fail)
	defer srv.Close()

	source := NewHTTPSource(srv.URL, testLogger())

	quotes, err := source.Quotes(context.Background(), []string{"ETH", "DOGE"})
	require.NoError(t, err)
	assert.Contains(t, quotes, "ETH")
	assert.NotContains(t, quotes, "DOGE")
}

func TestStaticSource(t *testing.T) {
	source := StaticSource{"ETH": {Symbol: "ETH", Price: decimal.NewFromInt(2000)}}

	quotes, err := source.Quotes(context.Background(), []string{"ETH", "SOL"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.True(t, quotes["ETH"].Price.Equal(decimal.NewFromInt(2000)))
}
