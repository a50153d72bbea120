package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func klineJSON(openMs int64, close string) string {
	return fmt.Sprintf(`[%d,"100.0","101.0","99.0","%s","12.5",%d,"1250.0",42,"6.0","600.0","0"]`,
		openMs, close, openMs+59999)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *BinanceClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewBinanceClient("", "", nil)
	c.client.BaseURL = srv.URL
	c.client.HTTPClient = srv.Client()
	c.backoff = time.Millisecond
	return c
}

func TestGetKlines_Parses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, strconv.Itoa(klineLimit), r.URL.Query().Get("limit"))
		fmt.Fprintf(w, "[%s,%s]", klineJSON(0, "100.5"), klineJSON(60000, "101.5"))
	})

	klines, err := c.GetKlines(context.Background(), "BTCUSDT", "1m", 0, 120000)
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.Equal(t, "100.5", klines[0].Close)
	assert.Equal(t, int64(60000), klines[1].OpenTime)
	assert.Equal(t, int64(42), klines[1].TradeNum)
}

func TestGetKlines_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"code":-1000,"msg":"internal"}`)
			return
		}
		fmt.Fprintf(w, "[%s]", klineJSON(0, "100"))
	})

	klines, err := c.GetKlines(context.Background(), "BTCUSDT", "1m", 0, 60000)
	require.NoError(t, err)
	assert.Len(t, klines, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetKlines_GivesUp(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
	})

	_, err := c.GetKlines(context.Background(), "NOPE", "1m", 0, 60000)
	require.Error(t, err)
	assert.Equal(t, int32(c.maxRetries+1), atomic.LoadInt32(&calls))
}

func TestGetHistoricalKlines_Pages(t *testing.T) {
	var (
		mu     sync.Mutex
		starts []int64
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		mu.Lock()
		starts = append(starts, start)
		mu.Unlock()
		fmt.Fprintf(w, "[%s]", klineJSON(start, "100"))
	})

	start := time.UnixMilli(0)
	// two and a half pages of 1m candles
	end := start.Add(time.Duration(klineLimit*5/2) * time.Minute)

	klines, err := c.GetHistoricalKlines(context.Background(), "BTCUSDT", "1m", start, end)
	require.NoError(t, err)
	assert.Len(t, klines, 3)

	mu.Lock()
	defer mu.Unlock()
	page := int64(klineLimit) * time.Minute.Milliseconds()
	assert.Equal(t, []int64{0, page, 2 * page}, starts)
}

func TestGetHistoricalKlines_UnknownInterval(t *testing.T) {
	c := NewBinanceClient("", "", nil)
	_, err := c.GetHistoricalKlines(context.Background(), "BTCUSDT", "7m", time.Now().Add(-time.Hour), time.Now())
	assert.True(t, errors.Is(err, ErrUnknownInterval))
}
