package binance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"MartingaleBot/internal/models"

	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Binance caps a klines page at 1500 candles
const klineLimit = 1500

var ErrUnknownInterval = errors.New("unknown kline interval")

type BinanceClient struct {
	client      *futures.Client
	rateLimiter *rate.Limiter
	httpClient  *http.Client
	logger      *zap.Logger

	maxRetries int
	backoff    time.Duration
}

func NewBinanceClient(apiKey, secretKey string, logger *zap.Logger) *BinanceClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create custom HTTP client with timeouts
	httpClient := &http.Client{
		Timeout: time.Second * 10,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	futuresClient := futures.NewClient(apiKey, secretKey)
	futuresClient.HTTPClient = httpClient

	// 10 requests per second with burst of 20
	limiter := rate.NewLimiter(rate.Limit(10), 20)

	return &BinanceClient{
		client:      futuresClient,
		rateLimiter: limiter,
		httpClient:  httpClient,
		logger:      logger,
		maxRetries:  3,
		backoff:     100 * time.Millisecond,
	}
}

// GetKlines fetches one page of candles, retrying with exponential backoff.
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, startTime, endTime int64) ([]*futures.Kline, error) {
	var klines []*futures.Kline

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := c.rateLimiter.Wait(ctx)
		if err != nil {
			return nil, err
		}

		klines, err = c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(startTime).
			EndTime(endTime).
			Limit(klineLimit).
			Do(ctx)

		if err == nil {
			return klines, nil
		}

		if attempt == c.maxRetries {
			return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, interval, err)
		}

		waitTime := time.Duration(math.Pow(2, float64(attempt))) * c.backoff
		c.logger.Warn("klines request failed, retrying",
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", waitTime),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return klines, nil
}

// GetHistoricalKlines walks [start, end) in pages of klineLimit candles.
func (c *BinanceClient) GetHistoricalKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([]*futures.Kline, error) {
	step := models.TimeFrameDuration(interval)
	if step == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}

	startMs := start.UnixMilli()
	endMs := end.UnixMilli()
	chunk := step.Milliseconds() * klineLimit

	var allKlines []*futures.Kline
	for currentStart := startMs; currentStart < endMs; currentStart += chunk {
		currentEnd := currentStart + chunk - 1
		if currentEnd >= endMs {
			currentEnd = endMs - 1
		}

		klines, err := c.GetKlines(ctx, symbol, interval, currentStart, currentEnd)
		if err != nil {
			return nil, err
		}
		allKlines = append(allKlines, klines...)

		c.logger.Debug("fetched klines page",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int("count", len(klines)),
			zap.Time("from", time.UnixMilli(currentStart).UTC()))
	}

	return allKlines, nil
}
