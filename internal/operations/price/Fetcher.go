package price

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"MartingaleBot/internal/models"

	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"
)

// KlineSource is the exchange side of an import.
type KlineSource interface {
	GetHistoricalKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([]*futures.Kline, error)
}

type PriceFetcher struct {
	source KlineSource
	logger *zap.Logger
}

func NewPriceFetcher(source KlineSource, logger *zap.Logger) *PriceFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceFetcher{
		source: source,
		logger: logger,
	}
}

// FetchPrices downloads candles for one symbol. Candles with unparseable
// fields are dropped.
func (f *PriceFetcher) FetchPrices(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Price, error) {
	klines, err := f.source.GetHistoricalKlines(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s candles: %w", symbol, timeframe, err)
	}

	prices := make([]models.Price, 0, len(klines))
	for _, k := range klines {
		price, err := klineToPrice(symbol, timeframe, k)
		if err != nil {
			f.logger.Warn("skipping malformed kline",
				zap.String("symbol", symbol),
				zap.Int64("open_time", k.OpenTime),
				zap.Error(err))
			continue
		}
		prices = append(prices, price)
	}

	f.logger.Info("fetched candles",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("count", len(prices)),
		zap.Time("from", start),
		zap.Time("to", end))

	return prices, nil
}

func klineToPrice(symbol, timeframe string, k *futures.Kline) (models.Price, error) {
	var err error
	parse := func(field, s string) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = strconv.ParseFloat(s, 64)
		if err != nil {
			err = fmt.Errorf("parse %s %q: %w", field, s, err)
		}
		return v
	}

	price := models.Price{
		Symbol:     symbol,
		TimeFrame:  timeframe,
		OpenTime:   time.UnixMilli(k.OpenTime).UTC(),
		CloseTime:  time.UnixMilli(k.CloseTime).UTC(),
		Open:       parse("open", k.Open),
		High:       parse("high", k.High),
		Low:        parse("low", k.Low),
		Close:      parse("close", k.Close),
		Volume:     parse("volume", k.Volume),
		TradeCount: k.TradeNum,
	}
	return price, err
}
