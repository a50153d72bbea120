package price

import (
	"context"
	"fmt"
	"time"

	"MartingaleBot/internal/models"

	"go.uber.org/zap"
)

// PriceStore persists imported candles.
type PriceStore interface {
	ReplaceRange(symbol, timeFrame string, start, end time.Time, prices []models.Price) error
}

// Importer refreshes stored candles for a set of symbols from the exchange.
type Importer struct {
	fetcher *PriceFetcher
	store   PriceStore
	logger  *zap.Logger
}

func NewImporter(source KlineSource, store PriceStore, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		fetcher: NewPriceFetcher(source, logger),
		store:   store,
		logger:  logger,
	}
}

// Import replaces each symbol's candles in [start, end) and returns how many
// were stored. It stops at the first failing symbol.
func (i *Importer) Import(ctx context.Context, symbols []string, timeframe string, start, end time.Time) (int, error) {
	total := 0
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		prices, err := i.fetcher.FetchPrices(ctx, symbol, timeframe, start, end)
		if err != nil {
			return total, err
		}
		if err := i.store.ReplaceRange(symbol, timeframe, start, end, prices); err != nil {
			return total, fmt.Errorf("store %s candles: %w", symbol, err)
		}

		total += len(prices)
		i.logger.Info("imported candles",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
			zap.Int("count", len(prices)))
	}
	return total, nil
}
