package handlers

import (
	"context"
	"time"

	"MartingaleBot/internal/operations/price"

	"go.uber.org/zap"
)

type PriceHandler struct {
	importer  *price.Importer
	symbols   []string
	timeFrame string
	logger    *zap.Logger
}

func NewPriceHandler(source price.KlineSource, store price.PriceStore, symbols []string, timeFrame string, logger *zap.Logger) *PriceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceHandler{
		importer:  price.NewImporter(source, store, logger),
		symbols:   symbols,
		timeFrame: timeFrame,
		logger:    logger,
	}
}

// Import refreshes the stored candles the backtests will replay.
func (h *PriceHandler) Import(ctx context.Context, start, end time.Time) error {
	h.logger.Info("importing historical candles",
		zap.Strings("symbols", h.symbols),
		zap.String("timeframe", h.timeFrame),
		zap.Time("from", start),
		zap.Time("to", end))

	n, err := h.importer.Import(ctx, h.symbols, h.timeFrame, start, end)
	if err != nil {
		return err
	}

	h.logger.Info("import complete", zap.Int("candles", n))
	return nil
}
