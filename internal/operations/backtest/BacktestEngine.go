// backtest/engine.go

package backtest

import (
	"sort"

	"MartingaleBot/internal/models"

	"go.uber.org/zap"
)

// Engine runs backtests for one validated config. It holds no run state,
// each Run builds its own Simulator, so one Engine can serve concurrent runs.
type Engine struct {
	config Config
	logger *zap.Logger
}

func NewEngine(config Config, logger *zap.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config: config.clone(),
		logger: logger,
	}, nil
}

func (e *Engine) Config() Config {
	return e.config.clone()
}

// Run replays bars and aggregates the results. An empty series or one
// shorter than the detection window yields a zero-trade result.
func (e *Engine) Run(bars []Bar) *BacktestResults {
	symbol := ""
	if len(bars) > 0 {
		symbol = bars[0].Symbol
	}
	logger := e.logger.With(zap.String("symbol", symbol))

	if len(bars) <= e.config.DetectionPeriod {
		logger.Info("not enough bars for detection window",
			zap.Int("bars", len(bars)),
			zap.Int("window", e.config.DetectionPeriod))
	}

	sim := newSimulator(e.config, logger)
	sim.Replay(bars)

	results := calculateResults(e.config, sim.balance, sim.equityCurve, sim.trades,
		sim.marginAdditions, sim.counterTrades)

	logger.Info("backtest finished",
		zap.Int("bars", len(bars)),
		zap.Int("trades", results.TotalTrades),
		zap.Float64("final_balance", results.FinalBalance),
		zap.Float64("return_pct", results.PercentageReturn),
		zap.Float64("max_drawdown", results.MaxDrawdown))

	return results
}

// Run validates config and runs a single backtest over bars.
func Run(config Config, bars []Bar, logger *zap.Logger) (*BacktestResults, error) {
	engine, err := NewEngine(config, logger)
	if err != nil {
		return nil, err
	}
	return engine.Run(bars), nil
}

// BarsFromPrices converts stored candles into the engine's bar series,
// ordered by open time.
func BarsFromPrices(prices []models.Price) []Bar {
	bars := make([]Bar, len(prices))
	for i, p := range prices {
		bars[i] = Bar{
			Timestamp: p.OpenTime,
			Symbol:    p.Symbol,
			Close:     p.Close,
		}
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars
}
