package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"MartingaleBot/internal/models"
	"MartingaleBot/internal/operations/backtest"
	"MartingaleBot/internal/services/report"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrNoPriceData = errors.New("no price data")

// PriceSource loads stored candles for a backtest window.
type PriceSource interface {
	GetPricesByTimeFrame(symbol, timeFrame string, start, end time.Time) ([]models.Price, error)
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(run *models.BacktestRun) error
}

type BacktestHandler struct {
	engine    *backtest.Engine
	prices    PriceSource
	runs      RunStore
	timeFrame string
	reportDir string
	logger    *zap.Logger
}

// NewBacktestHandler wires one strategy to its data source. runs and
// reportDir are optional: a nil store skips persistence, an empty dir skips
// report files.
func NewBacktestHandler(strategy backtest.Config, prices PriceSource, runs RunStore,
	timeFrame, reportDir string, logger *zap.Logger) (*BacktestHandler, error) {

	if logger == nil {
		logger = zap.NewNop()
	}
	if prices == nil {
		return nil, errors.New("price source cannot be nil")
	}

	engine, err := backtest.NewEngine(strategy, logger)
	if err != nil {
		return nil, err
	}

	return &BacktestHandler{
		engine:    engine,
		prices:    prices,
		runs:      runs,
		timeFrame: timeFrame,
		reportDir: reportDir,
		logger:    logger,
	}, nil
}

// RunSymbol backtests one symbol over [start, end].
func (h *BacktestHandler) RunSymbol(ctx context.Context, symbol string, start, end time.Time) (*backtest.BacktestResults, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prices, err := h.prices.GetPricesByTimeFrame(symbol, h.timeFrame, start, end)
	if err != nil {
		return nil, fmt.Errorf("load %s prices: %w", symbol, err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w for %s %s", ErrNoPriceData, symbol, h.timeFrame)
	}

	bars := backtest.BarsFromPrices(prices)
	results := h.engine.Run(bars)

	if h.runs != nil {
		run, err := h.toRunModel(symbol, bars, results)
		if err != nil {
			return nil, err
		}
		if err := h.runs.SaveRun(run); err != nil {
			return nil, fmt.Errorf("save %s run: %w", symbol, err)
		}
		h.logger.Debug("run saved", zap.String("symbol", symbol), zap.Uint("run_id", run.ID), zap.String("run_key", run.RunKey))
	}

	if h.reportDir != "" {
		base := filepath.Join(h.reportDir, fmt.Sprintf("%s_%s", symbol, h.timeFrame))
		if err := report.Save(base+".md", results); err != nil {
			return nil, err
		}
		if err := report.WriteTradesCSV(results.Trades, base+"_trades.csv"); err != nil {
			return nil, fmt.Errorf("write %s trades: %w", symbol, err)
		}
		h.logger.Info("report written", zap.String("symbol", symbol), zap.String("path", base+".md"))
	}

	return results, nil
}

// RunAll backtests every distinct symbol concurrently. Each run gets its own
// simulator state. Symbols that fail are left out of the map and their
// errors joined.
func (h *BacktestHandler) RunAll(ctx context.Context, symbols []string, start, end time.Time) (map[string]*backtest.BacktestResults, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    []error
		results = make(map[string]*backtest.BacktestResults, len(symbols))
	)

	for _, symbol := range uniqueSymbols(symbols) {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			res, err := h.RunSymbol(ctx, symbol, start, end)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				h.logger.Error("backtest failed", zap.String("symbol", symbol), zap.Error(err))
				errs = append(errs, err)
				return
			}
			results[symbol] = res
		}(symbol)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

// uniqueSymbols drops repeats, keeping first-seen order.
func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (h *BacktestHandler) toRunModel(symbol string, bars []backtest.Bar, results *backtest.BacktestResults) (*models.BacktestRun, error) {
	params, err := yaml.Marshal(results.Parameters)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}

	run := &models.BacktestRun{
		RunKey:           uuid.NewString(),
		Symbol:           symbol,
		TimeFrame:        h.timeFrame,
		Direction:        string(results.Parameters.Direction),
		InitialBalance:   results.InitialBalance,
		FinalBalance:     results.FinalBalance,
		PercentageReturn: results.PercentageReturn,
		MaxDrawdown:      results.MaxDrawdown,
		SharpeRatio:      results.SharpeRatio,
		WinRate:          results.WinRate,
		TotalTrades:      results.TotalTrades,
		WinningTrades:    results.WinningTrades,
		LosingTrades:     results.LosingTrades,
		Parameters:       string(params),
	}
	if len(bars) > 0 {
		run.StartTime = bars[0].Timestamp
		run.EndTime = bars[len(bars)-1].Timestamp
	}

	run.Trades = make([]models.BacktestTrade, len(results.Trades))
	for i, t := range results.Trades {
		run.Trades[i] = models.BacktestTrade{
			Action:           string(t.Action),
			Time:             t.Time,
			Direction:        string(t.Direction),
			Price:            t.Price,
			OpenPrice:        t.OpenPrice,
			Quantity:         t.Quantity,
			Margin:           t.Margin,
			Reason:           string(t.Reason),
			PnLPercent:       t.PnLPercent,
			PnLAmount:        t.PnLAmount,
			MarginLevelsUsed: t.MarginLevelsUsed,
			TotalMarginUsed:  t.TotalMarginUsed,
		}
	}
	return run, nil
}
