package backtest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"MartingaleBot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_IsValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 9.975, cfg.TKMPercentage, 1e-9)
}

func TestLadderTotal(t *testing.T) {
	assert.Equal(t, 4.0, LadderTotal(2, []float64{100}))
	assert.Equal(t, 2.0, LadderTotal(2, nil))
	assert.InDelta(t, 6, LadderTotal(2, []float64{100, 50}), 1e-12)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"tkm mismatch", func(c *Config) { c.TKMPercentage = 10 }},
		{"tkm just outside tolerance", func(c *Config) { c.TKMPercentage = 4.02 }},
		{"zero balance", func(c *Config) { c.TotalBalance = 0 }},
		{"zero leverage", func(c *Config) { c.Leverage = 0 }},
		{"zero entry", func(c *Config) { c.EntryPercentage = 0 }},
		{"no loss levels", func(c *Config) { c.MarginLossROILevels = nil }},
		{"fewer loss levels than increases", func(c *Config) {
			c.MarginIncreaseLevels = []float64{100, 100, 100}
			c.TKMPercentage = LadderTotal(2, c.MarginIncreaseLevels)
		}},
		{"bad direction", func(c *Config) { c.Direction = "SIDEWAYS" }},
		{"zero window", func(c *Config) { c.DetectionPeriod = 0 }},
		{"zero threshold", func(c *Config) { c.PumpDumpThreshold = 0 }},
		{"negative loss level", func(c *Config) { c.MarginLossROILevels = []float64{200, -1} }},
		{"zero take profit", func(c *Config) { c.TakeProfitROI = 0 }},
		{"short target at zero price", func(c *Config) { c.TakeProfitROI = 500 }},
		{"zero counter threshold", func(c *Config) { c.CounterTradeLossROI = 0 }},
		{"negative counter margin", func(c *Config) { c.CounterTradeMarginPercentage = -10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := oneLevelConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}

	t.Run("long target above entry is unbounded", func(t *testing.T) {
		cfg := oneLevelConfig()
		cfg.Direction = DirectionLong
		cfg.TakeProfitROI = 500
		assert.NoError(t, cfg.Validate())
	})

	t.Run("within tolerance", func(t *testing.T) {
		cfg := oneLevelConfig()
		cfg.TKMPercentage = 4.005
		assert.NoError(t, cfg.Validate())
	})
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := oneLevelConfig()
	cfg.TKMPercentage = 10

	engine, err := NewEngine(cfg, nil)
	assert.Nil(t, engine)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSimulator(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Run(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEngineRun_DegenerateSeries(t *testing.T) {
	engine, err := NewEngine(oneLevelConfig(), nil)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		res := engine.Run(nil)
		assert.Equal(t, 0, res.TotalTrades)
		assert.Equal(t, 1000.0, res.FinalBalance)
		assert.Equal(t, 0.0, res.AbsoluteReturn)
		assert.Equal(t, 0.0, res.PercentageReturn)
		assert.Equal(t, 0.0, res.WinRate)
		assert.Equal(t, 0.0, res.MaxDrawdown)
		assert.Equal(t, 0.0, res.SharpeRatio)
		assert.Empty(t, res.EquityCurve)
		assert.Empty(t, res.Trades)
	})

	t.Run("shorter than window", func(t *testing.T) {
		res := engine.Run(makeBars("BTCUSDT", []float64{100, 120, 150}))
		assert.Equal(t, 0, res.TotalTrades)
		assert.Empty(t, res.Trades)
		assert.Equal(t, 0.0, res.PercentageReturn)
		assert.Equal(t, 0.0, res.SharpeRatio)
	})
}

// pumpAndFade builds a series that triggers one short and takes profit.
func pumpAndFade() []Bar {
	closes := []float64{100, 104, 109}
	closes = append(closes, 110, 100, 90, 60, 59, 58, 57, 56)
	return makeBars("BTCUSDT", closes)
}

func TestEngineRun_TakeProfitResults(t *testing.T) {
	cfg := oneLevelConfig()
	cfg.DetectionPeriod = 3

	res, err := Run(cfg, pumpAndFade(), nil)
	require.NoError(t, err)

	// short at 110, target 66 reached at 60
	require.Equal(t, 1, res.TotalTrades)
	assert.Equal(t, 1, res.WinningTrades)
	assert.Equal(t, 0, res.LosingTrades)
	assert.Equal(t, 100.0, res.WinRate)

	closed := res.ClosedTrades()
	require.Len(t, closed, 1)
	assert.Equal(t, ReasonTakeProfit, closed[0].Reason)

	expectedPnL := 20 * calculatePnLPercent(DirectionShort, 110, 60, 5) / 100
	assert.InDelta(t, expectedPnL, closed[0].PnLAmount, 1e-9)
	assert.InDelta(t, 1000+expectedPnL, res.FinalBalance, 1e-9)
	assert.InDelta(t, expectedPnL, res.AbsoluteReturn, 1e-9)
	assert.InDelta(t, expectedPnL/10, res.PercentageReturn, 1e-9)
	assert.Equal(t, 0.0, res.MaxDrawdown)
	assert.Equal(t, cfg.TKMPercentage, res.Parameters.TKMPercentage)

	// Equity: initial point plus bars 3..10
	assert.Len(t, res.EquityCurve, 1+8)
}

func TestEngineRun_IsolatedRuns(t *testing.T) {
	cfg := oneLevelConfig()
	cfg.DetectionPeriod = 3
	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)

	// Caller-side mutation after construction must not leak into runs
	cfg.MarginIncreaseLevels[0] = 900

	first := engine.Run(pumpAndFade())
	second := engine.Run(pumpAndFade())
	assert.Equal(t, first, second)
	assert.Equal(t, 100.0, first.Parameters.MarginIncreaseLevels[0])

	var wg sync.WaitGroup
	results := make([]*BacktestResults, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Run(pumpAndFade())
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, first, res)
	}
}

func TestEngineRun_ResultsDoNotAliasConfig(t *testing.T) {
	engine, err := NewEngine(oneLevelConfig(), nil)
	require.NoError(t, err)

	res := engine.Run(nil)
	res.Parameters.MarginLossROILevels[0] = 1

	assert.Equal(t, 200.0, engine.Config().MarginLossROILevels[0])
}

func TestBarsFromPrices(t *testing.T) {
	base := time.Date(2024, 11, 17, 0, 0, 0, 0, time.UTC)
	prices := []models.Price{
		{Symbol: "BTCUSDT", OpenTime: base.Add(2 * time.Minute), Close: 3},
		{Symbol: "BTCUSDT", OpenTime: base, Close: 1},
		{Symbol: "BTCUSDT", OpenTime: base.Add(time.Minute), Close: 2},
	}

	bars := BarsFromPrices(prices)
	require.Len(t, bars, 3)
	for i, bar := range bars {
		assert.Equal(t, float64(i+1), bar.Close)
		assert.Equal(t, "BTCUSDT", bar.Symbol)
	}
	assert.Equal(t, base, bars[0].Timestamp)
}
