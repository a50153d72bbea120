package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func equityOf(balances ...float64) []EquityPoint {
	points := make([]EquityPoint, len(balances))
	for i, b := range balances {
		points[i] = EquityPoint{Timestamp: testStart.Add(time.Duration(i) * time.Minute), Balance: b}
	}
	return points
}

func TestCalculateMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		balances []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"single point", []float64{100}, 0},
		{"never below peak", []float64{100, 100, 110, 120}, 0},
		{"dip after new peak", []float64{100, 120, 90, 130}, -25},
		{"deepest dip wins", []float64{100, 80, 100, 95}, -20},
		{"zero balance peak", []float64{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd := calculateMaxDrawdown(equityOf(tt.balances...))
			assert.InDelta(t, tt.expected, dd, 1e-9)
			assert.LessOrEqual(t, dd, 0.0)
		})
	}
}

func TestCalculateSharpeRatio(t *testing.T) {
	t.Run("undefined cases", func(t *testing.T) {
		assert.Equal(t, 0.0, calculateSharpeRatio(nil, 252))
		assert.Equal(t, 0.0, calculateSharpeRatio(equityOf(100), 252))
		// a single return has no sample deviation
		assert.Equal(t, 0.0, calculateSharpeRatio(equityOf(100, 110), 252))
		assert.Equal(t, 0.0, calculateSharpeRatio(equityOf(100, 100, 100, 100), 252))
		assert.Equal(t, 0.0, calculateSharpeRatio(equityOf(0, 0, 0), 252))
	})

	t.Run("annualized", func(t *testing.T) {
		// returns 10% and 5%
		equity := equityOf(100, 110, 115.5)
		expected := 0.075 / math.Sqrt(2*0.025*0.025) * math.Sqrt(252)
		assert.InDelta(t, expected, calculateSharpeRatio(equity, 252), 1e-6)

		daily := 0.075 / math.Sqrt(2*0.025*0.025) * math.Sqrt(365)
		assert.InDelta(t, daily, calculateSharpeRatio(equity, 365), 1e-6)
	})
}

func TestCalculateResults_TradeCounts(t *testing.T) {
	cfg := oneLevelConfig()
	trades := []TradeEvent{
		{Action: ActionOpen},
		{Action: ActionClose, PnLAmount: 12},
		{Action: ActionOpen},
		{Action: ActionCounterClose, PnLAmount: 30},
		{Action: ActionClose, PnLAmount: 0},
		{Action: ActionOpen},
		{Action: ActionClose, PnLAmount: -4},
	}

	res := calculateResults(cfg, 1038, equityOf(1000, 1012, 1012, 1038), trades, nil, nil)

	assert.Equal(t, 3, res.TotalTrades)
	assert.Equal(t, 1, res.WinningTrades)
	assert.Equal(t, 2, res.LosingTrades)
	assert.InDelta(t, 100.0/3, res.WinRate, 1e-9)
	assert.InDelta(t, 38, res.AbsoluteReturn, 1e-9)
	assert.InDelta(t, 3.8, res.PercentageReturn, 1e-9)
	assert.Len(t, res.ClosedTrades(), 3)

	// record is detached from the inputs
	trades[1].PnLAmount = 999
	assert.Equal(t, 12.0, res.Trades[1].PnLAmount)
}

func TestDetector(t *testing.T) {
	short := NewDetector(Config{DetectionPeriod: 3, PumpDumpThreshold: 7, Direction: DirectionShort})
	long := NewDetector(Config{DetectionPeriod: 3, PumpDumpThreshold: 7, Direction: DirectionLong})

	pump := makeBars("BTCUSDT", []float64{100, 103, 108, 200})
	dump := makeBars("BTCUSDT", []float64{100, 97, 92, 1})
	flat := makeBars("BTCUSDT", []float64{100, 103, 106, 300})

	t.Run("window excludes decision bar", func(t *testing.T) {
		change, ok := short.Change(flat, 3)
		assert.True(t, ok)
		assert.InDelta(t, 6, change, 1e-9)
		assert.False(t, short.Triggered(flat, 3))
	})

	t.Run("pump triggers short only", func(t *testing.T) {
		assert.True(t, short.Triggered(pump, 3))
		assert.False(t, long.Triggered(pump, 3))
	})

	t.Run("dump triggers long only", func(t *testing.T) {
		assert.True(t, long.Triggered(dump, 3))
		assert.False(t, short.Triggered(dump, 3))
	})

	t.Run("window does not fit", func(t *testing.T) {
		_, ok := short.Change(pump, 2)
		assert.False(t, ok)
		assert.False(t, short.Triggered(pump, 2))
		assert.False(t, short.Triggered(pump, 10))
	})

	t.Run("zero start price", func(t *testing.T) {
		bars := makeBars("BTCUSDT", []float64{0, 5, 10, 10})
		assert.False(t, short.Triggered(bars, 3))
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		bars := makeBars("BTCUSDT", []float64{100, 101, 107, 107})
		assert.True(t, short.Triggered(bars, 3))
	})
}
