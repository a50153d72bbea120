package report

import (
	"time"

	"MartingaleBot/internal/operations/backtest"
)

const (
	rollingWindow    = 10
	distributionBins = 20
)

type Point struct {
	Time  time.Time
	Value float64
}

// Bin counts close events with Low <= PnLPercent < High. The last bin also
// holds its upper edge.
type Bin struct {
	Low   float64
	High  float64
	Count int
}

// Analysis is the per-trade breakdown of a run's closed positions.
type Analysis struct {
	CumulativePnL  []Point
	PnLByReason    map[backtest.CloseReason]float64
	RollingWinRate []Point
	Window         int

	// Histogram of close PnLPercent
	PnLDistribution []Bin
}

// Analyze walks close events in order. The rolling win rate uses a window of
// min(10, closes) and starts once the window is full.
func Analyze(results *backtest.BacktestResults) Analysis {
	analysis := Analysis{PnLByReason: make(map[backtest.CloseReason]float64)}
	if results == nil {
		return analysis
	}

	closes := results.ClosedTrades()
	if len(closes) == 0 {
		return analysis
	}

	analysis.Window = rollingWindow
	if len(closes) < rollingWindow {
		analysis.Window = len(closes)
	}

	analysis.PnLDistribution = histogram(closes, distributionBins)

	cumulative := 0.0
	wins := make([]bool, len(closes))
	winsInWindow := 0
	for i, t := range closes {
		cumulative += t.PnLAmount
		analysis.CumulativePnL = append(analysis.CumulativePnL, Point{Time: t.Time, Value: cumulative})
		analysis.PnLByReason[t.Reason] += t.PnLAmount

		wins[i] = t.PnLAmount > 0
		if wins[i] {
			winsInWindow++
		}
		if i >= analysis.Window && wins[i-analysis.Window] {
			winsInWindow--
		}
		if i >= analysis.Window-1 {
			analysis.RollingWinRate = append(analysis.RollingWinRate, Point{
				Time:  t.Time,
				Value: float64(winsInWindow) / float64(analysis.Window) * 100,
			})
		}
	}
	return analysis
}

// histogram spreads PnLPercent over equal-width bins between its min and max.
// A single distinct value gets a unit-wide range centred on it.
func histogram(closes []backtest.TradeEvent, bins int) []Bin {
	lo, hi := closes[0].PnLPercent, closes[0].PnLPercent
	for _, t := range closes[1:] {
		if t.PnLPercent < lo {
			lo = t.PnLPercent
		}
		if t.PnLPercent > hi {
			hi = t.PnLPercent
		}
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Low = lo + float64(i)*width
		out[i].High = lo + float64(i+1)*width
	}
	out[bins-1].High = hi

	for _, t := range closes {
		i := int((t.PnLPercent - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}
