package backtest

import (
	"math"
)

// calculateResults aggregates a finished run into its results record.
// Slices are copied so the record does not alias simulator state.
func calculateResults(config Config, finalBalance float64, equity []EquityPoint, trades []TradeEvent,
	margins []MarginAddition, counters []CounterTrade) *BacktestResults {

	initial := config.TotalBalance
	results := &BacktestResults{
		InitialBalance:  initial,
		FinalBalance:    finalBalance,
		AbsoluteReturn:  finalBalance - initial,
		EquityCurve:     append([]EquityPoint(nil), equity...),
		Trades:          append([]TradeEvent(nil), trades...),
		MarginAdditions: append([]MarginAddition(nil), margins...),
		CounterTrades:   append([]CounterTrade(nil), counters...),
		Parameters:      config.clone(),
	}
	if initial != 0 {
		results.PercentageReturn = results.AbsoluteReturn / initial * 100
	}

	for _, t := range trades {
		if t.Action != ActionClose {
			continue
		}
		results.TotalTrades++
		if t.PnLAmount > 0 {
			results.WinningTrades++
		} else {
			results.LosingTrades++
		}
	}
	if results.TotalTrades > 0 {
		results.WinRate = float64(results.WinningTrades) / float64(results.TotalTrades) * 100
	}

	results.MaxDrawdown = calculateMaxDrawdown(equity)
	results.SharpeRatio = calculateSharpeRatio(equity, config.periodsPerYear())

	return results
}

// calculateMaxDrawdown returns the deepest fall below the running peak in
// percent. It is never positive.
func calculateMaxDrawdown(equity []EquityPoint) float64 {
	maxDrawdown := 0.0
	peak := math.Inf(-1)

	for _, point := range equity {
		if point.Balance > peak {
			peak = point.Balance
		}
		if peak <= 0 {
			continue
		}
		drawdown := (point.Balance/peak - 1) * 100
		if drawdown < maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// calculateSharpeRatio annualizes mean/stddev of period-over-period returns.
// Periods starting from a zero balance have no defined return and are skipped.
func calculateSharpeRatio(equity []EquityPoint, periodsPerYear float64) float64 {
	if len(equity) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Balance
		if prev == 0 {
			continue
		}
		returns = append(returns, (equity[i].Balance-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	avgReturn := average(returns)
	stdDev := standardDeviation(returns, avgReturn)

	if stdDev == 0 || math.IsNaN(stdDev) {
		return 0
	}

	return avgReturn / stdDev * math.Sqrt(periodsPerYear)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Sample standard deviation (n-1)
func standardDeviation(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var variance float64
	for _, v := range values {
		variance += math.Pow(v-mean, 2)
	}

	variance = variance / float64(len(values)-1)
	return math.Sqrt(variance)
}
