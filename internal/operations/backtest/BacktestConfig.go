package backtest

import (
	"errors"
	"fmt"
	"math"
)

// Defaults taken from the live bot settings
const (
	InitialBalance               = 1000.0 // USDT
	EntryPercentage              = 2.0
	Leverage                     = 5
	TakeProfitROI                = 200.0
	CounterTradeLossROI          = 500.0
	CounterTradeMarginPercentage = 100.0
	DetectionPeriod              = 45 // bars
	PumpDumpThreshold            = 7.0
	PeriodsPerYear               = 252

	// Allowed gap between the compounded ladder total and TKM%
	MarginTolerance = 0.01
)

var ErrInvalidConfig = errors.New("invalid backtest config")

// Config is the immutable parameter set of one backtest run.
type Config struct {
	TotalBalance    float64 `yaml:"total_balance"`
	TKMPercentage   float64 `yaml:"tkm_percentage"`
	EntryPercentage float64 `yaml:"entry_price_percentage"`
	Leverage        int     `yaml:"leverage"`

	// Ladder. MarginLossROILevels[L] is the stop for level L, MarginIncreaseLevels[L]
	// the percent of committed margin added when it is hit.
	MarginLossROILevels  []float64 `yaml:"margin_loss_roi_levels"`
	MarginIncreaseLevels []float64 `yaml:"margin_increase_levels"`

	TakeProfitROI                float64 `yaml:"take_profit_roi"`
	CounterTradeLossROI          float64 `yaml:"counter_trade_loss_roi"`
	CounterTradeMarginPercentage float64 `yaml:"counter_trade_margin_percentage"`

	Direction         Direction `yaml:"position_direction"`
	DetectionPeriod   int       `yaml:"detection_period"`
	PumpDumpThreshold float64   `yaml:"pump_dump_threshold"`

	// Sharpe annualization factor, 0 means PeriodsPerYear
	PeriodsPerYear float64 `yaml:"periods_per_year"`
}

// NewConfig creates default config. The default ladder compounds to slightly
// under 10%, so TKM is derived from it rather than hardcoded.
func NewConfig() Config {
	increases := []float64{100, 50, 33, 25}
	return Config{
		TotalBalance:                 InitialBalance,
		TKMPercentage:                LadderTotal(EntryPercentage, increases),
		EntryPercentage:              EntryPercentage,
		Leverage:                     Leverage,
		MarginLossROILevels:          []float64{200, 200, 200, 200},
		MarginIncreaseLevels:         increases,
		TakeProfitROI:                TakeProfitROI,
		CounterTradeLossROI:          CounterTradeLossROI,
		CounterTradeMarginPercentage: CounterTradeMarginPercentage,
		Direction:                    DirectionShort,
		DetectionPeriod:              DetectionPeriod,
		PumpDumpThreshold:            PumpDumpThreshold,
		PeriodsPerYear:               PeriodsPerYear,
	}
}

// LadderTotal returns the percent of balance the full ladder commits: the
// entry plus every addition compounded on the margin committed before it.
func LadderTotal(entry float64, increases []float64) float64 {
	total := entry
	current := entry
	for _, inc := range increases {
		added := current * inc / 100
		total += added
		current += added
	}
	return total
}

func (c Config) Validate() error {
	switch {
	case c.TotalBalance <= 0:
		return fmt.Errorf("%w: total balance must be positive, got %v", ErrInvalidConfig, c.TotalBalance)
	case c.Leverage < 1:
		return fmt.Errorf("%w: leverage must be >= 1, got %d", ErrInvalidConfig, c.Leverage)
	case c.EntryPercentage <= 0:
		return fmt.Errorf("%w: entry percentage must be positive, got %v", ErrInvalidConfig, c.EntryPercentage)
	case len(c.MarginLossROILevels) == 0:
		return fmt.Errorf("%w: margin loss ROI levels are empty", ErrInvalidConfig)
	case len(c.MarginLossROILevels) < len(c.MarginIncreaseLevels):
		return fmt.Errorf("%w: %d margin increase levels but only %d loss ROI levels",
			ErrInvalidConfig, len(c.MarginIncreaseLevels), len(c.MarginLossROILevels))
	case !c.Direction.Valid():
		return fmt.Errorf("%w: direction must be LONG or SHORT, got %q", ErrInvalidConfig, c.Direction)
	case c.DetectionPeriod < 1:
		return fmt.Errorf("%w: detection period must be >= 1, got %d", ErrInvalidConfig, c.DetectionPeriod)
	case c.PumpDumpThreshold <= 0:
		return fmt.Errorf("%w: pump/dump threshold must be positive, got %v", ErrInvalidConfig, c.PumpDumpThreshold)
	case c.TakeProfitROI <= 0:
		return fmt.Errorf("%w: take profit ROI must be positive, got %v", ErrInvalidConfig, c.TakeProfitROI)
	case c.Direction == DirectionShort && c.TakeProfitROI >= 100*float64(c.Leverage):
		return fmt.Errorf("%w: take profit ROI %v puts a short's target at or below zero with leverage %d",
			ErrInvalidConfig, c.TakeProfitROI, c.Leverage)
	case c.CounterTradeLossROI <= 0:
		return fmt.Errorf("%w: counter trade loss ROI must be positive, got %v", ErrInvalidConfig, c.CounterTradeLossROI)
	case c.CounterTradeMarginPercentage < 0:
		return fmt.Errorf("%w: counter trade margin percentage is negative", ErrInvalidConfig)
	case c.PeriodsPerYear < 0:
		return fmt.Errorf("%w: periods per year must not be negative", ErrInvalidConfig)
	}

	for i, roi := range c.MarginLossROILevels {
		if roi <= 0 {
			return fmt.Errorf("%w: margin loss ROI level %d must be positive", ErrInvalidConfig, i)
		}
	}
	for i, inc := range c.MarginIncreaseLevels {
		if inc < 0 {
			return fmt.Errorf("%w: margin increase level %d is negative", ErrInvalidConfig, i)
		}
	}

	total := LadderTotal(c.EntryPercentage, c.MarginIncreaseLevels)
	if math.Abs(total-c.TKMPercentage) > MarginTolerance {
		return fmt.Errorf("%w: margin percentages do not add up to TKM, total used %.4f%%, TKM %.4f%%",
			ErrInvalidConfig, total, c.TKMPercentage)
	}
	return nil
}

func (c Config) periodsPerYear() float64 {
	if c.PeriodsPerYear == 0 {
		return PeriodsPerYear
	}
	return c.PeriodsPerYear
}

// clone copies the ladder slices so a run never shares them with its caller.
func (c Config) clone() Config {
	c.MarginLossROILevels = append([]float64(nil), c.MarginLossROILevels...)
	c.MarginIncreaseLevels = append([]float64(nil), c.MarginIncreaseLevels...)
	return c
}
