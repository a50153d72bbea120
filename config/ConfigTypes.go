package config

import "time"

type config struct {
	Exchange ExchangeConfig
	Database DatabaseConfig
	Symbols  []string
	Backtest BacktestSettings
	LogLevel string
}

type ExchangeConfig struct {
	APIKey    string
	SecretKey string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// BacktestSettings selects the data and outputs of a backtest run. Strategy
// parameters live in StrategyFile.
type BacktestSettings struct {
	StrategyFile string
	TimeFrame    string
	Days         int
	ImportKlines bool
	ReportDir    string
}

// Window returns the [start, end) range covered by Days, ending at now
// truncated to the timeframe.
func (b BacktestSettings) Window(now time.Time, barLength time.Duration) (time.Time, time.Time) {
	end := now.UTC()
	if barLength > 0 {
		end = end.Truncate(barLength)
	}
	return end.AddDate(0, 0, -b.Days), end
}
