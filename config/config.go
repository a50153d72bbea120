package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultStrategyFile = "config/strategy.yaml"
	defaultTimeFrame    = "1m"
	defaultDays         = 7
	defaultReportDir    = "reports"
	defaultDBPort       = 5432
)

// Load reads settings from the environment. A .env file is applied when
// present; variables already set in the environment take precedence.
func Load() (*config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	port := EnvtoInt(os.Getenv("DB_PORT"))
	if port == 0 {
		port = defaultDBPort
	}

	days := EnvtoInt(os.Getenv("BACKTEST_DAYS"))
	if days <= 0 {
		days = defaultDays
	}

	importKlines := false
	if v := os.Getenv("IMPORT_KLINES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid IMPORT_KLINES %q: %w", v, err)
		}
		importKlines = b
	}

	return &config{
		Exchange: ExchangeConfig{
			APIKey:    os.Getenv("BINANCE_API_KEY"),
			SecretKey: os.Getenv("BINANCE_SECRET_KEY"),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     port,
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		Symbols: getSymbols(),
		Backtest: BacktestSettings{
			StrategyFile: envOr("STRATEGY_FILE", defaultStrategyFile),
			TimeFrame:    envOr("BACKTEST_TIMEFRAME", defaultTimeFrame),
			Days:         days,
			ImportKlines: importKlines,
			ReportDir:    envOr("REPORT_DIR", defaultReportDir),
		},
		LogLevel: strings.ToLower(os.Getenv("LOG_LEVEL")),
	}, nil
}

// helper env(string) to int
func EnvtoInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// helper to get symbols
func getSymbols() []string {
	symbols := os.Getenv("TRADING_SYMBOLS")
	if symbols == "" {
		return []string{"BTCUSDT", "ETHUSDT"} // Default pairs if none specified
	}

	var out []string
	seen := make(map[string]bool)
	for _, s := range strings.Split(symbols, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
