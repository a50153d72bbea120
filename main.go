package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"MartingaleBot/config"
	"MartingaleBot/internal/handlers"
	"MartingaleBot/internal/models"
	"MartingaleBot/internal/operations/binance"
	"MartingaleBot/internal/repositories"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	zl, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zl.Sync()

	strategy, err := config.LoadStrategy(cfg.Backtest.StrategyFile)
	if err != nil {
		zl.Fatal("failed to load strategy", zap.String("file", cfg.Backtest.StrategyFile), zap.Error(err))
	}

	// Setup database
	db := setupDatabase(cfg.Database, zl)

	priceRepo := repositories.NewPriceRepository(db)
	backtestRepo := repositories.NewBacktestRepository(db)

	// Cancel in-flight work on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	barLength := models.TimeFrameDuration(cfg.Backtest.TimeFrame)
	if barLength == 0 {
		zl.Fatal("unsupported timeframe", zap.String("timeframe", cfg.Backtest.TimeFrame))
	}
	start, end := cfg.Backtest.Window(time.Now(), barLength)

	if cfg.Backtest.ImportKlines {
		client := binance.NewBinanceClient(cfg.Exchange.APIKey, cfg.Exchange.SecretKey, zl)
		priceHandler := handlers.NewPriceHandler(client, priceRepo, cfg.Symbols, cfg.Backtest.TimeFrame, zl)
		if err := priceHandler.Import(ctx, start, end); err != nil {
			zl.Fatal("failed to import candles", zap.Error(err))
		}
	}

	backtestHandler, err := handlers.NewBacktestHandler(strategy, priceRepo, backtestRepo,
		cfg.Backtest.TimeFrame, cfg.Backtest.ReportDir, zl)
	if err != nil {
		zl.Fatal("invalid strategy", zap.Error(err))
	}

	results, err := backtestHandler.RunAll(ctx, cfg.Symbols, start, end)
	if err != nil {
		zl.Error("some backtests failed", zap.Error(err))
	}

	symbols := make([]string, 0, len(results))
	for symbol := range results {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	// Print results
	for _, symbol := range symbols {
		r := results[symbol]
		fmt.Printf("\n=== Backtest Results: %s ===\n", symbol)
		fmt.Printf("Total Trades: %d\n", r.TotalTrades)
		fmt.Printf("Winning Trades: %d (%.2f%%)\n", r.WinningTrades, r.WinRate)
		fmt.Printf("Margin Additions: %d\n", len(r.MarginAdditions))
		fmt.Printf("Counter Trades: %d\n", len(r.CounterTrades))
		fmt.Printf("Max Drawdown: %.2f%%\n", r.MaxDrawdown)
		fmt.Printf("Final Balance: $%.2f (%.2f%%)\n", r.FinalBalance, r.PercentageReturn)
		fmt.Printf("Sharpe Ratio: %.4f\n", r.SharpeRatio)
	}

	if err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

func setupDatabase(dbConfig config.DatabaseConfig, zl *zap.Logger) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}

	// Auto migrate database schemas
	err = db.AutoMigrate(&models.Price{}, &models.BacktestRun{}, &models.BacktestTrade{})
	if err != nil {
		zl.Fatal("failed to migrate database", zap.Error(err))
	}

	return db
}
