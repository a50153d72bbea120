package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"MartingaleBot/internal/operations/backtest"
)

var tradeHeader = []string{
	"time", "action", "symbol", "direction", "price", "open_price", "quantity", "margin",
	"reason", "pnl_pct", "pnl_amount", "margin_levels_used", "total_margin_used",
}

// WriteTradesCSV dumps the full trade log, one row per lifecycle event.
func WriteTradesCSV(trades []backtest.TradeEvent, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := w.Write([]string{
			t.Time.UTC().Format(time.RFC3339),
			string(t.Action), t.Symbol, string(t.Direction),
			formatF(t.Price), formatF(t.OpenPrice), formatF(t.Quantity), formatF(t.Margin),
			string(t.Reason), formatF(t.PnLPercent), formatF(t.PnLAmount),
			strconv.Itoa(t.MarginLevelsUsed), formatF(t.TotalMarginUsed),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
