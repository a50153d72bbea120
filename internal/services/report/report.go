package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"MartingaleBot/internal/operations/backtest"

	"github.com/shopspring/decimal"
)

func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

func floats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = decimal.NewFromFloat(v).String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Generate renders a markdown report of one backtest run.
func Generate(results *backtest.BacktestResults) string {
	if results == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("# Martingale Backtest Report\n\n")

	sb.WriteString("## Overall Performance\n\n")
	fmt.Fprintf(&sb, "- Initial Balance: %s\n", money(results.InitialBalance))
	fmt.Fprintf(&sb, "- Final Balance: %s\n", money(results.FinalBalance))
	fmt.Fprintf(&sb, "- Absolute Return: %s\n", money(results.AbsoluteReturn))
	fmt.Fprintf(&sb, "- Percentage Return: %s\n", percent(results.PercentageReturn))
	fmt.Fprintf(&sb, "- Max Drawdown: %s\n", percent(results.MaxDrawdown))
	fmt.Fprintf(&sb, "- Sharpe Ratio: %s\n\n", decimal.NewFromFloat(results.SharpeRatio).StringFixed(4))

	sb.WriteString("## Trade Statistics\n\n")
	fmt.Fprintf(&sb, "- Total Trades: %d\n", results.TotalTrades)
	fmt.Fprintf(&sb, "- Winning Trades: %d\n", results.WinningTrades)
	fmt.Fprintf(&sb, "- Losing Trades: %d\n", results.LosingTrades)
	fmt.Fprintf(&sb, "- Win Rate: %s\n", percent(results.WinRate))
	fmt.Fprintf(&sb, "- Margin Additions: %d\n", len(results.MarginAdditions))
	fmt.Fprintf(&sb, "- Counter Trades: %d\n\n", len(results.CounterTrades))

	analysis := Analyze(results)
	if len(analysis.PnLByReason) > 0 {
		sb.WriteString("## P&L by Close Reason\n\n")
		reasons := make([]string, 0, len(analysis.PnLByReason))
		for reason := range analysis.PnLByReason {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			pnl := analysis.PnLByReason[backtest.CloseReason(reason)]
			fmt.Fprintf(&sb, "- %s: %s\n", reason, money(pnl))
		}
		sb.WriteString("\n")
	}

	p := results.Parameters
	sb.WriteString("## Strategy Parameters\n\n")
	fmt.Fprintf(&sb, "- total_balance: %s\n", decimal.NewFromFloat(p.TotalBalance))
	fmt.Fprintf(&sb, "- tkm_percentage: %s\n", decimal.NewFromFloat(p.TKMPercentage).StringFixed(4))
	fmt.Fprintf(&sb, "- entry_price_percentage: %s\n", decimal.NewFromFloat(p.EntryPercentage))
	fmt.Fprintf(&sb, "- leverage: %d\n", p.Leverage)
	fmt.Fprintf(&sb, "- margin_loss_roi_levels: %s\n", floats(p.MarginLossROILevels))
	fmt.Fprintf(&sb, "- margin_increase_levels: %s\n", floats(p.MarginIncreaseLevels))
	fmt.Fprintf(&sb, "- take_profit_roi: %s\n", decimal.NewFromFloat(p.TakeProfitROI))
	fmt.Fprintf(&sb, "- counter_trade_loss_roi: %s\n", decimal.NewFromFloat(p.CounterTradeLossROI))
	fmt.Fprintf(&sb, "- counter_trade_margin_percentage: %s\n", decimal.NewFromFloat(p.CounterTradeMarginPercentage))
	fmt.Fprintf(&sb, "- position_direction: %s\n", p.Direction)
	fmt.Fprintf(&sb, "- detection_period: %d\n", p.DetectionPeriod)
	fmt.Fprintf(&sb, "- pump_dump_threshold: %s\n", decimal.NewFromFloat(p.PumpDumpThreshold))

	return sb.String()
}

// Save writes the markdown report to path, creating parent directories.
func Save(path string, results *backtest.BacktestResults) error {
	if results == nil {
		return fmt.Errorf("no results to report")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Generate(results)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
