// backtest/types.go

package backtest

import (
	"time"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Opposite returns the hedge direction for d.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Single bar of the replayed series, only the close is consumed
type Bar struct {
	Timestamp time.Time
	Symbol    string
	Close     float64
}

// ActivePosition is the primary martingale position. At most one is live.
type ActivePosition struct {
	Symbol     string
	EntryTime  time.Time
	EntryPrice float64
	Direction  Direction
	Quantity   float64 // base units
	Margin     float64 // quote units committed so far

	MarginLevel     int     // ladder levels used, 0 = none
	TotalMarginUsed float64 // percent of total balance

	TakeProfitPrice float64
	StopLossPrice   float64
}

func (p *ActivePosition) takeProfitHit(price float64) bool {
	if p.Direction == DirectionLong {
		return price >= p.TakeProfitPrice
	}
	return price <= p.TakeProfitPrice
}

func (p *ActivePosition) stopLossHit(price float64) bool {
	if p.Direction == DirectionLong {
		return price <= p.StopLossPrice
	}
	return price >= p.StopLossPrice
}

// CounterPosition is the opposite-direction hedge opened once the ladder is exhausted.
type CounterPosition struct {
	EntryTime  time.Time
	EntryPrice float64
	Quantity   float64
	Direction  Direction
	Margin     float64
}

type TradeAction string

const (
	ActionOpen         TradeAction = "open"
	ActionMarginAdd    TradeAction = "margin_add"
	ActionCounterOpen  TradeAction = "counter_open"
	ActionCounterClose TradeAction = "close_counter"
	ActionClose        TradeAction = "close"
)

type CloseReason string

const (
	ReasonTakeProfit    CloseReason = "take_profit"
	ReasonEndOfBacktest CloseReason = "end_of_backtest"
)

// TradeEvent is one append-only lifecycle record. Fields that do not apply
// to an action are left zero.
type TradeEvent struct {
	Action    TradeAction
	Time      time.Time
	Symbol    string
	Direction Direction

	Price     float64 // event price, the exit price for closes
	OpenPrice float64 // entry price of the position being closed
	Quantity  float64
	Margin    float64

	// Close events
	Reason           CloseReason
	PnLPercent       float64
	PnLAmount        float64
	MarginLevelsUsed int
	TotalMarginUsed  float64
}

// IsClose reports whether the event realized P&L into the balance.
func (t TradeEvent) IsClose() bool {
	return t.Action == ActionClose || t.Action == ActionCounterClose
}

type MarginAddition struct {
	Time        time.Time
	Level       int
	Amount      float64
	TotalMargin float64
	Price       float64
}

type CounterTrade struct {
	Time      time.Time
	Direction Direction
	Price     float64
	Quantity  float64
	Margin    float64
}

// For tracking equity changes
type EquityPoint struct {
	Timestamp time.Time
	Balance   float64
}

// Final backtest results
type BacktestResults struct {
	// Balance
	InitialBalance   float64
	FinalBalance     float64
	AbsoluteReturn   float64
	PercentageReturn float64

	// Trade metrics
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	// Performance metrics
	MaxDrawdown float64
	SharpeRatio float64

	// Detailed records. EquityCurve holds balances before each processed
	// bar, so an end_of_backtest close shows up in FinalBalance only and is
	// not part of MaxDrawdown or SharpeRatio.
	EquityCurve     []EquityPoint
	Trades          []TradeEvent
	MarginAdditions []MarginAddition
	CounterTrades   []CounterTrade

	Parameters Config
}

// ClosedTrades returns the primary close events in order.
func (r *BacktestResults) ClosedTrades() []TradeEvent {
	var closed []TradeEvent
	for _, t := range r.Trades {
		if t.Action == ActionClose {
			closed = append(closed, t)
		}
	}
	return closed
}
