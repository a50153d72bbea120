package backtest

import (
	"time"

	"go.uber.org/zap"
)

// Simulator owns the state of a single run: the running balance, the
// primary and counter positions and the append-only logs. It is not safe
// for concurrent use; every run gets a fresh one from the Engine.
type Simulator struct {
	config   Config
	detector Detector
	logger   *zap.Logger

	// State tracking
	balance  float64
	position *ActivePosition
	counter  *CounterPosition

	// Logs
	trades          []TradeEvent
	marginAdditions []MarginAddition
	counterTrades   []CounterTrade
	equityCurve     []EquityPoint
}

func NewSimulator(config Config, logger *zap.Logger) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newSimulator(config.clone(), logger), nil
}

func newSimulator(config Config, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		config:   config,
		detector: NewDetector(config),
		logger:   logger,
		balance:  config.TotalBalance,
	}
}

func (s *Simulator) Balance() float64 {
	return s.balance
}

// Position returns a copy of the active position, nil when flat.
func (s *Simulator) Position() *ActivePosition {
	if s.position == nil {
		return nil
	}
	p := *s.position
	return &p
}

// Counter returns a copy of the counter-trade, nil when none is open.
func (s *Simulator) Counter() *CounterPosition {
	if s.counter == nil {
		return nil
	}
	c := *s.counter
	return &c
}

// Replay runs the whole series. The detector is consulted only while flat.
// Any position still open after the last bar is closed at its price.
func (s *Simulator) Replay(bars []Bar) {
	if len(bars) == 0 {
		return
	}
	s.recordEquity(bars[0].Timestamp)

	for i := s.config.DetectionPeriod; i < len(bars); i++ {
		bar := bars[i]
		s.recordEquity(bar.Timestamp)

		if s.position != nil {
			s.CheckPosition(bar.Timestamp, bar.Close)
			continue
		}
		if s.detector.Triggered(bars, i) {
			s.OpenPosition(bar.Timestamp, bar.Close, bar.Symbol)
		}
	}

	if s.position != nil {
		last := bars[len(bars)-1]
		s.ClosePosition(last.Timestamp, last.Close, ReasonEndOfBacktest)
	}
}

func (s *Simulator) recordEquity(ts time.Time) {
	s.equityCurve = append(s.equityCurve, EquityPoint{
		Timestamp: ts,
		Balance:   s.balance,
	})
}

// OpenPosition opens the primary position sized from the running balance.
func (s *Simulator) OpenPosition(ts time.Time, price float64, symbol string) bool {
	if s.position != nil || price <= 0 {
		return false
	}

	margin := s.balance * (s.config.EntryPercentage / 100)
	if margin <= 0 {
		s.logger.Warn("balance exhausted, skipping entry",
			zap.String("symbol", symbol),
			zap.Float64("balance", s.balance))
		return false
	}
	quantity := margin * float64(s.config.Leverage) / price

	lev := float64(s.config.Leverage)
	tpOffset := s.config.TakeProfitROI / lev / 100
	slOffset := s.config.MarginLossROILevels[0] / lev / 100

	pos := &ActivePosition{
		Symbol:          symbol,
		EntryTime:       ts,
		EntryPrice:      price,
		Direction:       s.config.Direction,
		Quantity:        quantity,
		Margin:          margin,
		TotalMarginUsed: s.config.EntryPercentage,
	}
	if pos.Direction == DirectionLong {
		pos.TakeProfitPrice = price * (1 + tpOffset)
		pos.StopLossPrice = price * (1 - slOffset)
	} else {
		pos.TakeProfitPrice = price * (1 - tpOffset)
		pos.StopLossPrice = price * (1 + slOffset)
	}
	s.position = pos

	s.trades = append(s.trades, TradeEvent{
		Action:    ActionOpen,
		Time:      ts,
		Symbol:    symbol,
		Direction: pos.Direction,
		Price:     price,
		Quantity:  quantity,
		Margin:    margin,
	})

	s.logger.Debug("opened position",
		zap.String("symbol", symbol),
		zap.String("direction", string(pos.Direction)),
		zap.Float64("price", price),
		zap.Float64("margin", margin))
	return true
}

// AddMargin climbs one ladder level. It returns false when there is no
// position or the ladder is already exhausted.
func (s *Simulator) AddMargin(ts time.Time, price float64) bool {
	pos := s.position
	if pos == nil || price <= 0 {
		return false
	}
	level := pos.MarginLevel
	if level >= len(s.config.MarginIncreaseLevels) {
		return false
	}

	additional := pos.Margin * (s.config.MarginIncreaseLevels[level] / 100)
	pos.Quantity += additional * float64(s.config.Leverage) / price
	pos.Margin += additional
	pos.MarginLevel++
	pos.TotalMarginUsed += additional / s.config.TotalBalance * 100

	// Stop for the next level is measured from the original entry
	if pos.MarginLevel < len(s.config.MarginLossROILevels) {
		offset := s.config.MarginLossROILevels[pos.MarginLevel] / float64(s.config.Leverage) / 100
		if pos.Direction == DirectionLong {
			pos.StopLossPrice = pos.EntryPrice * (1 - offset)
		} else {
			pos.StopLossPrice = pos.EntryPrice * (1 + offset)
		}
	}

	s.marginAdditions = append(s.marginAdditions, MarginAddition{
		Time:        ts,
		Level:       pos.MarginLevel,
		Amount:      additional,
		TotalMargin: pos.Margin,
		Price:       price,
	})
	s.trades = append(s.trades, TradeEvent{
		Action:           ActionMarginAdd,
		Time:             ts,
		Symbol:           pos.Symbol,
		Direction:        pos.Direction,
		Price:            price,
		Margin:           additional,
		MarginLevelsUsed: pos.MarginLevel,
		TotalMarginUsed:  pos.TotalMarginUsed,
	})

	s.logger.Debug("added margin",
		zap.Int("level", pos.MarginLevel),
		zap.Float64("price", price),
		zap.Float64("amount", additional),
		zap.Float64("total_margin", pos.Margin))
	return true
}

// CheckPosition applies one bar to an open position: take profit first,
// then the stop which either climbs the ladder or hands over to the hedge.
func (s *Simulator) CheckPosition(ts time.Time, price float64) {
	pos := s.position
	if pos == nil {
		return
	}

	if pos.takeProfitHit(price) {
		s.ClosePosition(ts, price, ReasonTakeProfit)
		return
	}

	if pos.stopLossHit(price) {
		if pos.MarginLevel < len(s.config.MarginIncreaseLevels) {
			s.AddMargin(ts, price)
		} else {
			s.ManageCounterTrade(ts, price)
		}
		return
	}

	// Price came back inside the stop while hedged
	if s.counter != nil {
		s.ManageCounterTrade(ts, price)
	}
}

// LossROI is the leveraged adverse move of price against the position, in percent.
func (s *Simulator) LossROI(price float64) float64 {
	pos := s.position
	if pos == nil {
		return 0
	}
	move := (price - pos.EntryPrice) / pos.EntryPrice * 100 * float64(s.config.Leverage)
	if pos.Direction == DirectionLong {
		return -move
	}
	return move
}

// ManageCounterTrade opens the hedge once the loss ROI reaches the
// threshold and closes it when the loss falls back below.
func (s *Simulator) ManageCounterTrade(ts time.Time, price float64) {
	if s.position == nil {
		return
	}

	if s.LossROI(price) >= s.config.CounterTradeLossROI {
		if s.counter == nil {
			s.OpenCounterTrade(ts, price)
		}
		return
	}
	if s.counter != nil {
		s.CloseCounterTrade(ts, price)
	}
}

// OpenCounterTrade opens the hedge sized from the total (initial) balance.
func (s *Simulator) OpenCounterTrade(ts time.Time, price float64) bool {
	if s.position == nil || s.counter != nil || price <= 0 {
		return false
	}

	margin := s.config.TotalBalance * (s.config.CounterTradeMarginPercentage / 100)
	quantity := margin * float64(s.config.Leverage) / price
	direction := s.position.Direction.Opposite()

	s.counter = &CounterPosition{
		EntryTime:  ts,
		EntryPrice: price,
		Quantity:   quantity,
		Direction:  direction,
		Margin:     margin,
	}

	s.counterTrades = append(s.counterTrades, CounterTrade{
		Time:      ts,
		Direction: direction,
		Price:     price,
		Quantity:  quantity,
		Margin:    margin,
	})
	s.trades = append(s.trades, TradeEvent{
		Action:    ActionCounterOpen,
		Time:      ts,
		Symbol:    s.position.Symbol,
		Direction: direction,
		Price:     price,
		Quantity:  quantity,
		Margin:    margin,
	})

	s.logger.Debug("opened counter trade",
		zap.String("direction", string(direction)),
		zap.Float64("price", price),
		zap.Float64("margin", margin))
	return true
}

// CloseCounterTrade realizes the hedge P&L into the running balance.
func (s *Simulator) CloseCounterTrade(ts time.Time, price float64) bool {
	c := s.counter
	if c == nil {
		return false
	}

	pnlPercent := calculatePnLPercent(c.Direction, c.EntryPrice, price, s.config.Leverage)
	pnlAmount := c.Margin * (pnlPercent / 100)
	s.balance += pnlAmount

	symbol := ""
	if s.position != nil {
		symbol = s.position.Symbol
	}
	s.trades = append(s.trades, TradeEvent{
		Action:     ActionCounterClose,
		Time:       ts,
		Symbol:     symbol,
		Direction:  c.Direction,
		Price:      price,
		OpenPrice:  c.EntryPrice,
		Quantity:   c.Quantity,
		Margin:     c.Margin,
		PnLPercent: pnlPercent,
		PnLAmount:  pnlAmount,
	})
	s.counter = nil

	s.logger.Debug("closed counter trade",
		zap.Float64("price", price),
		zap.Float64("pnl_percent", pnlPercent))
	return true
}

// ClosePosition closes any hedge first, then realizes the primary P&L and
// returns the simulator to flat.
func (s *Simulator) ClosePosition(ts time.Time, price float64, reason CloseReason) bool {
	pos := s.position
	if pos == nil {
		return false
	}

	if s.counter != nil {
		s.CloseCounterTrade(ts, price)
	}

	pnlPercent := calculatePnLPercent(pos.Direction, pos.EntryPrice, price, s.config.Leverage)
	pnlAmount := pos.Margin * (pnlPercent / 100)
	s.balance += pnlAmount

	s.trades = append(s.trades, TradeEvent{
		Action:           ActionClose,
		Time:             ts,
		Symbol:           pos.Symbol,
		Direction:        pos.Direction,
		Price:            price,
		OpenPrice:        pos.EntryPrice,
		Quantity:         pos.Quantity,
		Margin:           pos.Margin,
		Reason:           reason,
		PnLPercent:       pnlPercent,
		PnLAmount:        pnlAmount,
		MarginLevelsUsed: pos.MarginLevel,
		TotalMarginUsed:  pos.TotalMarginUsed,
	})
	s.position = nil

	s.logger.Debug("closed position",
		zap.String("reason", string(reason)),
		zap.Float64("price", price),
		zap.Float64("pnl_percent", pnlPercent),
		zap.Float64("pnl_amount", pnlAmount))
	return true
}

// calculatePnLPercent is the leveraged return on margin of moving from entry to exit.
func calculatePnLPercent(direction Direction, entry, exit float64, leverage int) float64 {
	if entry == 0 {
		return 0
	}
	if direction == DirectionLong {
		return (exit - entry) / entry * 100 * float64(leverage)
	}
	return (entry - exit) / entry * 100 * float64(leverage)
}
