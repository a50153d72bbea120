package models

import "time"

// BacktestRun is the persisted summary of one backtest over one symbol.
type BacktestRun struct {
	ID        uint   `gorm:"primaryKey"`
	RunKey    string `gorm:"uniqueIndex;size:36;not null"`
	Symbol    string `gorm:"index;not null"`
	TimeFrame string `gorm:"not null"`
	Direction string `gorm:"not null"`

	StartTime time.Time `gorm:"index"`
	EndTime   time.Time

	InitialBalance   float64 `gorm:"type:decimal(20,8);not null"`
	FinalBalance     float64 `gorm:"type:decimal(20,8);not null"`
	PercentageReturn float64 `gorm:"type:decimal(20,8)"`
	MaxDrawdown      float64 `gorm:"type:decimal(20,8)"`
	SharpeRatio      float64 `gorm:"type:decimal(20,8)"`
	WinRate          float64 `gorm:"type:decimal(20,8)"`

	TotalTrades   int
	WinningTrades int
	LosingTrades  int

	// YAML of the strategy parameters used
	Parameters string `gorm:"type:text"`

	Trades []BacktestTrade `gorm:"foreignKey:RunID"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// BacktestTrade is one lifecycle event of a run's trade log.
type BacktestTrade struct {
	ID        uint      `gorm:"primaryKey"`
	RunID     uint      `gorm:"index;not null"`
	Action    string    `gorm:"not null"`
	Time      time.Time `gorm:"index;not null"`
	Direction string

	Price     float64 `gorm:"type:decimal(20,8)"`
	OpenPrice float64 `gorm:"type:decimal(20,8)"`
	Quantity  float64 `gorm:"type:decimal(20,8)"`
	Margin    float64 `gorm:"type:decimal(20,8)"`

	Reason           string
	PnLPercent       float64 `gorm:"type:decimal(20,8)"`
	PnLAmount        float64 `gorm:"type:decimal(20,8)"`
	MarginLevelsUsed int
	TotalMarginUsed  float64 `gorm:"type:decimal(20,8)"`
}
