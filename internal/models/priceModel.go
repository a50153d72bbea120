package models

import (
	"time"
)

type Price struct {
	ID         uint      `gorm:"primaryKey"`
	Symbol     string    `gorm:"index;not null"`
	TimeFrame  string    `gorm:"not null"`
	OpenTime   time.Time `gorm:"index;not null"`
	CloseTime  time.Time `gorm:"index"`
	Open       float64   `gorm:"type:decimal(20,8)"`
	Close      float64   `gorm:"type:decimal(20,8)"`
	High       float64   `gorm:"type:decimal(20,8)"`
	Low        float64   `gorm:"type:decimal(20,8)"`
	Volume     float64   `gorm:"type:decimal(20,8)"`
	TradeCount int64
}

const (
	PriceTimeFrame1m  = "1m"
	PriceTimeFrame5m  = "5m"
	PriceTimeFrame15m = "15m"
	PriceTimeFrame1h  = "1h"
	PriceTimeFrame4h  = "4h"
)

// TimeFrameDuration returns the bar length of a Binance interval, 0 if unknown.
func TimeFrameDuration(timeFrame string) time.Duration {
	switch timeFrame {
	case PriceTimeFrame1m:
		return time.Minute
	case PriceTimeFrame5m:
		return 5 * time.Minute
	case PriceTimeFrame15m:
		return 15 * time.Minute
	case PriceTimeFrame1h:
		return time.Hour
	case PriceTimeFrame4h:
		return 4 * time.Hour
	}
	return 0
}

// TableName sets the table name for Price model
func (Price) TableName() string {
	return "prices"
}
