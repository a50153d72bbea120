package repositories

import (
	"MartingaleBot/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

const priceBatchSize = 500

type PriceRepository struct {
	db *gorm.DB
}

// NewPriceRepository creates a new instance of PriceRepository
func NewPriceRepository(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Create adds a new Price record to the database
func (r *PriceRepository) Create(price *models.Price) error {
	if price == nil {
		return errors.New("price cannot be nil")
	}
	return r.db.Create(price).Error
}

// GetPricesByTimeFrame gets price data for a specific symbol and timeframe, oldest first
func (r *PriceRepository) GetPricesByTimeFrame(symbol string, timeFrame string, start, end time.Time) ([]models.Price, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}

	var prices []models.Price
	err := r.pricesByTimeFrame(symbol, timeFrame, start, end).Find(&prices).Error
	return prices, err
}

func (r *PriceRepository) pricesByTimeFrame(symbol, timeFrame string, start, end time.Time) *gorm.DB {
	return rangeQuery(r.db, symbol, timeFrame, start, end).Order("open_time ASC")
}

// GetLatestPriceByTimeFrame gets the most recent price for a symbol and timeframe
func (r *PriceRepository) GetLatestPriceByTimeFrame(symbol, timeFrame string) (*models.Price, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}

	var price models.Price
	err := r.db.Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Order("open_time DESC").
		First(&price).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &price, err
}

// ReplaceRange swaps the stored candles of [start, end] for prices in one
// transaction, so a failed insert leaves the previous candles in place.
func (r *PriceRepository) ReplaceRange(symbol, timeFrame string, start, end time.Time, prices []models.Price) error {
	if symbol == "" || timeFrame == "" {
		return errors.New("invalid symbol or timeframe")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := rangeQuery(tx, symbol, timeFrame, start, end).Delete(&models.Price{}).Error; err != nil {
			return err
		}
		if len(prices) == 0 {
			return nil
		}
		return tx.CreateInBatches(prices, priceBatchSize).Error
	})
}

func rangeQuery(db *gorm.DB, symbol, timeFrame string, start, end time.Time) *gorm.DB {
	return db.Where("symbol = ? AND time_frame = ? AND open_time BETWEEN ? AND ?",
		symbol, timeFrame, start, end)
}
