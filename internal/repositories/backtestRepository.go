package repositories

import (
	"MartingaleBot/internal/models"
	"errors"

	"gorm.io/gorm"
)

type BacktestRepository struct {
	db *gorm.DB
}

// NewBacktestRepository creates a new instance of BacktestRepository
func NewBacktestRepository(db *gorm.DB) *BacktestRepository {
	return &BacktestRepository{db: db}
}

// SaveRun stores the run summary and its trade log in one transaction
func (r *BacktestRepository) SaveRun(run *models.BacktestRun) error {
	if run == nil {
		return errors.New("backtest run cannot be nil")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		trades := run.Trades
		run.Trades = nil

		if err := tx.Create(run).Error; err != nil {
			return err
		}
		for i := range trades {
			trades[i].RunID = run.ID
		}
		if len(trades) > 0 {
			if err := tx.CreateInBatches(trades, priceBatchSize).Error; err != nil {
				return err
			}
		}

		run.Trades = trades
		return nil
	})
}

// FindByID retrieves a run with its trade log
func (r *BacktestRepository) FindByID(id uint) (*models.BacktestRun, error) {
	if id == 0 {
		return nil, errors.New("invalid id")
	}
	var run models.BacktestRun
	err := r.db.Preload("Trades", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &run, err
}

// FindRunsBySymbol lists run summaries for a symbol, newest first
func (r *BacktestRepository) FindRunsBySymbol(symbol string) ([]models.BacktestRun, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}
	var runs []models.BacktestRun
	err := r.runsBySymbol(symbol).Find(&runs).Error
	return runs, err
}

func (r *BacktestRepository) runsBySymbol(symbol string) *gorm.DB {
	return r.db.Where("symbol = ?", symbol).Order("created_at DESC")
}
