package repository

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"settlement_back/models"
)

type RatePostgres struct {
	db *sqlx.DB
}

func NewRatePostgres(db *sqlx.DB) *RatePostgres {
	return &RatePostgres{db: db}
}

// GetRate returns the persisted rate for the hour bucket, or nil when
// none was written yet. A stored rate is trusted as-is.
func (r *RatePostgres) GetRate(currency string, bucket time.Time) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	query := `SELECT * FROM exchange_rates WHERE currency = $1 AND valid_at = $2`
	err := r.db.Get(&rate, query, currency, bucket)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *RatePostgres) SaveRate(rate models.ExchangeRate) error {
	query := `
        INSERT INTO exchange_rates (currency, value, valid_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (currency, valid_at) DO NOTHING
    `
	_, err := r.db.Exec(query, rate.Currency, rate.Value, rate.ValidAt)
	return err
}
