package models

import "time"

// ExchangeRate converts clicks to a billing currency. A rate is only
// usable within the hour bucket of ValidAt.
type ExchangeRate struct {
	ID       int64     `db:"id" json:"id"`
	Currency string    `db:"currency" json:"currency"`
	Value    float64   `db:"value" json:"value"`
	ValidAt  time.Time `db:"valid_at" json:"valid_at"`
}

type ConvertRequest struct {
	Amount int64 `json:"amount" binding:"required"` // clicks
}

type ConvertResponse struct {
	ConvertedAmount float64 `json:"converted_amount"`
	Currency        string  `json:"currency"`
	Rate            float64 `json:"rate"`
}
