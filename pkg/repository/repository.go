package repository

import (
	"time"

	"github.com/jmoiron/sqlx"

	"settlement_back/models"
)

// Ledger is the durable record of every balance movement. Entries are
// append-only; only status and tx_id ever change, and batch transitions
// move all PENDING entries of a batch in one statement.
type Ledger interface {
	CreateEntry(entry models.LedgerEntry) (int64, error)
	CreateWithdrawalBatch(entries []models.LedgerEntry) error
	EntriesByBatch(batchID string) ([]models.LedgerEntry, error)
	EntriesByAccount(accountID int64) ([]models.LedgerEntry, error)
	ResolveBatch(batchID, status string, txID *string) (int64, error)
	CancelEntry(accountID, entryID int64) error
	AvailableBalance(accountID int64) (int64, error)
	PendingBatches() ([]models.PendingBatch, error)
	SumPendingWithdrawals() (int64, error)
	CreateFeeRecord(rec models.FeeRecord) (int64, error)
}

// Rate persists exchange rates per currency and hour bucket.
type Rate interface {
	GetRate(currency string, bucket time.Time) (*models.ExchangeRate, error)
	SaveRate(rate models.ExchangeRate) error
}

type Repository struct {
	Ledger
	Rate
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		Ledger: NewLedgerPostgres(db),
		Rate:   NewRatePostgres(db),
	}
}
