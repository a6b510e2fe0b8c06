package repository

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"settlement_back/models"
)

var ErrNotFound = errors.New("ledger entry not found")

type LedgerPostgres struct {
	db *sqlx.DB
}

func NewLedgerPostgres(db *sqlx.DB) *LedgerPostgres {
	return &LedgerPostgres{db: db}
}

func (r *LedgerPostgres) CreateEntry(entry models.LedgerEntry) (int64, error) {
	var id int64
	query := `
        INSERT INTO ledger_entries (account_id, amount, type, status, batch_id, tx_id, address_to, address_from)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	err := r.db.QueryRow(
		query,
		entry.AccountID,
		entry.Amount,
		entry.Type,
		entry.Status,
		entry.BatchID,
		entry.TxID,
		entry.AddressTo,
		entry.AddressFrom,
	).Scan(&id)
	return id, err
}

// CreateWithdrawalBatch inserts all entries of one batch in a single
// database transaction so a batch never becomes visible half-created.
func (r *LedgerPostgres) CreateWithdrawalBatch(entries []models.LedgerEntry) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}

	query := `
        INSERT INTO ledger_entries (account_id, amount, type, status, batch_id, address_to, address_from)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	for _, entry := range entries {
		if _, err := tx.Exec(query,
			entry.AccountID,
			entry.Amount,
			entry.Type,
			entry.Status,
			entry.BatchID,
			entry.AddressTo,
			entry.AddressFrom,
		); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "failed to insert batch entry")
		}
	}

	return tx.Commit()
}

func (r *LedgerPostgres) EntriesByBatch(batchID string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := `SELECT * FROM ledger_entries WHERE batch_id = $1 ORDER BY id`
	err := r.db.Select(&entries, query, batchID)
	return entries, err
}

func (r *LedgerPostgres) EntriesByAccount(accountID int64) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := `SELECT * FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC`
	err := r.db.Select(&entries, query, accountID)
	return entries, err
}

// ResolveBatch moves every still-PENDING entry of a batch to status in
// one statement. Entries canceled by their owner in the meantime are
// left untouched. Returns the number of entries moved.
func (r *LedgerPostgres) ResolveBatch(batchID, status string, txID *string) (int64, error) {
	query := `
        UPDATE ledger_entries
        SET status = $2, tx_id = COALESCE($3, tx_id), updated_at = now()
        WHERE batch_id = $1 AND status = $4
    `
	res, err := r.db.Exec(query, batchID, status, txID, models.StatusPending)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to resolve batch %s", batchID)
	}
	return res.RowsAffected()
}

// CancelEntry cancels a PENDING entry on behalf of its owner. Scoped by
// account id so one account cannot cancel another's withdrawal.
func (r *LedgerPostgres) CancelEntry(accountID, entryID int64) error {
	query := `
        UPDATE ledger_entries
        SET status = $3, updated_at = now()
        WHERE id = $1 AND account_id = $2 AND status = $4
    `
	res, err := r.db.Exec(query, entryID, accountID, models.StatusCanceled, models.StatusPending)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AvailableBalance is what an account can still spend: the sum of its
// ACCEPTED entries plus its PENDING withdrawal debits. A withdrawal
// holds its amount from the moment it is requested, not from the moment
// it settles.
func (r *LedgerPostgres) AvailableBalance(accountID int64) (int64, error) {
	var sum int64
	query := `
        SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
        WHERE account_id = $1 AND (status = $2 OR (status = $3 AND type = $4))
    `
	err := r.db.Get(&sum, query, accountID, models.StatusAccepted, models.StatusPending, models.TypeWithdrawal)
	return sum, err
}

// PendingBatches lists the withdrawal batches still awaiting submission,
// with each batch's amount re-derived from its debit entries. Used to
// rebuild the work queue after a restart.
func (r *LedgerPostgres) PendingBatches() ([]models.PendingBatch, error) {
	var batches []models.PendingBatch
	query := `
        SELECT batch_id, address_to, SUM(-amount) AS amount
        FROM ledger_entries
        WHERE type = $1 AND status = $2 AND batch_id IS NOT NULL
        GROUP BY batch_id, address_to
        ORDER BY batch_id
    `
	err := r.db.Select(&batches, query, models.TypeWithdrawal, models.StatusPending)
	return batches, err
}

// SumPendingWithdrawals returns the absolute sum of all PENDING
// withdrawal entries, the engine's outstanding liability toward the
// network.
func (r *LedgerPostgres) SumPendingWithdrawals() (int64, error) {
	var sum int64
	query := `
        SELECT COALESCE(SUM(-amount), 0) FROM ledger_entries
        WHERE type = $1 AND status = $2
    `
	err := r.db.Get(&sum, query, models.TypeWithdrawal, models.StatusPending)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return sum, err
}

func (r *LedgerPostgres) CreateFeeRecord(rec models.FeeRecord) (int64, error) {
	var id int64
	query := `
        INSERT INTO fee_records (inbound_tx_id, license_amount, fiat_value, currency)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	err := r.db.QueryRow(query, rec.InboundTxID, rec.LicenseAmount, rec.FiatValue, rec.Currency).Scan(&id)
	return id, err
}
