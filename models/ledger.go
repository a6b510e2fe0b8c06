package models

import "time"

// LedgerEntry statuses. PENDING is the only non-terminal state.
const (
	StatusPending  = "PENDING"
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
	StatusNetError = "NET_ERROR"
	StatusSysError = "SYS_ERROR"
	StatusCanceled = "CANCELED"
)

const (
	TypeDeposit    = "DEPOSIT"
	TypeWithdrawal = "WITHDRAWAL"
	TypeOther      = "OTHER"
)

// LedgerEntry is one balance movement in the append-only audit trail.
// Amount is in clicks, the smallest currency unit: positive is a credit,
// negative a debit. Amount never changes after creation; only status and
// tx_id transition.
type LedgerEntry struct {
	ID          int64     `db:"id" json:"id"`
	AccountID   int64     `db:"account_id" json:"account_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Type        string    `db:"type" json:"type"`
	Status      string    `db:"status" json:"status"`
	BatchID     *string   `db:"batch_id" json:"batch_id,omitempty"`
	TxID        *string   `db:"tx_id" json:"tx_id,omitempty"` // set once the batch is ACCEPTED
	AddressTo   string    `db:"address_to" json:"address_to"`
	AddressFrom string    `db:"address_from" json:"address_from"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PendingBatch is a withdrawal batch still awaiting submission, as
// recovered from the ledger. The amount is the sum of the batch's
// PENDING debit entries.
type PendingBatch struct {
	BatchID   string `db:"batch_id" json:"batch_id"`
	AddressTo string `db:"address_to" json:"address_to"`
	Amount    int64  `db:"amount" json:"amount"`
}

// FeeRecord is the aggregate license fee taken from one inbound network
// payment, with its value converted to the billing currency at settlement
// time.
type FeeRecord struct {
	ID            int64     `db:"id" json:"id"`
	InboundTxID   string    `db:"inbound_tx_id" json:"inbound_tx_id"`
	LicenseAmount int64     `db:"license_amount" json:"license_amount"`
	FiatValue     float64   `db:"fiat_value" json:"fiat_value"`
	Currency      string    `db:"currency" json:"currency"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
