package service

import (
	"time"

	"settlement_back/models"
	"settlement_back/pkg/repository"
)

// ChainClient is the contract the engine requires from the external
// ledger network. The engine never mutates the network balance
// directly; it observes it and requests movements.
type ChainClient interface {
	SubmitTransaction(toAddress string, amount int64, message string) (string, error)
	QueryBalance(address string) (int64, error)
}

// Alerter surfaces anomalies that need an operator: protocol
// inconsistencies are never auto-retried, someone has to look.
type Alerter interface {
	BatchAnomaly(batchID, txID string)
	TransferAnomaly(txID string, amount int64)
}

type Fees interface {
	Distribute(events []models.ValuedEvent, licenseRate, operatorRate float64, inboundTxID string) (models.DistributionResult, error)
}

type Withdrawals interface {
	ProcessBatch(batchID, toAddress string, amount int64, message string) error
	MarkBatchFailed(batchID string) error
	RequestWithdrawal(accountID int64, toAddress string, amount int64) (string, error)
	CancelWithdrawal(accountID, entryID int64) error
	EntriesByAccount(accountID int64) ([]models.LedgerEntry, error)
	WaitingPayments() (int64, error)
	PendingBatches() ([]models.PendingBatch, error)
}

type Rebalance interface {
	CheckSurplus(waiting int64) (*models.TransferRequest, error)
	CheckDeficit(waiting int64) (int64, bool, error)
	Snapshot(waiting int64) (models.WalletSnapshot, error)
}

type Rates interface {
	FetchRate(at time.Time) (models.ExchangeRate, error)
}

// Config carries the settlement parameters loaded in main. Main fails
// fast when MinThreshold > MaxThreshold.
type Config struct {
	HotAddress      string
	ReserveAddress  string
	MinThreshold    int64
	MaxThreshold    int64
	Currency        string
	RateProviderURL string
	RateProviderKey string
}

type Service struct {
	Fees
	Withdrawals
	Rebalance
	Rates
}

func NewService(repos *repository.Repository, chain ChainClient, alerter Alerter, cfg Config) *Service {
	rates := NewRateService(repos.Rate, cfg.RateProviderURL, cfg.RateProviderKey, cfg.Currency)
	return &Service{
		Fees:        NewFeeService(repos.Ledger, rates, cfg.Currency),
		Withdrawals: NewWithdrawalService(repos.Ledger, chain, alerter),
		Rebalance:   NewRebalanceService(chain, alerter, cfg),
		Rates:       rates,
	}
}
