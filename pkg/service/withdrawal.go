package service

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"settlement_back/models"
	"settlement_back/pkg/chainclient"
	"settlement_back/pkg/repository"
)

// ErrRetry signals the worker that the batch submission hit a transient
// network condition and should be re-attempted. Entries stay PENDING in
// the meantime.
var ErrRetry = errors.New("withdrawal batch submission should be retried")

var ErrInsufficientFunds = errors.New("insufficient funds")

type WithdrawalService struct {
	repo    repository.Ledger
	chain   ChainClient
	alerter Alerter
}

func NewWithdrawalService(repo repository.Ledger, chain ChainClient, alerter Alerter) *WithdrawalService {
	return &WithdrawalService{repo: repo, chain: chain, alerter: alerter}
}

// ProcessBatch drains one withdrawal batch: exactly one external
// submission per invocation, with the whole batch transitioning
// together. Safe to re-invoke: a batch that is missing or already
// resolved is a silent no-op, never double-submitted.
func (s *WithdrawalService) ProcessBatch(batchID, toAddress string, amount int64, message string) error {
	entries, err := s.repo.EntriesByBatch(batchID)
	if err != nil {
		return errors.Wrapf(err, "failed to load batch %s", batchID)
	}

	representative, ok := pendingRepresentative(entries)
	if !ok {
		logrus.Infof("batch %s already handled or unknown, skipping", batchID)
		return nil
	}

	// Rejection before any network side effect. The available balance
	// already carries every PENDING hold including this batch's own, so
	// the batch's hold is added back before comparing against amount.
	// Two batches competing for the same funds both fail this check;
	// neither is allowed to pay out what the other may already have.
	available, err := s.repo.AvailableBalance(representative.AccountID)
	if err != nil {
		return errors.Wrapf(err, "failed to read balance for account %d", representative.AccountID)
	}
	var hold int64
	for _, entry := range entries {
		if entry.Status == models.StatusPending {
			hold -= entry.Amount
		}
	}
	if available+hold < amount {
		if _, err := s.repo.ResolveBatch(batchID, models.StatusRejected, nil); err != nil {
			return errors.Wrapf(err, "failed to reject batch %s", batchID)
		}
		logrus.Warnf("batch %s rejected: available %d below %d", batchID, available+hold, amount)
		return nil
	}

	txID, err := s.chain.SubmitTransaction(toAddress, amount, message)
	if err != nil {
		return s.resolveFailure(batchID, err)
	}

	if !chainclient.ValidTransactionID(txID) {
		// A success response carrying a malformed id means a bug
		// somewhere, not a transient fault. Retrying could
		// double-submit.
		if _, err := s.repo.ResolveBatch(batchID, models.StatusSysError, nil); err != nil {
			return errors.Wrapf(err, "failed to flag batch %s", batchID)
		}
		s.alerter.BatchAnomaly(batchID, txID)
		logrus.Errorf("batch %s: network accepted but returned malformed tx id %q", batchID, txID)
		return nil
	}

	if _, err := s.repo.ResolveBatch(batchID, models.StatusAccepted, &txID); err != nil {
		return errors.Wrapf(err, "failed to accept batch %s", batchID)
	}
	logrus.Infof("batch %s accepted, tx %s", batchID, txID)
	return nil
}

func (s *WithdrawalService) resolveFailure(batchID string, submitErr error) error {
	var apiErr *chainclient.APIError
	if errors.As(submitErr, &apiErr) && apiErr.Retryable() {
		logrus.Warnf("batch %s hit transient condition %s, leaving PENDING", batchID, apiErr.Code)
		return errors.Wrapf(ErrRetry, "batch %s: %v", batchID, submitErr)
	}

	if _, err := s.repo.ResolveBatch(batchID, models.StatusNetError, nil); err != nil {
		return errors.Wrapf(err, "failed to fail batch %s", batchID)
	}
	logrus.Errorf("batch %s failed permanently: %v", batchID, submitErr)
	return nil
}

// MarkBatchFailed is the retry-exhaustion fallback: whatever is still
// PENDING in the batch becomes NET_ERROR so no batch waits forever.
func (s *WithdrawalService) MarkBatchFailed(batchID string) error {
	moved, err := s.repo.ResolveBatch(batchID, models.StatusNetError, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to mark batch %s failed", batchID)
	}
	if moved > 0 {
		logrus.Errorf("batch %s failed after retry exhaustion, %d entries marked NET_ERROR", batchID, moved)
	}
	return nil
}

// RequestWithdrawal creates a PENDING withdrawal batch for an account
// and returns its batch id. The debit is held immediately: it counts
// against the available balance of every later request, so a second
// full-balance withdrawal fails here instead of double-paying later.
// Processing happens asynchronously.
func (s *WithdrawalService) RequestWithdrawal(accountID int64, toAddress string, amount int64) (string, error) {
	if amount <= 0 {
		return "", errors.New("withdrawal amount must be positive")
	}
	if !chainclient.ValidAddress(toAddress) {
		return "", errors.Errorf("invalid destination address %q", toAddress)
	}

	available, err := s.repo.AvailableBalance(accountID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read balance for account %d", accountID)
	}
	if available < amount {
		return "", ErrInsufficientFunds
	}

	batchID, err := newBatchID()
	if err != nil {
		return "", err
	}

	entries := []models.LedgerEntry{{
		AccountID: accountID,
		Amount:    -amount,
		Type:      models.TypeWithdrawal,
		Status:    models.StatusPending,
		BatchID:   &batchID,
		AddressTo: toAddress,
	}}
	if err := s.repo.CreateWithdrawalBatch(entries); err != nil {
		return "", errors.Wrap(err, "failed to create withdrawal batch")
	}

	logrus.Infof("account %d requested withdrawal of %d to %s, batch %s", accountID, amount, toAddress, batchID)
	return batchID, nil
}

func (s *WithdrawalService) CancelWithdrawal(accountID, entryID int64) error {
	return s.repo.CancelEntry(accountID, entryID)
}

func (s *WithdrawalService) EntriesByAccount(accountID int64) ([]models.LedgerEntry, error) {
	return s.repo.EntriesByAccount(accountID)
}

func (s *WithdrawalService) WaitingPayments() (int64, error) {
	return s.repo.SumPendingWithdrawals()
}

// PendingBatches lists withdrawal batches still awaiting submission so
// the worker can rebuild its queue after a restart.
func (s *WithdrawalService) PendingBatches() ([]models.PendingBatch, error) {
	return s.repo.PendingBatches()
}

// pendingRepresentative picks the entry the idempotency guard inspects.
// CANCELED entries are skipped defensively: an owner may cancel after
// scheduling, and a canceled entry must never come back to PENDING.
func pendingRepresentative(entries []models.LedgerEntry) (models.LedgerEntry, bool) {
	for _, entry := range entries {
		if entry.Status == models.StatusPending {
			return entry, true
		}
	}
	return models.LedgerEntry{}, false
}

func newBatchID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate batch id")
	}
	return hex.EncodeToString(buf), nil
}
