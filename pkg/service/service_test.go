package service

import (
	"time"

	"settlement_back/models"
	"settlement_back/pkg/repository"
)

// In-memory stand-ins for the postgres repositories and the network
// client, shared by the service tests.

type fakeLedger struct {
	entries    []*models.LedgerEntry
	feeRecords []models.FeeRecord
	nextID     int64
}

func (f *fakeLedger) CreateEntry(entry models.LedgerEntry) (int64, error) {
	f.nextID++
	entry.ID = f.nextID
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, &entry)
	return entry.ID, nil
}

func (f *fakeLedger) CreateWithdrawalBatch(entries []models.LedgerEntry) error {
	for _, entry := range entries {
		if _, err := f.CreateEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLedger) EntriesByBatch(batchID string) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, entry := range f.entries {
		if entry.BatchID != nil && *entry.BatchID == batchID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeLedger) EntriesByAccount(accountID int64) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, entry := range f.entries {
		if entry.AccountID == accountID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (f *fakeLedger) ResolveBatch(batchID, status string, txID *string) (int64, error) {
	var moved int64
	for _, entry := range f.entries {
		if entry.BatchID == nil || *entry.BatchID != batchID || entry.Status != models.StatusPending {
			continue
		}
		entry.Status = status
		if txID != nil {
			entry.TxID = txID
		}
		moved++
	}
	return moved, nil
}

func (f *fakeLedger) CancelEntry(accountID, entryID int64) error {
	for _, entry := range f.entries {
		if entry.ID == entryID && entry.AccountID == accountID && entry.Status == models.StatusPending {
			entry.Status = models.StatusCanceled
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeLedger) AvailableBalance(accountID int64) (int64, error) {
	var sum int64
	for _, entry := range f.entries {
		if entry.AccountID != accountID {
			continue
		}
		settled := entry.Status == models.StatusAccepted
		held := entry.Status == models.StatusPending && entry.Type == models.TypeWithdrawal
		if settled || held {
			sum += entry.Amount
		}
	}
	return sum, nil
}

func (f *fakeLedger) PendingBatches() ([]models.PendingBatch, error) {
	index := make(map[string]int)
	var out []models.PendingBatch
	for _, entry := range f.entries {
		if entry.Type != models.TypeWithdrawal || entry.Status != models.StatusPending || entry.BatchID == nil {
			continue
		}
		if i, ok := index[*entry.BatchID]; ok {
			out[i].Amount += -entry.Amount
			continue
		}
		index[*entry.BatchID] = len(out)
		out = append(out, models.PendingBatch{
			BatchID:   *entry.BatchID,
			AddressTo: entry.AddressTo,
			Amount:    -entry.Amount,
		})
	}
	return out, nil
}

func (f *fakeLedger) SumPendingWithdrawals() (int64, error) {
	var sum int64
	for _, entry := range f.entries {
		if entry.Type == models.TypeWithdrawal && entry.Status == models.StatusPending {
			sum += -entry.Amount
		}
	}
	return sum, nil
}

func (f *fakeLedger) CreateFeeRecord(rec models.FeeRecord) (int64, error) {
	f.feeRecords = append(f.feeRecords, rec)
	return int64(len(f.feeRecords)), nil
}

func (f *fakeLedger) entryByID(id int64) *models.LedgerEntry {
	for _, entry := range f.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

type submission struct {
	toAddress string
	amount    int64
	message   string
}

type fakeChain struct {
	balance    int64
	balanceErr error
	submitTxID string
	submitErr  error
	submits    []submission
}

func (f *fakeChain) SubmitTransaction(toAddress string, amount int64, message string) (string, error) {
	f.submits = append(f.submits, submission{toAddress: toAddress, amount: amount, message: message})
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitTxID, nil
}

func (f *fakeChain) QueryBalance(address string) (int64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, nil
}

type fakeAlerter struct {
	batchAnomalies    []string
	transferAnomalies []string
}

func (f *fakeAlerter) BatchAnomaly(batchID, txID string) {
	f.batchAnomalies = append(f.batchAnomalies, batchID)
}

func (f *fakeAlerter) TransferAnomaly(txID string, amount int64) {
	f.transferAnomalies = append(f.transferAnomalies, txID)
}

type fakeRates struct {
	rate  models.ExchangeRate
	err   error
	calls int
}

func (f *fakeRates) FetchRate(at time.Time) (models.ExchangeRate, error) {
	f.calls++
	if f.err != nil {
		return models.ExchangeRate{}, f.err
	}
	return f.rate, nil
}
