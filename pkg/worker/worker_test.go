package worker

import (
	"sync"
	"testing"
	"time"

	"settlement_back/models"
	"settlement_back/pkg/service"
)

type fakeWithdrawals struct {
	mu           sync.Mutex
	processErr   error
	processCalls int
	processedIDs []string
	failedCalls  int
	pending      []models.PendingBatch
	done         chan struct{}
}

func (f *fakeWithdrawals) ProcessBatch(batchID, toAddress string, amount int64, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processCalls++
	f.processedIDs = append(f.processedIDs, batchID)
	if f.processErr == nil && f.done != nil {
		close(f.done)
		f.done = nil
	}
	return f.processErr
}

func (f *fakeWithdrawals) MarkBatchFailed(batchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedCalls++
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
	return nil
}

func (f *fakeWithdrawals) WaitingPayments() (int64, error) {
	return 0, nil
}

func (f *fakeWithdrawals) PendingBatches() ([]models.PendingBatch, error) {
	return f.pending, nil
}

func (f *fakeWithdrawals) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processCalls, f.failedCalls
}

type fakeRebalance struct{}

func (fakeRebalance) CheckSurplus(waiting int64) (*models.TransferRequest, error) {
	return nil, nil
}

func (fakeRebalance) CheckDeficit(waiting int64) (int64, bool, error) {
	return 0, false, nil
}

func waitOrFail(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish in time")
	}
}

func TestWorkerRunsBatchOnce(t *testing.T) {
	done := make(chan struct{})
	withdrawals := &fakeWithdrawals{done: done}

	w := New(withdrawals, fakeRebalance{}, time.Millisecond, time.Hour)
	w.Start(2)
	defer w.Stop()

	w.EnqueueBatch(BatchJob{BatchID: "b1", ToAddress: "addr", Amount: 100})
	waitOrFail(t, done)

	if calls, failed := withdrawals.counts(); calls != 1 || failed != 0 {
		t.Errorf("expected one processing call and no failure callback, got %d/%d", calls, failed)
	}
}

func TestWorkerRetriesUntilExhaustion(t *testing.T) {
	done := make(chan struct{})
	withdrawals := &fakeWithdrawals{processErr: service.ErrRetry, done: done}

	w := New(withdrawals, fakeRebalance{}, time.Millisecond, time.Hour)
	w.Start(1)
	defer w.Stop()

	w.EnqueueBatch(BatchJob{BatchID: "b1", ToAddress: "addr", Amount: 100})
	waitOrFail(t, done)

	calls, failed := withdrawals.counts()
	if calls != 5 {
		t.Errorf("expected 5 attempts, got %d", calls)
	}
	if failed != 1 {
		t.Errorf("expected exactly one exhaustion callback, got %d", failed)
	}
}

func TestWorkerRecoversPendingBatchesOnStart(t *testing.T) {
	done := make(chan struct{})
	withdrawals := &fakeWithdrawals{
		pending: []models.PendingBatch{{BatchID: "stranded", AddressTo: "addr", Amount: 250}},
		done:    done,
	}

	w := New(withdrawals, fakeRebalance{}, time.Millisecond, time.Hour)
	w.Start(1)
	defer w.Stop()

	waitOrFail(t, done)

	withdrawals.mu.Lock()
	defer withdrawals.mu.Unlock()
	if len(withdrawals.processedIDs) != 1 || withdrawals.processedIDs[0] != "stranded" {
		t.Errorf("stranded batch not requeued: %v", withdrawals.processedIDs)
	}
}

func TestEnqueueAfterStopDropsJob(t *testing.T) {
	withdrawals := &fakeWithdrawals{}

	w := New(withdrawals, fakeRebalance{}, time.Millisecond, time.Hour)
	w.Start(1)
	w.Stop()

	// The buffered channel would still accept the send; the job must be
	// dropped instead of parked where no worker will ever read it.
	w.EnqueueBatch(BatchJob{BatchID: "late", ToAddress: "addr", Amount: 100})

	if n := len(w.jobs); n != 0 {
		t.Errorf("job buffered after shutdown: %d queued", n)
	}
	if calls, _ := withdrawals.counts(); calls != 0 {
		t.Errorf("job ran after shutdown: %d calls", calls)
	}
}

func TestWorkerFatalErrorNoRetry(t *testing.T) {
	withdrawals := &fakeWithdrawals{processErr: service.ErrInsufficientFunds}

	w := New(withdrawals, fakeRebalance{}, time.Millisecond, time.Hour)
	w.Start(1)

	w.EnqueueBatch(BatchJob{BatchID: "b1", ToAddress: "addr", Amount: 100})
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	if calls, failed := withdrawals.counts(); calls != 1 || failed != 0 {
		t.Errorf("non-retry error must not re-run: got %d calls, %d failures", calls, failed)
	}
}
