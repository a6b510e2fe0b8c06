package worker

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"settlement_back/models"
	"settlement_back/pkg/service"
)

// maxAttempts bounds submissions per batch across retries.
const maxAttempts = 5

// Withdrawals is the slice of the settlement service the worker drives.
type Withdrawals interface {
	ProcessBatch(batchID, toAddress string, amount int64, message string) error
	MarkBatchFailed(batchID string) error
	WaitingPayments() (int64, error)
	PendingBatches() ([]models.PendingBatch, error)
}

type Rebalance interface {
	CheckSurplus(waiting int64) (*models.TransferRequest, error)
	CheckDeficit(waiting int64) (int64, bool, error)
}

// BatchJob is one withdrawal batch to submit. The amount is fixed at
// batch creation time, not re-derived from entry sums at processing
// time.
type BatchJob struct {
	BatchID   string
	ToAddress string
	Amount    int64
	Message   string

	attempts int
}

// Worker runs withdrawal batch jobs on a small goroutine pool and the
// rebalancing check on a ticker. Retryable batch failures are
// re-enqueued with spacing so transient network conditions can clear;
// after maxAttempts the batch is failed for good.
type Worker struct {
	withdrawals Withdrawals
	rebalance   Rebalance

	jobs       chan BatchJob
	quit       chan struct{}
	wg         sync.WaitGroup
	retryDelay time.Duration
	tick       time.Duration
}

func New(withdrawals Withdrawals, rebalance Rebalance, retryDelay, tick time.Duration) *Worker {
	return &Worker{
		withdrawals: withdrawals,
		rebalance:   rebalance,
		jobs:        make(chan BatchJob, 64),
		quit:        make(chan struct{}),
		retryDelay:  retryDelay,
		tick:        tick,
	}
}

func (w *Worker) Start(workers int) {
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.loop()
	}

	w.wg.Add(1)
	go w.rebalanceLoop()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.recoverPending()
	}()
}

func (w *Worker) Stop() {
	close(w.quit)
	w.wg.Wait()
}

// EnqueueBatch schedules a batch for processing. Safe to call from any
// goroutine; drops the job if the worker is shutting down. The quit
// check comes first: once the workers have exited, a buffered send
// would park the job where nothing will ever pick it up.
func (w *Worker) EnqueueBatch(job BatchJob) {
	select {
	case <-w.quit:
		logrus.Warnf("worker stopped, dropped batch %s", job.BatchID)
		return
	default:
	}

	select {
	case w.jobs <- job:
	case <-w.quit:
		logrus.Warnf("worker stopping, dropped batch %s", job.BatchID)
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case job := <-w.jobs:
			w.runJob(job)
		case <-w.quit:
			return
		}
	}
}

func (w *Worker) runJob(job BatchJob) {
	err := w.withdrawals.ProcessBatch(job.BatchID, job.ToAddress, job.Amount, job.Message)
	if err == nil {
		return
	}

	if !errors.Is(err, service.ErrRetry) {
		logrus.Errorf("batch %s: %v", job.BatchID, err)
		return
	}

	job.attempts++
	if job.attempts >= maxAttempts {
		logrus.Errorf("batch %s exhausted %d attempts", job.BatchID, maxAttempts)
		if err := w.withdrawals.MarkBatchFailed(job.BatchID); err != nil {
			logrus.Errorf("batch %s: exhaustion fallback failed: %v", job.BatchID, err)
		}
		return
	}

	logrus.Warnf("batch %s attempt %d/%d, retrying in %s", job.BatchID, job.attempts, maxAttempts, w.retryDelay)
	time.AfterFunc(w.retryDelay, func() { w.EnqueueBatch(job) })
}

// recoverPending re-enqueues every batch the ledger still holds in
// PENDING. A batch enqueued before a crash would otherwise wait forever
// with no exhaustion fallback ever firing. The amount comes from the
// ledger's debit entries, the only record that survives a restart.
func (w *Worker) recoverPending() {
	batches, err := w.withdrawals.PendingBatches()
	if err != nil {
		logrus.Errorf("failed to recover pending batches: %v", err)
		return
	}

	for _, batch := range batches {
		logrus.Infof("recovered pending batch %s for %d clicks", batch.BatchID, batch.Amount)
		w.EnqueueBatch(BatchJob{
			BatchID:   batch.BatchID,
			ToAddress: batch.AddressTo,
			Amount:    batch.Amount,
			Message:   "payout " + batch.BatchID,
		})
	}
}

func (w *Worker) rebalanceLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.rebalanceTick()
		case <-w.quit:
			return
		}
	}
}

func (w *Worker) rebalanceTick() {
	waiting, err := w.withdrawals.WaitingPayments()
	if err != nil {
		logrus.Errorf("rebalance: failed to sum pending withdrawals: %v", err)
		return
	}

	if deficit, short, err := w.rebalance.CheckDeficit(waiting); err != nil {
		logrus.Errorf("rebalance: deficit check failed: %v", err)
	} else if short {
		logrus.Warnf("hot wallet deficit: %d clicks must come back from reserve", deficit)
	}

	if req, err := w.rebalance.CheckSurplus(waiting); err != nil {
		logrus.Errorf("rebalance: surplus check failed: %v", err)
	} else if req != nil {
		logrus.Infof("rebalance: transferred %d clicks to reserve, tx %s", req.Amount, req.TxID)
	}
}
