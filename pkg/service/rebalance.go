package service

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"settlement_back/models"
	"settlement_back/pkg/chainclient"
)

// RebalanceService keeps the hot wallet inside its configured band.
// waiting is always caller-supplied (the sum of PENDING withdrawal
// amounts) so the rebalancing cadence stays decoupled from the ledger
// query cadence.
type RebalanceService struct {
	chain          ChainClient
	alerter        Alerter
	hotAddress     string
	reserveAddress string
	minThreshold   int64
	maxThreshold   int64
}

func NewRebalanceService(chain ChainClient, alerter Alerter, cfg Config) *RebalanceService {
	return &RebalanceService{
		chain:          chain,
		alerter:        alerter,
		hotAddress:     cfg.HotAddress,
		reserveAddress: cfg.ReserveAddress,
		minThreshold:   cfg.MinThreshold,
		maxThreshold:   cfg.MaxThreshold,
	}
}

// limit is the symmetric midpoint of the band, the target balance both
// paths steer toward.
func (s *RebalanceService) limit() int64 {
	return (s.minThreshold + s.maxThreshold) / 2
}

// CheckSurplus moves the excess above the band to the reserve so the
// projected balance lands exactly on the midpoint. Returns nil when no
// transfer is needed.
func (s *RebalanceService) CheckSurplus(waiting int64) (*models.TransferRequest, error) {
	hot, err := s.chain.QueryBalance(s.hotAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query hot balance")
	}

	if hot-waiting <= s.maxThreshold {
		return nil, nil
	}

	transferValue := hot - waiting - s.limit()
	txID, err := s.chain.SubmitTransaction(s.reserveAddress, transferValue, "reserve rebalance")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to transfer %d to reserve", transferValue)
	}

	if !chainclient.ValidTransactionID(txID) {
		// No retry queue on this path: a malformed id after a
		// reported success goes straight to the operator.
		s.alerter.TransferAnomaly(txID, transferValue)
		return nil, errors.Errorf("reserve transfer of %d returned malformed tx id %q", transferValue, txID)
	}

	logrus.Infof("moved %d clicks to reserve, tx %s", transferValue, txID)
	return &models.TransferRequest{Amount: transferValue, TxID: txID}, nil
}

// CheckDeficit reports how much must come back from the reserve to
// reach the midpoint. It moves no funds itself; the second return value
// is false when the balance is already inside or above the band.
func (s *RebalanceService) CheckDeficit(waiting int64) (int64, bool, error) {
	hot, err := s.chain.QueryBalance(s.hotAddress)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to query hot balance")
	}

	if hot-waiting >= s.minThreshold {
		return 0, false, nil
	}

	deficit := s.limit() - hot + waiting
	return deficit, true, nil
}

func (s *RebalanceService) Snapshot(waiting int64) (models.WalletSnapshot, error) {
	hot, err := s.chain.QueryBalance(s.hotAddress)
	if err != nil {
		return models.WalletSnapshot{}, errors.Wrap(err, "failed to query hot balance")
	}
	return models.WalletSnapshot{
		HotBalance:      hot,
		WaitingPayments: waiting,
		MinThreshold:    s.minThreshold,
		MaxThreshold:    s.maxThreshold,
	}, nil
}
