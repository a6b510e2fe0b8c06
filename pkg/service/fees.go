package service

import (
	"math"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"settlement_back/models"
	"settlement_back/pkg/repository"
)

// rateScale is the fixed-point denominator for fee rates. Rates are
// single-digit percents in practice; scaling to 1e9 keeps the
// float-to-integer conversion exact for them.
const rateScale = 1_000_000_000

type FeeService struct {
	repo     repository.Ledger
	rates    Rates
	currency string
}

func NewFeeService(repo repository.Ledger, rates Rates, currency string) *FeeService {
	return &FeeService{repo: repo, rates: rates, currency: currency}
}

// Distribute runs the fee waterfall over one batch of valued events
// tied to an inbound payment: license fee first, operator fee on the
// remainder, residual credited to the owning beneficiary. An empty
// batch is a valid outcome, not an error.
//
// Side effects: one DEPOSIT ledger entry per beneficiary with a
// non-zero credit and one aggregate fee record for the license total.
func (s *FeeService) Distribute(events []models.ValuedEvent, licenseRate, operatorRate float64, inboundTxID string) (models.DistributionResult, error) {
	result := models.DistributionResult{Credits: make(map[int64]int64)}

	if licenseRate < 0 || licenseRate > 1 || operatorRate < 0 || operatorRate > 1 {
		return result, errors.Errorf("fee rates must be in [0,1], got license=%v operator=%v", licenseRate, operatorRate)
	}

	for _, event := range events {
		if event.Value < 0 {
			return result, errors.Errorf("event value must be non-negative, got %d for beneficiary %d", event.Value, event.BeneficiaryID)
		}
		licenseFee := floorFee(event.Value, licenseRate)
		operatorFee := floorFee(event.Value-licenseFee, operatorRate)

		result.LicenseTotal += licenseFee
		result.OperatorTotal += operatorFee
		result.Credits[event.BeneficiaryID] += event.Value - licenseFee - operatorFee
	}

	if len(events) == 0 {
		return result, nil
	}

	// Settlement never proceeds on a guessed rate.
	rate, err := s.rates.FetchRate(time.Now())
	if err != nil {
		return result, errors.Wrap(err, "cannot settle fee batch")
	}

	for beneficiaryID, credit := range result.Credits {
		if credit == 0 {
			continue
		}
		entry := models.LedgerEntry{
			AccountID: beneficiaryID,
			Amount:    credit,
			Type:      models.TypeDeposit,
			Status:    models.StatusAccepted,
		}
		if _, err := s.repo.CreateEntry(entry); err != nil {
			return result, errors.Wrapf(err, "failed to credit beneficiary %d", beneficiaryID)
		}
	}

	record := models.FeeRecord{
		InboundTxID:   inboundTxID,
		LicenseAmount: result.LicenseTotal,
		FiatValue:     float64(result.LicenseTotal) * rate.Value,
		Currency:      s.currency,
	}
	if _, err := s.repo.CreateFeeRecord(record); err != nil {
		return result, errors.Wrap(err, "failed to record license fee")
	}

	logrus.Infof("distributed %d events for %s: license=%d operator=%d beneficiaries=%d",
		len(events), inboundTxID, result.LicenseTotal, result.OperatorTotal, len(result.Credits))

	return result, nil
}

// floorFee computes floor(rate * value) without going through binary
// floating point on the amount: the rate is converted to a 1e9
// fixed-point integer once, then multiply-and-truncate runs on big
// integers.
func floorFee(value int64, rate float64) int64 {
	scaled := big.NewInt(int64(math.Round(rate * rateScale)))
	product := new(big.Int).Mul(big.NewInt(value), scaled)
	return new(big.Int).Quo(product, big.NewInt(rateScale)).Int64()
}
