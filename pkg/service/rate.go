package service

import (
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"settlement_back/models"
	"settlement_back/pkg/repository"
)

// ErrRateUnavailable means neither the persisted cache nor the provider
// could supply a fresh rate. Callers must not fall back to a default.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

type RateService struct {
	repo        repository.Rate
	client      *resty.Client
	providerURL string
	apiKey      string
	currency    string
}

func NewRateService(repo repository.Rate, providerURL, apiKey, currency string) *RateService {
	return &RateService{
		repo:        repo,
		client:      resty.New().SetTimeout(10 * time.Second),
		providerURL: providerURL,
		apiKey:      apiKey,
		currency:    currency,
	}
}

type providerRate struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
	ValidAt  int64   `json:"valid_at"`
}

// FetchRate resolves the conversion rate for the hour bucket of at.
// The persisted cache wins when present; otherwise the provider is
// asked for that bucket, and its answer is only trusted when it
// actually belongs to the bucket. A stale provider answer is treated
// as no answer at all.
func (s *RateService) FetchRate(at time.Time) (models.ExchangeRate, error) {
	bucket := at.UTC().Truncate(time.Hour)

	cached, err := s.repo.GetRate(s.currency, bucket)
	if err != nil {
		return models.ExchangeRate{}, errors.Wrap(err, "failed to read rate cache")
	}
	if cached != nil {
		return *cached, nil
	}

	var out providerRate
	resp, err := s.client.R().
		SetHeader("X-Api-Key", s.apiKey).
		SetHeader("Accept", "application/json").
		SetQueryParam("currency", s.currency).
		SetQueryParam("at", strconv.FormatInt(bucket.Unix(), 10)).
		SetResult(&out).
		Get(s.providerURL)
	if err != nil {
		return models.ExchangeRate{}, errors.Wrapf(ErrRateUnavailable, "provider request failed: %v", err)
	}
	if resp.IsError() {
		return models.ExchangeRate{}, errors.Wrapf(ErrRateUnavailable, "provider returned %s", resp.Status())
	}
	if out.Value <= 0 {
		return models.ExchangeRate{}, errors.Wrap(ErrRateUnavailable, "provider returned non-positive rate")
	}

	validAt := time.Unix(out.ValidAt, 0).UTC()
	if !validAt.Truncate(time.Hour).Equal(bucket) {
		logrus.Warnf("provider returned stale rate valid at %s for bucket %s", validAt, bucket)
		return models.ExchangeRate{}, errors.Wrap(ErrRateUnavailable, "provider returned stale rate")
	}

	rate := models.ExchangeRate{
		Currency: s.currency,
		Value:    out.Value,
		ValidAt:  validAt,
	}
	if err := s.repo.SaveRate(rate); err != nil {
		return models.ExchangeRate{}, errors.Wrap(err, "failed to persist rate")
	}

	return rate, nil
}
