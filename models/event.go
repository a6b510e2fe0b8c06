package models

// ValuedEvent is one settled ad event (a click) tied to an inbound
// network payment. Value is in clicks.
type ValuedEvent struct {
	BeneficiaryID int64 `json:"beneficiary_id"`
	Value         int64 `json:"value"`
}

// DistributionResult is the outcome of the fee waterfall over one event
// batch. For every event license + operator + beneficiary shares sum
// exactly to the event value.
type DistributionResult struct {
	LicenseTotal  int64           `json:"license_total"`
	OperatorTotal int64           `json:"operator_total"`
	Credits       map[int64]int64 `json:"credits"` // beneficiary id -> clicks
}
