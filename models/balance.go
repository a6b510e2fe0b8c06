package models

// WalletSnapshot is the live view the rebalancing controller works from.
// Not persisted.
type WalletSnapshot struct {
	HotBalance      int64 `json:"hot_balance"`
	WaitingPayments int64 `json:"waiting_payments"`
	MinThreshold    int64 `json:"min_threshold"`
	MaxThreshold    int64 `json:"max_threshold"`
}

// TransferRequest describes a completed hot-to-reserve transfer.
type TransferRequest struct {
	Amount int64  `json:"amount"`
	TxID   string `json:"tx_id"`
}

type WithdrawInput struct {
	Amount    int64  `json:"amount" binding:"required"`
	ToAddress string `json:"to_address" binding:"required"`
}
