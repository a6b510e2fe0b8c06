package chainclient

import "fmt"

// Error codes returned by the network on a failed broadcast. The first
// three signal transient conditions that clear on their own: the worker
// may re-attempt those batches. Every other code is final.
const (
	CodeBalanceTooLow  = "BALANCE_TOO_LOW"
	CodeAccountLocked  = "ACCOUNT_LOCKED"
	CodeValidationLock = "VALIDATION_LOCK_FAILED"
)

// APIError is a classified failure reported by the network itself, as
// opposed to a transport error reaching it.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("network error %s: %s", e.Code, e.Message)
}

func (e *APIError) Retryable() bool {
	switch e.Code {
	case CodeBalanceTooLow, CodeAccountLocked, CodeValidationLock:
		return true
	}
	return false
}
