package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"settlement_back/models"
	"settlement_back/pkg/middleware"
	"settlement_back/pkg/repository"
	"settlement_back/pkg/service"
	"settlement_back/pkg/worker"
)

type ledgerEntryView struct {
	models.LedgerEntry
	StatusText string `json:"status_text"`
}

// GetLedger returns the account's ledger with user-facing status text.
// Terminal failures stay visible instead of silently disappearing.
func (h *Handler) GetLedger(c *gin.Context) {
	accountID := c.GetInt64(middleware.AccountIDKey)

	entries, err := h.service.Withdrawals.EntriesByAccount(accountID)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]ledgerEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, ledgerEntryView{LedgerEntry: entry, StatusText: statusText(entry.Status)})
	}

	okJSON(c, gin.H{
		"data": views,
	})
}

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	accountID := c.GetInt64(middleware.AccountIDKey)

	var req models.WithdrawInput
	if err := c.BindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	batchID, err := h.service.Withdrawals.RequestWithdrawal(accountID, req.ToAddress, req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientFunds) {
			newErrorResponse(c, http.StatusUnprocessableEntity, "insufficient funds")
			return
		}
		newErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	h.jobs.EnqueueBatch(worker.BatchJob{
		BatchID:   batchID,
		ToAddress: req.ToAddress,
		Amount:    req.Amount,
		Message:   "payout " + batchID,
	})

	okJSON(c, gin.H{
		"batch_id": batchID,
	})
}

func (h *Handler) CancelWithdrawal(c *gin.Context) {
	accountID := c.GetInt64(middleware.AccountIDKey)

	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, "entry id must be an integer")
		return
	}

	if err := h.service.Withdrawals.CancelWithdrawal(accountID, entryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			newErrorResponse(c, http.StatusNotFound, "no pending withdrawal with that id")
			return
		}
		newErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	okJSON(c, gin.H{
		"canceled": entryID,
	})
}

func statusText(status string) string {
	switch status {
	case models.StatusPending:
		return "processing"
	case models.StatusAccepted:
		return "confirmed"
	case models.StatusRejected:
		return "insufficient funds"
	case models.StatusNetError, models.StatusSysError:
		return "failed - contact support"
	case models.StatusCanceled:
		return "canceled"
	}
	return status
}
