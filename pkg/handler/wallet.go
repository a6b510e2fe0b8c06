package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"settlement_back/models"
	"settlement_back/pkg/service"
)

func (h *Handler) GetSnapshot(c *gin.Context) {
	waiting, err := h.service.Withdrawals.WaitingPayments()
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	snapshot, err := h.service.Rebalance.Snapshot(waiting)
	if err != nil {
		newErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	okJSON(c, gin.H{
		"data": snapshot,
	})
}

// Convert turns a click amount into the billing currency at the current
// hour's rate.
func (h *Handler) Convert(c *gin.Context) {
	var req models.ConvertRequest
	if err := c.BindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rate, err := h.service.Rates.FetchRate(time.Now())
	if err != nil {
		if errors.Is(err, service.ErrRateUnavailable) {
			newErrorResponse(c, http.StatusServiceUnavailable, "exchange rate unavailable, try again later")
			return
		}
		newErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	okJSON(c, gin.H{
		"data": models.ConvertResponse{
			ConvertedAmount: float64(req.Amount) * rate.Value,
			Currency:        rate.Currency,
			Rate:            rate.Value,
		},
	})
}
