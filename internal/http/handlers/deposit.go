package handlers

import (
	"errors"
	"net/http"

	"minemechanics/internal/logger"
	"minemechanics/internal/service"

	"github.com/gin-gonic/gin"
)

// DepositHandler exposes invoice creation over HTTP, mirroring the call the
// conversation layer makes in-process.
type DepositHandler struct {
	invoices *service.InvoiceService
}

func NewDepositHandler(invoices *service.InvoiceService) *DepositHandler {
	return &DepositHandler{invoices: invoices}
}

type depositRequest struct {
	TgID      int64   `json:"tg_id"`
	AmountUSD float64 `json:"amount_usd"`
	Chain     string  `json:"chain"`
}

// Create handles POST /api/deposit.
func (h *DepositHandler) Create(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.TgID == 0 || req.AmountUSD <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tg_id and amount_usd required"})
		return
	}

	inv, err := h.invoices.CreateDeposit(c.Request.Context(), req.TgID, req.AmountUSD, req.Chain)
	if err != nil {
		if errors.Is(err, service.ErrAmountOutOfRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount outside deposit bounds"})
			return
		}
		logger.Error("invoice creation failed", "error", err, "tg_id", req.TgID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create invoice"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"paymentUrl":  inv.PaymentURL,
		"referenceId": inv.ReferenceID,
	})
}
