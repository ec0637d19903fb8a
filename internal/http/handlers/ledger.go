package handlers

import (
	"context"
	"errors"
	"net/http"

	"minemechanics/internal/domain"
	"minemechanics/internal/logger"
	"minemechanics/internal/service"

	"github.com/gin-gonic/gin"
)

// auditLogger is the slice of AuditService the handler needs.
type auditLogger interface {
	Log(ctx context.Context, tgID int64, action string, details map[string]interface{})
}

// LedgerHandler exposes the ledger primitives to the operator. Its main use
// is resolving flagged manual_review events: a paid callback whose funds were
// never credited automatically gets applied here by hand.
type LedgerHandler struct {
	ledger *service.LedgerService
	audit  auditLogger
}

func NewLedgerHandler(ledger *service.LedgerService, audit auditLogger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, audit: audit}
}

type adjustRequest struct {
	TgID     int64   `json:"tg_id"`
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
	Op       string  `json:"op"` // "credit" or "debit"
	Reason   string  `json:"reason"`
}

// Adjust handles POST /api/ledger/adjust.
func (h *LedgerHandler) Adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.TgID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tg_id required"})
		return
	}
	cur, ok := domain.ParseCurrency(req.Currency)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown currency"})
		return
	}

	var newBalance float64
	var err error
	switch req.Op {
	case "credit":
		newBalance, err = h.ledger.Credit(c.Request.Context(), req.TgID, cur, req.Amount)
	case "debit":
		newBalance, err = h.ledger.Debit(c.Request.Context(), req.TgID, cur, req.Amount)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "op must be credit or debit"})
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		case errors.Is(err, service.ErrInsufficientFunds):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient funds"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			logger.Error("ledger adjust failed", "error", err, "tg_id", req.TgID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "adjust failed"})
		}
		return
	}

	h.audit.Log(c.Request.Context(), req.TgID, domain.AuditActionManualAdjust, map[string]interface{}{
		"op":       req.Op,
		"currency": cur.String(),
		"amount":   req.Amount,
		"reason":   req.Reason,
	})

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"new_balance": newBalance,
	})
}
