package handlers

import (
	"errors"
	"io"
	"net/http"

	"minemechanics/internal/ccpayment"
	"minemechanics/internal/http/middleware"
	"minemechanics/internal/logger"
	"minemechanics/internal/service"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives provider callbacks. Delivery is at least once:
// everything past basic payload validation is acknowledged with 200 so the
// provider stops retrying, including duplicates and flagged events.
type WebhookHandler struct {
	reconciler *service.ReconcileService
}

func NewWebhookHandler(reconciler *service.ReconcileService) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// Handle handles POST /api/ccpayment/webhook.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	res, err := h.reconciler.Process(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, ccpayment.ErrMissingReference) {
			middleware.CallbacksProcessed.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing referenceId"})
			return
		}
		// transient processing failure: let the provider redeliver
		middleware.CallbacksProcessed.WithLabelValues("error").Inc()
		logger.Error("webhook processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	switch {
	case res.Credited:
		middleware.CallbacksProcessed.WithLabelValues("credited").Inc()
	case res.Flagged:
		middleware.CallbacksProcessed.WithLabelValues("flagged").Inc()
	default:
		middleware.CallbacksProcessed.WithLabelValues("noop").Inc()
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
