package http

import (
	"os"
	"strconv"
	"time"

	"minemechanics/internal/http/handlers"
	"minemechanics/internal/http/middleware"
	"minemechanics/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes wires the deposit API, the provider webhook and the health
// probes.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, invoices *service.InvoiceService, reconciler *service.ReconcileService, ledger *service.LedgerService, audit *service.AuditService, version string) {
	healthHandler := handlers.NewHealthHandler(db, version)
	depositHandler := handlers.NewDepositHandler(invoices)
	webhookHandler := handlers.NewWebhookHandler(reconciler)
	ledgerHandler := handlers.NewLedgerHandler(ledger, audit)

	// read limits from env, with safe defaults
	apiRateLimit := 10
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateLimit = n
		}
	}
	apiRateWindow := time.Minute
	if v := os.Getenv("API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateWindow = time.Duration(n) * time.Second
		}
	}

	// Health checks (no rate limiting)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))

	api.POST("/deposit", depositHandler.Create)

	// operator resolution path for flagged manual_review events
	api.POST("/ledger/adjust", ledgerHandler.Adjust)

	// The provider retries on its own schedule; throttling its callbacks
	// would only delay reconciliation, so the webhook sits outside the
	// rate-limited group.
	r.POST("/api/ccpayment/webhook", webhookHandler.Handle)
}
