package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)
	InvoicesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ccpayment_invoices_created_total",
			Help: "Total invoices successfully created at the provider",
		},
	)
	CallbacksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ccpayment_callbacks_total",
			Help: "Provider callbacks by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
	prometheus.MustRegister(InvoicesCreated)
	prometheus.MustRegister(CallbacksProcessed)
}
