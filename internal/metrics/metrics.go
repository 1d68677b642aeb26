// Package metrics holds the Prometheus collectors for the auth core and its
// transports. Kept standalone so services and handlers can both import it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Auth core operations by outcome",
	}, []string{"op", "outcome"})

	AuthLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_operation_duration_seconds",
		Help:    "Latency of auth core operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	ProviderVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_provider_verifications_total",
		Help: "Social login verifications by provider and outcome",
	}, []string{"provider", "outcome"})

	AccountsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_accounts_created_total",
		Help: "Accounts created, by origin provider",
	}, []string{"provider"})

	TokensSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_tokens_swept_total",
		Help: "Expired refresh tokens removed by the sweeper",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests processed",
	}, []string{"method", "path", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Register registers every collector on reg (or the default registry if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		AuthOperations, AuthLatency, ProviderVerifications,
		AccountsCreated, TokensSwept, HTTPRequests, HTTPDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveOp records one auth core call.
func ObserveOp(op, outcome string, start time.Time) {
	AuthOperations.WithLabelValues(op, outcome).Inc()
	AuthLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
