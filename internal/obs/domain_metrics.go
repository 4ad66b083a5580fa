package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrderCreateTotal counts payment-order creation attempts by outcome.
	OrderCreateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "payment_order_create_total",
		Help:      "Count of payment-order creation outcomes.",
	}, []string{"provider", "result"})

	// PaymentWebhookTotal counts inbound payment webhook outcomes.
	PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "payment_webhook_total",
		Help:      "Count of processed payment webhooks by outcome.",
	}, []string{"provider", "result"})

	// ReconcileTotal counts result reconciliations by resolved status.
	ReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "payment_reconcile_total",
		Help:      "Count of order-status reconciliations by resolved status.",
	}, []string{"provider", "status"})

	// BackendProxyTotal counts proxied backend calls by target and status class.
	BackendProxyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "backend_proxy_requests_total",
		Help:      "Count of requests forwarded to the booking backend.",
	}, []string{"target", "status_class"})
)

// MustRegisterDomainMetrics registers the domain-specific collectors. Safe to
// call once per process; the counters themselves work unregistered, which
// keeps handler tests free of registry setup.
func MustRegisterDomainMetrics(reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		for _, c := range []prometheus.Collector{
			OrderCreateTotal,
			PaymentWebhookTotal,
			ReconcileTotal,
			BackendProxyTotal,
		} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
					continue
				}
				panic(fmt.Errorf("register domain metric: %w", err))
			}
		}
	})
}
