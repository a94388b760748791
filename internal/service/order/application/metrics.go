// internal/service/order/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pasjajan_classifications_total",
		Help: "Payment result classifications by outcome.",
	}, []string{"outcome"})

	redirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pasjajan_redirects_total",
		Help: "Payment result redirects by target view.",
	}, []string{"target"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pasjajan_delivery_transitions_total",
		Help: "Admin delivery status transitions by target status and result.",
	}, []string{"status", "result"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pasjajan_notifications_total",
		Help: "Tracking notifications by disposition.",
	}, []string{"disposition"}) // sent / muted / error

	pollTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasjajan_poll_ticks_total",
		Help: "Tracking poller ticks that performed a fetch.",
	})

	pollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pasjajan_poll_errors_total",
		Help: "Tracking poller fetch failures.",
	})
)
