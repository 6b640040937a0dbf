package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 业务事件名
const (
	EventAccountRegistered = "account_registered"
	EventAccountUpserted   = "account_upserted"
	EventAdminGranted      = "admin_granted"
	EventAdminRevoked      = "admin_revoked"
	EventListingCreated    = "listing_created"
	EventListingDeleted    = "listing_deleted"
	EventBookingCreated    = "booking_created"
	EventBookingRejected   = "booking_rejected_duplicate"
	EventBookingStatus     = "booking_status_updated"
	EventBookingDeleted    = "booking_deleted"
	EventReviewCreated     = "review_created"
	EventReviewUpdated     = "review_updated"
	EventReviewDeleted     = "review_deleted"
	EventImageUploaded     = "image_uploaded"
)

var domainEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "greenhome",
		Name:      "domain_events_total",
		Help:      "Count of business events by kind",
	},
	[]string{"event"},
)

func init() { prometheus.MustRegister(domainEvents) }

func Event(name string) { domainEvents.WithLabelValues(name).Inc() }

func EventN(name string, n int) {
	if n > 0 {
		domainEvents.WithLabelValues(name).Add(float64(n))
	}
}

// Handler /metrics 暴露默认注册表
func Handler() http.Handler { return promhttp.Handler() }
