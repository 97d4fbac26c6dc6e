// Package metrics exposes Prometheus counters for bookings, OTP and HTTP traffic.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"eyegic/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eyegic"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created by booking type.",
		},
		[]string{"type"},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_transitions_total",
			Help:      "Booking status changes by source and target status.",
		},
		[]string{"from", "to"},
	)

	otpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_events_total",
			Help:      "OTP requests and checks by outcome.",
		},
		[]string{"outcome"},
	)

	syncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_sync_tasks_total",
			Help:      "Processed spreadsheet sync tasks by type and outcome.",
		},
		[]string{"task", "outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, bookingsCreated, statusTransitions, otpRequests, syncTasks)
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Observer adapts the package counters to the service and worker observer hooks.
type Observer struct{}

func (Observer) ObserveOTP(outcome string) {
	otpRequests.WithLabelValues(outcome).Inc()
}

func (Observer) ObserveSync(taskType, outcome string) {
	syncTasks.WithLabelValues(taskType, outcome).Inc()
}

// SubscribeEvents counts booking events published on bus.
func SubscribeEvents(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, func(ev *events.Event) error {
		var p events.BookingEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		bookingsCreated.WithLabelValues(p.BookingType).Inc()
		return nil
	})
	bus.Subscribe(events.EventBookingStatusChanged, func(ev *events.Event) error {
		var p events.BookingEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		statusTransitions.WithLabelValues(p.PreviousStatus, p.Status).Inc()
		return nil
	})
}
