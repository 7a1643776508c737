package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	UsersCreated     prometheus.Counter
	Logins           *prometheus.CounterVec
	RefreshRotations *prometheus.CounterVec
	Logouts          prometheus.Counter
	UIDCollisions    prometheus.Counter
	KeySetFetches    *prometheus.CounterVec
	AuthSessions     *prometheus.CounterVec
	RefreshRotateMs  prometheus.Histogram
	RequestLatency   *prometheus.HistogramVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "odyssey_users_created_total",
			Help: "Total number of users created",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_logins_total",
			Help: "Completed logins by whether the user was new",
		}, []string{"new_user"}),
		RefreshRotations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_refresh_rotations_total",
			Help: "Refresh token rotations by outcome",
		}, []string{"outcome"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "odyssey_logouts_total",
			Help: "Total number of revoke-all logouts",
		}),
		UIDCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "odyssey_uid_collisions_total",
			Help: "Public uid allocation attempts rejected by the uniqueness constraint",
		}),
		KeySetFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jwks_fetches_total",
			Help: "Provider key set fetches by outcome",
		}, []string{"outcome"}),
		AuthSessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_auth_sessions_total",
			Help: "Polling login sessions by terminal state",
		}, []string{"state"}),
		RefreshRotateMs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "odyssey_refresh_rotate_duration_ms",
			Help:    "Latency of refresh token rotation in milliseconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
		}),
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// IncrementUsersCreated increments the users created counter by 1.
func (m *Metrics) IncrementUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

// ObserveLogin counts a completed login.
func (m *Metrics) ObserveLogin(isNewUser bool) {
	if m == nil {
		return
	}
	label := "false"
	if isNewUser {
		label = "true"
	}
	m.Logins.WithLabelValues(label).Inc()
}

// ObserveRefresh counts a rotation attempt by outcome ("ok" or "rejected").
func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshRotations.WithLabelValues(outcome).Inc()
}

// ObserveRefreshRotate records how long a store rotation took.
func (m *Metrics) ObserveRefreshRotate(d time.Duration) {
	if m == nil {
		return
	}
	m.RefreshRotateMs.Observe(float64(d.Microseconds()) / 1000.0)
}

// IncrementLogouts counts a revoke-all.
func (m *Metrics) IncrementLogouts() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}

// IncrementUIDCollisions counts a rejected uid attempt.
func (m *Metrics) IncrementUIDCollisions() {
	if m == nil {
		return
	}
	m.UIDCollisions.Inc()
}

// ObserveKeySetFetch counts a JWKS fetch by outcome ("ok" or "error").
func (m *Metrics) ObserveKeySetFetch(outcome string) {
	if m == nil {
		return
	}
	m.KeySetFetches.WithLabelValues(outcome).Inc()
}

// ObserveAuthSession counts a polling session state transition.
func (m *Metrics) ObserveAuthSession(state string) {
	if m == nil {
		return
	}
	m.AuthSessions.WithLabelValues(state).Inc()
}
