package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/lead-hunter/internal/hunter"
)

// Metrics holds the Prometheus metrics for the lead hunter. All methods are
// no-ops on a nil *Metrics.
type Metrics struct {
	// Registry owns these metrics; /metrics serves it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	recommendations *prometheus.CounterVec
	routePlans      *prometheus.CounterVec
	routeMinutes    prometheus.Histogram
	geocodes        *prometheus.CounterVec
	permits         *prometheus.GaugeVec
	unplaced        prometheus.Gauge
	hotZones        prometheus.Gauge
	staleHot        prometheus.Gauge
}

// NewMetrics creates a private registry and registers every metric in it, so
// repeated calls (tests, multiple servers) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hunter_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hunter_recommendations_total",
				Help: "Recommendations produced, by priority.",
			},
			[]string{"priority"},
		),
		routePlans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hunter_route_plans_total",
				Help: "Route plans requested, by verdict.",
			},
			[]string{"verdict"},
		),
		routeMinutes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hunter_route_estimated_minutes",
				Help:    "Estimated duration of planned routes.",
				Buckets: []float64{30, 60, 120, 180, 240, 360, 480},
			},
		),
		geocodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hunter_geocodes_total",
				Help: "Addresses sent to the geocoder, by result.",
			},
			[]string{"result"},
		),
		permits: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hunter_permits",
				Help: "Stored permits by status at the last check.",
			},
			[]string{"status"},
		),
		unplaced: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hunter_permits_unplaced",
			Help: "Stored permits without coordinates at the last check.",
		}),
		hotZones: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hunter_hot_zones",
			Help: "Hot zones at the last check.",
		}),
		staleHot: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hunter_hot_permits_stale",
			Help: "Hot permits older than the stale threshold at the last check.",
		}),
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveRecommendations counts a recommendation pass by priority.
func (m *Metrics) ObserveRecommendations(s hunter.Summary) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(string(hunter.PriorityHigh)).Add(float64(s.HighPriority))
	m.recommendations.WithLabelValues(string(hunter.PriorityMedium)).Add(float64(s.MediumPriority))
	m.recommendations.WithLabelValues(string(hunter.PriorityLow)).Add(float64(s.LowPriority))
}

// ObserveRoute counts a route plan. A nil plan counts as rejected.
func (m *Metrics) ObserveRoute(plan *hunter.RoutePlan) {
	if m == nil {
		return
	}
	switch {
	case plan == nil:
		m.routePlans.WithLabelValues("rejected").Inc()
		return
	case plan.WithinBudget:
		m.routePlans.WithLabelValues("within_budget").Inc()
	default:
		m.routePlans.WithLabelValues("over_budget").Inc()
	}
	m.routeMinutes.Observe(float64(plan.EstimatedDurationMinutes))
}

// ObserveGeocodes counts geocoder results.
func (m *Metrics) ObserveGeocodes(matched, unmatched int) {
	if m == nil {
		return
	}
	m.geocodes.WithLabelValues("matched").Add(float64(matched))
	m.geocodes.WithLabelValues("unmatched").Add(float64(unmatched))
}

// SetSnapshot publishes a collected snapshot as gauges.
func (m *Metrics) SetSnapshot(snap *Snapshot) {
	if m == nil || snap == nil {
		return
	}
	m.permits.Reset()
	for status, n := range snap.ByStatus {
		m.permits.WithLabelValues(status).Set(float64(n))
	}
	m.unplaced.Set(float64(snap.Unplaced))
	m.hotZones.Set(float64(snap.HotZones))
	m.staleHot.Set(float64(snap.StaleHot))
}
