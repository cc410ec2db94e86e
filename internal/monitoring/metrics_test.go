package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-hunter/internal/hunter"
)

func TestNewMetrics_PrivateRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	assert.NotSame(t, a.Registry, b.Registry)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/health", 200, time.Millisecond)
		m.ObserveRecommendations(hunter.Summary{HighPriority: 1})
		m.ObserveRoute(nil)
		m.ObserveGeocodes(1, 1)
		m.SetSnapshot(&Snapshot{})
	})
}

func TestMetrics_ObserveRecommendations(t *testing.T) {
	m := NewMetrics()
	m.ObserveRecommendations(hunter.Summary{HighPriority: 2, MediumPriority: 3, LowPriority: 1})
	m.ObserveRecommendations(hunter.Summary{HighPriority: 1})

	assert.InDelta(t, 3, testutil.ToFloat64(m.recommendations.WithLabelValues("high")), 1e-9)
	assert.InDelta(t, 3, testutil.ToFloat64(m.recommendations.WithLabelValues("medium")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.recommendations.WithLabelValues("low")), 1e-9)
}

func TestMetrics_ObserveRoute(t *testing.T) {
	m := NewMetrics()
	m.ObserveRoute(&hunter.RoutePlan{WithinBudget: true, EstimatedDurationMinutes: 90})
	m.ObserveRoute(&hunter.RoutePlan{WithinBudget: false, EstimatedDurationMinutes: 300})
	m.ObserveRoute(nil)

	assert.InDelta(t, 1, testutil.ToFloat64(m.routePlans.WithLabelValues("within_budget")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.routePlans.WithLabelValues("over_budget")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.routePlans.WithLabelValues("rejected")), 1e-9)
}

func TestMetrics_GatherIncludesRequests(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("GET", "/v1/recommendations", 200, 20*time.Millisecond)
	m.ObserveGeocodes(3, 1)

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["hunter_http_request_duration_seconds"])
	assert.True(t, names["hunter_geocodes_total"])
}

func TestMetrics_SetSnapshotResetsStatuses(t *testing.T) {
	m := NewMetrics()
	m.SetSnapshot(&Snapshot{ByStatus: map[string]int{"hot": 2, "cold": 1}})
	m.SetSnapshot(&Snapshot{ByStatus: map[string]int{"hot": 5}})

	assert.Equal(t, 1, testutil.CollectAndCount(m.permits))
	assert.InDelta(t, 5, testutil.ToFloat64(m.permits.WithLabelValues("hot")), 1e-9)
}
