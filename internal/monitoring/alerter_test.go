package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-hunter/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{UnplacedThreshold: 25})

	alerts := a.Evaluate(&Snapshot{Total: 100, Unplaced: 25, Hot: 4, StaleHotDays: 7})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_UnplacedBacklog(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{UnplacedThreshold: 10})

	alerts := a.Evaluate(&Snapshot{Total: 50, Unplaced: 12})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertUnplacedBacklog, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "12 permits have no coordinates")
}

func TestAlerter_Evaluate_UnplacedThresholdDisabled(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	assert.Empty(t, a.Evaluate(&Snapshot{Unplaced: 1000}))
}

func TestAlerter_Evaluate_StaleHotLeads(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{UnplacedThreshold: 10})

	alerts := a.Evaluate(&Snapshot{Hot: 5, StaleHot: 2, StaleHotDays: 7, Unplaced: 30})
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertUnplacedBacklog, alerts[0].Type)
	assert.Equal(t, AlertStaleHotLeads, alerts[1].Type)
	assert.Equal(t, "high", alerts[1].Severity)
	assert.Contains(t, alerts[1].Message, "2 of 5 hot permits are older than 7 days")
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertUnplacedBacklog, Severity: "medium", Message: "a"},
		{Type: AlertStaleHotLeads, Severity: "high", Message: "b"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertStaleHotLeads}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertStaleHotLeads}}))
}
