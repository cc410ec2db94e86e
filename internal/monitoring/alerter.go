package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-hunter/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertUnplacedBacklog AlertType = "unplaced_backlog"
	AlertStaleHotLeads   AlertType = "stale_hot_leads"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and posts
// alerts to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Unplaced permits never reach recommendations or routes.
	if a.cfg.UnplacedThreshold > 0 && snap.Unplaced > a.cfg.UnplacedThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertUnplacedBacklog,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d permits have no coordinates (threshold %d); run the geocode backfill",
				snap.Unplaced, a.cfg.UnplacedThreshold,
			),
			Details: map[string]any{
				"unplaced":  snap.Unplaced,
				"threshold": a.cfg.UnplacedThreshold,
				"total":     snap.Total,
			},
			Timestamp: now,
		})
	}

	if snap.StaleHot > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertStaleHotLeads,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d of %d hot permits are older than %d days without a visit",
				snap.StaleHot, snap.Hot, snap.StaleHotDays,
			),
			Details: map[string]any{
				"stale_hot": snap.StaleHot,
				"hot":       snap.Hot,
				"hot_zones": snap.HotZones,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
