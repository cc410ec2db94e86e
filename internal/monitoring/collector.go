// Package monitoring tracks the health of the lead pipeline: Prometheus
// metrics, periodic permit snapshots and threshold alerts.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-hunter/internal/hunter"
	"github.com/sells-group/lead-hunter/internal/model"
	"github.com/sells-group/lead-hunter/internal/store"
)

// Snapshot is a point-in-time view of the stored permits.
type Snapshot struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Unplaced int            `json:"unplaced"`
	Hot      int            `json:"hot"`
	HotZones int            `json:"hot_zones"`

	// StaleHot counts hot permits older than StaleHotDays: leads going cold
	// while nobody visits them.
	StaleHot     int `json:"stale_hot"`
	StaleHotDays int `json:"stale_hot_days"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers snapshots from the permit store.
type Collector struct {
	store        store.PermitStore
	engine       *hunter.Engine
	staleHotDays int
	now          func() time.Time
}

// NewCollector creates a collector. staleHotDays <= 0 disables the stale count.
func NewCollector(st store.PermitStore, engine *hunter.Engine, staleHotDays int) *Collector {
	return &Collector{store: st, engine: engine, staleHotDays: staleHotDays, now: time.Now}
}

// Collect reads every permit and summarizes it.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		ByStatus:     make(map[string]int),
		StaleHotDays: c.staleHotDays,
		CollectedAt:  now,
	}

	permits, err := c.store.ListPermits(ctx, store.PermitFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list permits")
	}

	cutoff := now.AddDate(0, 0, -c.staleHotDays)
	for _, p := range permits {
		snap.Total++
		snap.ByStatus[string(p.Status)]++
		if !p.Placed() {
			snap.Unplaced++
		}
		if p.Status != model.StatusHot {
			continue
		}
		snap.Hot++
		if c.staleHotDays > 0 && p.CreatedAt.Before(cutoff) {
			snap.StaleHot++
		}
	}

	if c.engine != nil {
		snap.HotZones = len(c.engine.ClusterHotPermits(permits))
	}
	return snap, nil
}
