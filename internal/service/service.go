// Package service connects the permit store and geocoder to the hunter engine.
// The engine stays pure; everything that touches I/O happens here.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-hunter/internal/hunter"
	"github.com/sells-group/lead-hunter/internal/model"
	"github.com/sells-group/lead-hunter/internal/monitoring"
	"github.com/sells-group/lead-hunter/internal/store"
	"github.com/sells-group/lead-hunter/pkg/geocode"
)

// Service answers recommendation, cluster and route requests from stored permits.
type Service struct {
	store    store.PermitStore
	engine   *hunter.Engine
	geocoder geocode.Client
	metrics  *monitoring.Metrics
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithGeocoder resolves custom route addresses that arrive without coordinates.
func WithGeocoder(c geocode.Client) Option {
	return func(s *Service) { s.geocoder = c }
}

// WithMetrics records recommendation and route outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the clock used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(st store.PermitStore, engine *hunter.Engine, opts ...Option) *Service {
	s := &Service{store: st, engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the underlying engine.
func (s *Service) Engine() *hunter.Engine { return s.engine }

// Recommend ranks every stored permit matching filter. limit > 0 truncates the
// recommendation list; the summary and clusters always cover the full set.
func (s *Service) Recommend(ctx context.Context, filter hunter.Filter, limit int) (*hunter.Result, error) {
	if limit < 0 {
		return nil, &model.ValidationError{Field: "limit", Message: "limit must be >= 0"}
	}

	permits, err := s.store.ListPermits(ctx, store.PermitFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "service: list permits")
	}

	res, err := s.engine.GenerateRecommendations(permits, filter, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveRecommendations(res.Summary)

	if limit > 0 && len(res.Recommendations) > limit {
		res.Recommendations = res.Recommendations[:limit]
	}

	zap.L().Debug("service: recommendations generated",
		zap.Int("permits", len(permits)),
		zap.Int("high", res.Summary.HighPriority),
		zap.Int("hot_zones", res.Summary.HotZones),
	)
	return res, nil
}

// Clusters returns the hot zones among stored permits matching filter.
func (s *Service) Clusters(ctx context.Context, filter hunter.Filter) ([]hunter.Cluster, error) {
	permits, err := s.store.ListPermits(ctx, store.PermitFilter{Statuses: []model.PermitStatus{model.StatusHot}})
	if err != nil {
		return nil, eris.Wrap(err, "service: list hot permits")
	}

	matched, err := s.engine.FilterPermits(permits, filter)
	if err != nil {
		return nil, err
	}
	return s.engine.ClusterHotPermits(matched), nil
}

// Endpoint is a route start or end as callers send it.
type Endpoint struct {
	Mode      string   `json:"mode"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// RouteRequest selects stored permits, in visit order, and the endpoints.
type RouteRequest struct {
	PermitIDs []string `json:"permit_ids"`
	Start     Endpoint `json:"start"`
	End       Endpoint `json:"end"`
}

// PlanRoute loads the selected permits and sequences them.
func (s *Service) PlanRoute(ctx context.Context, req RouteRequest) (*hunter.RoutePlan, error) {
	plan, err := s.planRoute(ctx, req)
	if err == nil || model.IsValidation(err) {
		s.metrics.ObserveRoute(plan)
	}
	return plan, err
}

func (s *Service) planRoute(ctx context.Context, req RouteRequest) (*hunter.RoutePlan, error) {
	if len(req.PermitIDs) < 2 {
		return nil, &model.ValidationError{Field: "stops", Message: "at least two stops required"}
	}
	ids := make([]string, len(req.PermitIDs))
	for i, id := range req.PermitIDs {
		if ids[i] = strings.TrimSpace(id); ids[i] == "" {
			return nil, &model.ValidationError{Field: "permit_ids", Message: fmt.Sprintf("permit id %d is blank", i+1)}
		}
	}

	stops, err := s.store.GetPermits(ctx, ids)
	if err != nil {
		return nil, eris.Wrap(err, "service: get permits")
	}
	if missing := missingIDs(ids, stops); len(missing) > 0 {
		return nil, &model.ValidationError{
			Field:   "permit_ids",
			Message: fmt.Sprintf("unknown permit ids: %s", strings.Join(missing, ", ")),
		}
	}

	startPt, err := s.resolvePoint(ctx, "start", req.Start)
	if err != nil {
		return nil, err
	}
	endPt, err := s.resolvePoint(ctx, "end", req.End)
	if err != nil {
		return nil, err
	}

	return s.engine.PlanRoute(stops,
		hunter.StartPolicy{Mode: hunter.StartMode(req.Start.Mode), Address: req.Start.Address, Point: startPt},
		hunter.EndPolicy{Mode: hunter.EndMode(req.End.Mode), Address: req.End.Address, Point: endPt},
	)
}

// resolvePoint turns an endpoint into coordinates. Explicit coordinates win;
// otherwise a custom address is geocoded when a geocoder is configured. A
// failed or unmatched lookup returns nil and leaves the fallback to the engine.
func (s *Service) resolvePoint(ctx context.Context, field string, ep Endpoint) (*hunter.Point, error) {
	switch {
	case ep.Latitude != nil && ep.Longitude != nil:
		return &hunter.Point{Lat: *ep.Latitude, Lng: *ep.Longitude}, nil
	case ep.Latitude != nil || ep.Longitude != nil:
		return nil, &model.ValidationError{Field: field, Message: "latitude and longitude must be given together"}
	}

	address := strings.TrimSpace(ep.Address)
	if ep.Mode != string(hunter.StartCustom) || address == "" || s.geocoder == nil {
		return nil, nil
	}

	log := zap.L().With(zap.String("endpoint", field), zap.String("address", address))
	res, err := s.geocoder.Geocode(ctx, geocode.AddressInput{Street: address})
	if err != nil {
		log.Warn("service: geocode route endpoint failed", zap.Error(err))
		s.metrics.ObserveGeocodes(0, 1)
		return nil, nil
	}
	if !res.Matched {
		log.Info("service: route endpoint address not matched")
		s.metrics.ObserveGeocodes(0, 1)
		return nil, nil
	}
	s.metrics.ObserveGeocodes(1, 0)
	return &hunter.Point{Lat: res.Latitude, Lng: res.Longitude}, nil
}

// missingIDs lists requested ids with no stored permit, deduplicated.
func missingIDs(ids []string, found []model.Permit) []string {
	have := make(map[string]bool, len(found))
	for _, p := range found {
		have[p.ID] = true
	}
	var missing []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if !have[id] && !seen[id] {
			seen[id] = true
			missing = append(missing, id)
		}
	}
	return missing
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
