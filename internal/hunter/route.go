package hunter

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/lead-hunter/internal/model"
)

// StartMode selects where a route begins.
type StartMode string

const (
	StartCurrentLocation StartMode = "current_location"
	StartFirstStop       StartMode = "first_stop"
	StartCustom          StartMode = "custom"
)

// EndMode selects where a route ends.
type EndMode string

const (
	EndLastStop  EndMode = "last_stop"
	EndRoundTrip EndMode = "round_trip"
	EndCustom    EndMode = "custom"
)

// StartPolicy describes the route start. Point is the caller's coordinates for
// current_location, or the geocoded address for custom.
type StartPolicy struct {
	Mode    StartMode `json:"mode"`
	Address string    `json:"address,omitempty"`
	Point   *Point    `json:"point,omitempty"`
}

// EndPolicy describes the route end.
type EndPolicy struct {
	Mode    EndMode `json:"mode"`
	Address string  `json:"address,omitempty"`
	Point   *Point  `json:"point,omitempty"`
}

// RouteStop is one permit on the route, in visit order.
type RouteStop struct {
	Sequence int    `json:"sequence"`
	PermitID string `json:"permit_id"`
	Address  string `json:"address"`
	Point    Point  `json:"point"`
}

// Leg is the straight-line hop between two consecutive route points.
type Leg struct {
	From          string  `json:"from"`
	To            string  `json:"to"`
	DistanceKm    float64 `json:"distance_km"`
	TravelMinutes float64 `json:"travel_minutes"`
}

// RoutePlan is an ordered stop list with a feasibility verdict.
type RoutePlan struct {
	Stops                    []RouteStop `json:"stops"`
	StartLocation            string      `json:"start_location"`
	EndLocation              string      `json:"end_location"`
	Legs                     []Leg       `json:"legs"`
	TotalDistanceKm          float64     `json:"total_distance_km"`
	TravelMinutes            float64     `json:"travel_minutes"`
	DwellMinutes             float64     `json:"dwell_minutes"`
	EstimatedDurationMinutes int         `json:"estimated_duration_minutes"`
	BudgetMinutes            int         `json:"budget_minutes"`
	OverBudgetMinutes        int         `json:"over_budget_minutes"`
	WithinBudget             bool        `json:"within_budget"`
	Warnings                 []string    `json:"warnings"`
}

type waypoint struct {
	label string
	point Point
}

// PlanRoute sequences the selected permits in selection order and estimates
// the trip against the time budget.
//
// Stops are never reordered: this is a checklist sequencer, not a tour
// optimizer. Travel time is straight-line distance at a flat average speed, an
// approximation that ignores roads and traffic; treat the estimate as a
// budget check, not an ETA.
func (e *Engine) PlanRoute(stops []model.Permit, start StartPolicy, end EndPolicy) (*RoutePlan, error) {
	if len(stops) < 2 {
		return nil, &ValidationError{Field: "stops", Message: "at least two stops required"}
	}

	seen := make(map[string]bool, len(stops))
	plan := &RoutePlan{
		Stops:         make([]RouteStop, 0, len(stops)),
		Legs:          []Leg{},
		BudgetMinutes: e.route.MaxMinutes,
		Warnings:      []string{},
	}
	for i, p := range stops {
		if strings.TrimSpace(p.ID) == "" {
			return nil, &ValidationError{Field: "stops", Message: fmt.Sprintf("stop %d has no permit id", i+1)}
		}
		if seen[p.ID] {
			return nil, &ValidationError{Field: "stops", Message: fmt.Sprintf("permit %s selected more than once", p.ID)}
		}
		seen[p.ID] = true
		if !finite(p.Latitude) || !finite(p.Longitude) {
			return nil, &ValidationError{Field: "stops", Message: fmt.Sprintf("permit %s has non-numeric coordinates", p.ID)}
		}
		if !p.Placed() {
			return nil, &ValidationError{Field: "stops", Message: fmt.Sprintf("permit %s has no coordinates", p.ID)}
		}
		plan.Stops = append(plan.Stops, RouteStop{
			Sequence: i + 1,
			PermitID: p.ID,
			Address:  stopLabel(p),
			Point:    Point{Lat: p.Latitude, Lng: p.Longitude},
		})
	}

	first := waypoint{plan.Stops[0].Address, plan.Stops[0].Point}
	last := waypoint{plan.Stops[len(plan.Stops)-1].Address, plan.Stops[len(plan.Stops)-1].Point}

	origin, startLeg, err := e.resolveStart(start, first, plan)
	if err != nil {
		return nil, err
	}
	dest, endLeg, err := e.resolveEnd(end, origin, last, plan)
	if err != nil {
		return nil, err
	}
	plan.StartLocation = origin.label
	plan.EndLocation = dest.label

	var path []waypoint
	if startLeg {
		path = append(path, origin)
	}
	for _, s := range plan.Stops {
		path = append(path, waypoint{s.Address, s.Point})
	}
	if endLeg {
		path = append(path, dest)
	}

	for i := 1; i < len(path); i++ {
		km := HaversineKm(path[i-1].point, path[i].point)
		leg := Leg{
			From:          path[i-1].label,
			To:            path[i].label,
			DistanceKm:    round2(km),
			TravelMinutes: round2(km / e.route.AverageSpeedKPH * 60),
		}
		plan.Legs = append(plan.Legs, leg)
		plan.TotalDistanceKm += km
		plan.TravelMinutes += km / e.route.AverageSpeedKPH * 60
	}

	plan.DwellMinutes = e.route.DwellMinutes * float64(len(plan.Stops))
	plan.EstimatedDurationMinutes = int(math.Round(plan.TravelMinutes + plan.DwellMinutes))
	plan.TotalDistanceKm = round2(plan.TotalDistanceKm)
	plan.TravelMinutes = round2(plan.TravelMinutes)
	plan.WithinBudget = plan.EstimatedDurationMinutes <= plan.BudgetMinutes
	if !plan.WithinBudget {
		plan.OverBudgetMinutes = plan.EstimatedDurationMinutes - plan.BudgetMinutes
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"estimated %d minutes exceeds the %d minute budget by %d; consider dropping stops",
			plan.EstimatedDurationMinutes, plan.BudgetMinutes, plan.OverBudgetMinutes))
	}
	return plan, nil
}

// resolveStart returns the route origin and whether it adds a leg before the
// first stop.
func (e *Engine) resolveStart(sp StartPolicy, first waypoint, plan *RoutePlan) (waypoint, bool, error) {
	switch sp.Mode {
	case StartCurrentLocation, "":
		if sp.Point != nil {
			if err := checkPoint("start", *sp.Point); err != nil {
				return waypoint{}, false, err
			}
			label := strings.TrimSpace(sp.Address)
			if label == "" {
				label = formatPoint(*sp.Point)
			}
			return waypoint{label, *sp.Point}, true, nil
		}
		def, ok := e.defaultLocation()
		if !ok {
			return waypoint{}, false, &ValidationError{Field: "start",
				Message: "current location unavailable and no default business address configured"}
		}
		plan.Warnings = append(plan.Warnings, "current location unavailable; starting from the default business address")
		return def, true, nil

	case StartFirstStop:
		return first, false, nil

	case StartCustom:
		wp, err := e.resolveCustom("start", sp.Address, sp.Point, plan)
		return wp, true, err

	default:
		return waypoint{}, false, &ValidationError{Field: "start", Message: fmt.Sprintf("unknown start mode %q", sp.Mode)}
	}
}

// resolveEnd returns the route destination and whether it adds a leg after
// the last stop.
func (e *Engine) resolveEnd(ep EndPolicy, origin, last waypoint, plan *RoutePlan) (waypoint, bool, error) {
	switch ep.Mode {
	case EndLastStop, "":
		return last, false, nil

	case EndRoundTrip:
		return origin, true, nil

	case EndCustom:
		wp, err := e.resolveCustom("end", ep.Address, ep.Point, plan)
		return wp, true, err

	default:
		return waypoint{}, false, &ValidationError{Field: "end", Message: fmt.Sprintf("unknown end mode %q", ep.Mode)}
	}
}

// resolveCustom keeps the caller's address as the label. Without coordinates
// the distance is measured from the default business location and a warning
// is recorded; without either the route cannot be resolved.
func (e *Engine) resolveCustom(field, address string, pt *Point, plan *RoutePlan) (waypoint, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return waypoint{}, &ValidationError{Field: field, Message: fmt.Sprintf("custom %s address is required", field)}
	}
	if pt != nil {
		if err := checkPoint(field, *pt); err != nil {
			return waypoint{}, err
		}
		return waypoint{address, *pt}, nil
	}
	def, ok := e.defaultLocation()
	if !ok {
		return waypoint{}, &ValidationError{Field: field,
			Message: fmt.Sprintf("custom %s address %q has no coordinates and no default business location is configured", field, address)}
	}
	// The endpoint is reported as the location actually used.
	plan.Warnings = append(plan.Warnings, fmt.Sprintf(
		"custom %s address %q could not be located; using the default business address %s", field, address, def.label))
	return def, nil
}

func (e *Engine) defaultLocation() (waypoint, bool) {
	if !e.route.HasDefaultLocation() {
		return waypoint{}, false
	}
	pt := Point{Lat: e.route.DefaultLatitude, Lng: e.route.DefaultLongitude}
	label := strings.TrimSpace(e.route.DefaultAddress)
	if label == "" {
		label = formatPoint(pt)
	}
	return waypoint{label, pt}, true
}

func checkPoint(field string, p Point) error {
	if !finite(p.Lat) || !finite(p.Lng) || p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid coordinates (%v, %v)", p.Lat, p.Lng)}
	}
	return nil
}

func stopLabel(p model.Permit) string {
	if addr := p.FullAddress(); addr != "" {
		return addr
	}
	return formatPoint(Point{Lat: p.Latitude, Lng: p.Longitude})
}

func formatPoint(p Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
