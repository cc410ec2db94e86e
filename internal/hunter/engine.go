// Package hunter implements the lead hunter visit recommendation and route
// planning engine: hot-zone clustering, permit scoring, ranking and route
// sequencing. Everything here is pure computation over in-memory permits.
package hunter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/lead-hunter/internal/config"
	"github.com/sells-group/lead-hunter/internal/model"
)

// ValidationError is returned for malformed or insufficient input.
type ValidationError = model.ValidationError

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool { return model.IsValidation(err) }

// Engine bundles the clustering, scoring, ranking and routing policies.
// An Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	cluster  ClusterParams
	scorer   *Scorer
	counties map[string]county
	route    config.RouteConfig
}

// county is a configured county keyed by its folded name.
type county struct {
	name   string
	cities []string
}

// NewEngine validates the configuration and builds an Engine.
func NewEngine(hc config.HunterConfig, rc config.RouteConfig) (*Engine, error) {
	params := ClusterParams{RadiusDeg: hc.ClusterRadiusDeg, MinSize: hc.MinClusterSize}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateWeights(hc.Weights); err != nil {
		return nil, err
	}
	if err := ValidateRouteConfig(rc); err != nil {
		return nil, err
	}

	counties := make(map[string]county, len(hc.Counties))
	for name, cities := range hc.Counties {
		k := foldKey(name)
		c := counties[k]
		if display := countyDisplayName(name); c.name == "" || display < c.name {
			c.name = display
		}
		c.cities = append(c.cities, cities...)
		counties[k] = c
	}

	return &Engine{
		cluster:  params,
		scorer:   NewScorer(hc.Weights),
		counties: counties,
		route:    rc,
	}, nil
}

// DefaultEngine returns an Engine built from DefaultHunterConfig and DefaultRouteConfig.
func DefaultEngine() *Engine {
	e, err := NewEngine(DefaultHunterConfig(), DefaultRouteConfig())
	if err != nil {
		panic(err) // defaults are validated by tests
	}
	return e
}

// Scorer returns the engine's permit scorer.
func (e *Engine) Scorer() *Scorer { return e.scorer }

// ClusterHotPermits detects hot zones among the hot, placed permits in permits.
func (e *Engine) ClusterHotPermits(permits []model.Permit) []Cluster {
	return ClusterHotPermits(permits, e.cluster)
}

// countyDisplayName collapses whitespace. Viper lowercases map keys, so an
// all-lowercase name is title-cased for display.
func countyDisplayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == strings.ToLower(name) {
		return cases.Title(language.English).String(name)
	}
	return name
}

// foldKey normalizes names for case-insensitive matching. Casers are not
// safe for concurrent use, so each call builds its own.
func foldKey(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}
