package hunter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/lead-hunter/internal/model"
)

// NoPermitsGoal is the daily goal when nothing is left to recommend.
const NoPermitsGoal = "No permits to review today. Import new permits or widen the location filter."

// Filter narrows the permit set by location before scoring.
// When both are set a permit must match both.
type Filter struct {
	Cities []string `json:"cities,omitempty"`
	County string   `json:"county,omitempty"`
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return len(f.Cities) == 0 && strings.TrimSpace(f.County) == ""
}

// Summary aggregates a recommendation pass.
type Summary struct {
	TotalAnalyzed  int    `json:"total_analyzed"`
	HighPriority   int    `json:"high_priority"`
	MediumPriority int    `json:"medium_priority"`
	LowPriority    int    `json:"low_priority"`
	Excluded       int    `json:"excluded"`
	HotZones       int    `json:"hot_zones"`
	DailyGoal      string `json:"daily_goal"`
}

// Result is the output of GenerateRecommendations.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	Summary         Summary          `json:"summary"`
	Clusters        []Cluster        `json:"clusters"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// GenerateRecommendations filters, clusters, scores and ranks permits.
// The output depends only on (permits, filter, now).
func (e *Engine) GenerateRecommendations(permits []model.Permit, filter Filter, now time.Time) (*Result, error) {
	for _, p := range permits {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	match, err := e.locationMatcher(filter)
	if err != nil {
		return nil, err
	}

	builderOpen := openPermitsByBuilder(permits)

	candidates := make([]model.Permit, 0, len(permits))
	excluded := 0
	for _, p := range permits {
		if !match(p) {
			continue
		}
		if !p.Placed() || p.Status.Terminal() {
			excluded++
			continue
		}
		candidates = append(candidates, p)
	}

	clusters := ClusterHotPermits(candidates, e.cluster)
	sizes := clusterSizes(clusters)

	recs := make([]Recommendation, 0, len(candidates))
	for _, p := range candidates {
		sc := ScoreContext{ClusterSize: sizes[p.ID]}
		if key := builderKey(p.BuilderName); key != "" {
			sc.BuilderOpenPermits = builderOpen[key] - 1
		}
		recs = append(recs, e.scorer.Score(p, sc, now))
	}
	sortRecommendations(recs)

	summary := Summary{
		TotalAnalyzed: len(recs),
		Excluded:      excluded,
		HotZones:      len(clusters),
	}
	for _, r := range recs {
		switch r.Priority {
		case PriorityHigh:
			summary.HighPriority++
		case PriorityMedium:
			summary.MediumPriority++
		default:
			summary.LowPriority++
		}
	}
	summary.DailyGoal = dailyGoal(recs, clusters, summary, candidates)

	return &Result{
		Recommendations: recs,
		Summary:         summary,
		Clusters:        clusters,
		GeneratedAt:     now,
	}, nil
}

// sortRecommendations orders by score desc, then created_at asc (older is
// more urgent), then permit id for a total order.
func sortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Permit.CreatedAt.Equal(b.Permit.CreatedAt) {
			return a.Permit.CreatedAt.Before(b.Permit.CreatedAt)
		}
		return a.PermitID < b.PermitID
	})
}

// locationMatcher resolves the filter into a predicate. An unknown county is
// a validation error rather than an empty result.
func (e *Engine) locationMatcher(f Filter) (func(model.Permit) bool, error) {
	if f.Empty() {
		return func(model.Permit) bool { return true }, nil
	}

	var cities map[string]bool
	if len(f.Cities) > 0 {
		cities = make(map[string]bool, len(f.Cities))
		for _, c := range f.Cities {
			if k := foldKey(c); k != "" {
				cities[k] = true
			}
		}
	}

	var county map[string]bool
	if name := strings.TrimSpace(f.County); name != "" {
		members, ok := e.counties[foldKey(name)]
		if !ok {
			return nil, &ValidationError{Field: "county", Message: fmt.Sprintf("unknown county %q", name)}
		}
		county = make(map[string]bool, len(members.cities))
		for _, c := range members.cities {
			county[foldKey(c)] = true
		}
	}

	return func(p model.Permit) bool {
		k := foldKey(p.City)
		if cities != nil && !cities[k] {
			return false
		}
		if county != nil && !county[k] {
			return false
		}
		return true
	}, nil
}

// FilterPermits returns the permits matching the location filter, in input order.
func (e *Engine) FilterPermits(permits []model.Permit, f Filter) ([]model.Permit, error) {
	match, err := e.locationMatcher(f)
	if err != nil {
		return nil, err
	}
	out := make([]model.Permit, 0, len(permits))
	for _, p := range permits {
		if match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Counties lists the configured county display names, sorted.
func (e *Engine) Counties() []string {
	names := make([]string, 0, len(e.counties))
	for _, c := range e.counties {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

// openPermitsByBuilder counts non-terminal permits per normalized builder
// across the whole input, regardless of filter or placement.
func openPermitsByBuilder(permits []model.Permit) map[string]int {
	counts := make(map[string]int)
	for _, p := range permits {
		if p.Status.Terminal() {
			continue
		}
		if key := builderKey(p.BuilderName); key != "" {
			counts[key]++
		}
	}
	return counts
}

func builderKey(name string) string {
	return foldKey(name)
}

func dailyGoal(recs []Recommendation, clusters []Cluster, s Summary, permits []model.Permit) string {
	if len(recs) == 0 {
		return NoPermitsGoal
	}

	if len(clusters) > 0 {
		area := clusterArea(largestCluster(clusters), permits)
		hot := 0
		for _, c := range clusters {
			hot += c.Count
		}
		return fmt.Sprintf("Focus on the %d hot-zone %s in %s: %d hot permits close enough to visit in one trip.",
			len(clusters), plural(len(clusters), "cluster", "clusters"), area, hot)
	}

	top := recs[0]
	where := top.Permit.FullAddress()
	if where == "" {
		where = "permit " + top.PermitID
	}

	switch {
	case s.HighPriority > 0:
		return fmt.Sprintf("Visit the %d high-priority %s, starting with %s.",
			s.HighPriority, plural(s.HighPriority, "permit", "permits"), where)
	case s.MediumPriority > 0:
		return fmt.Sprintf("No high-priority permits today. Work through the %d medium-priority %s, starting with %s.",
			s.MediumPriority, plural(s.MediumPriority, "permit", "permits"), where)
	default:
		return fmt.Sprintf("Only low-priority permits remain. Call builders on the %d open %s instead of driving.",
			s.LowPriority, plural(s.LowPriority, "permit", "permits"))
	}
}

func largestCluster(clusters []Cluster) Cluster {
	best := clusters[0]
	for _, c := range clusters[1:] {
		if c.Count > best.Count {
			best = c
		}
	}
	return best
}

// clusterArea names a cluster by the most common member city.
func clusterArea(c Cluster, permits []model.Permit) string {
	byID := make(map[string]model.Permit, len(permits))
	for _, p := range permits {
		byID[p.ID] = p
	}

	counts := make(map[string]int)
	for _, id := range c.Members {
		if city := foldKey(byID[id].City); city != "" {
			counts[city]++
		}
	}

	best, bestN := "", 0
	for city, n := range counts {
		if n > bestN || (n == bestN && city < best) {
			best, bestN = city, n
		}
	}
	if best == "" {
		return fmt.Sprintf("the area around %.4f, %.4f", c.Center.Lat, c.Center.Lng)
	}
	return cases.Title(language.English).String(best)
}
