package hunter

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/lead-hunter/internal/config"
	"github.com/sells-group/lead-hunter/internal/model"
)

// Priority is the categorical bucket derived from a score.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TimeOfDay is a suggested visit window.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// Score component keys.
const (
	ComponentBase       = "base"
	ComponentStatus     = "status"
	ComponentCluster    = "cluster"
	ComponentRecency    = "recency"
	ComponentBuilder    = "builder_repeat"
	ComponentContact    = "contact"
	ComponentPermitType = "permit_type"
)

// Recommendation is a scored permit with the reasons behind its score.
type Recommendation struct {
	PermitID          string             `json:"permit_id"`
	Permit            model.Permit       `json:"permit"`
	Priority          Priority           `json:"priority"`
	Score             int                `json:"score"`
	Reasons           []string           `json:"reasons"`
	RecommendedAction string             `json:"recommended_action"`
	TimeOfDay         TimeOfDay          `json:"time_of_day"`
	ClusterSize       int                `json:"cluster_size"`
	Components        map[string]float64 `json:"components"`
}

// ScoreContext carries the relative context a single permit is scored in.
type ScoreContext struct {
	// ClusterSize is the size of the hot zone the permit belongs to, 0 if none.
	ClusterSize int
	// BuilderOpenPermits counts the builder's other open permits.
	BuilderOpenPermits int
}

// Scorer computes additive, weighted permit scores.
type Scorer struct {
	w config.WeightsConfig
}

// NewScorer creates a Scorer with the given weight table.
func NewScorer(w config.WeightsConfig) *Scorer {
	return &Scorer{w: w}
}

// Weights returns the scorer's weight table.
func (s *Scorer) Weights() config.WeightsConfig { return s.w }

type contribution struct {
	key    string
	points float64
	reason string
}

// Score computes a single permit's score, bucket and reasons.
func (s *Scorer) Score(p model.Permit, sc ScoreContext, now time.Time) Recommendation {
	var contribs []contribution
	components := map[string]float64{ComponentBase: s.w.Base}

	// Status always produces a reason, even at zero weight.
	statusPts, statusReason := s.statusContribution(p.Status)
	contribs = append(contribs, contribution{ComponentStatus, statusPts, statusReason})

	if p.Status == model.StatusHot {
		if sc.ClusterSize >= 2 {
			pts := clusterPoints(s.w.ClusterWeight, sc.ClusterSize, s.w.ClusterSaturation)
			contribs = append(contribs, contribution{ComponentCluster, pts,
				fmt.Sprintf("In a hot zone with %d hot permits within about 1 km", sc.ClusterSize)})
		} else {
			contribs = append(contribs, contribution{ComponentCluster, 0,
				"Isolated: not part of a hot zone"})
		}
	}

	age := ageDays(p.CreatedAt, now)
	if pts := recencyPoints(s.w.RecencyWeight, age, s.w.RecencyHalfLifeDays); pts > 0 {
		contribs = append(contribs, contribution{ComponentRecency, pts, recencyReason(age)})
	}

	if strings.TrimSpace(p.BuilderName) != "" && sc.BuilderOpenPermits > 0 {
		pts := math.Min(s.w.BuilderRepeatCap, s.w.BuilderRepeatWeight*float64(sc.BuilderOpenPermits))
		contribs = append(contribs, contribution{ComponentBuilder, pts,
			fmt.Sprintf("Builder %s has %d other open %s", strings.TrimSpace(p.BuilderName),
				sc.BuilderOpenPermits, plural(sc.BuilderOpenPermits, "permit", "permits"))})
	}

	if strings.TrimSpace(p.BuilderPhone) != "" && s.w.ContactWeight > 0 {
		contribs = append(contribs, contribution{ComponentContact, s.w.ContactWeight, "Builder phone on file"})
	}

	switch p.PermitType {
	case model.PermitCommercial:
		positive := s.w.Base
		for _, c := range contribs {
			if c.points > 0 {
				positive += c.points
			}
		}
		pts := positive * (s.w.CommercialMultiplier - 1)
		contribs = append(contribs, contribution{ComponentPermitType, pts,
			fmt.Sprintf("Commercial permit: weighted x%.2f, visit during business hours", s.w.CommercialMultiplier)})
	case model.PermitResidential:
		contribs = append(contribs, contribution{ComponentPermitType, 0,
			"Residential permit: homeowners are easiest to reach in the evening"})
	}

	total := s.w.Base
	for _, c := range contribs {
		total += c.points
		components[c.key] += c.points
	}
	score := clampScore(total)

	// Largest absolute contribution first; ties keep insertion order.
	sort.SliceStable(contribs, func(i, j int) bool {
		return math.Abs(contribs[i].points) > math.Abs(contribs[j].points)
	})
	reasons := make([]string, 0, len(contribs))
	for _, c := range contribs {
		reasons = append(reasons, fmt.Sprintf("%s (%s)", c.reason, formatPoints(c.points)))
	}

	priority := s.Bucket(score)
	return Recommendation{
		PermitID:          p.ID,
		Permit:            p,
		Priority:          priority,
		Score:             score,
		Reasons:           reasons,
		RecommendedAction: recommendedAction(p, priority, sc.ClusterSize),
		TimeOfDay:         TimeOfDayFor(p.PermitType),
		ClusterSize:       sc.ClusterSize,
		Components:        components,
	}
}

// Bucket maps a score onto a priority using the configured thresholds.
func (s *Scorer) Bucket(score int) Priority {
	switch {
	case score >= s.w.HighThreshold:
		return PriorityHigh
	case score >= s.w.MediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func (s *Scorer) statusContribution(status model.PermitStatus) (float64, string) {
	switch status {
	case model.StatusHot:
		return s.w.StatusHot, "Hot permit: flagged as a strong opportunity"
	case model.StatusNew:
		return s.w.StatusNew, "New permit: builder not yet contacted"
	case model.StatusNotVisited:
		return s.w.StatusNotVisited, "Not visited yet"
	case model.StatusContacted:
		return s.w.StatusContacted, "Builder already contacted: follow up in person"
	case model.StatusVisited:
		return s.w.StatusVisited, "Already visited"
	case model.StatusCold:
		return s.w.StatusCold, "Marked cold"
	default:
		return 0, fmt.Sprintf("Status %s", status.Label())
	}
}

// TimeOfDayFor suggests a visit window from the permit type alone:
// commercial sites during business hours, homeowners after work.
func TimeOfDayFor(t model.PermitType) TimeOfDay {
	switch t {
	case model.PermitCommercial:
		return Morning
	case model.PermitResidential:
		return Evening
	default:
		return Afternoon
	}
}

func recommendedAction(p model.Permit, priority Priority, clusterSize int) string {
	hasPhone := strings.TrimSpace(p.BuilderPhone) != ""

	switch p.Status {
	case model.StatusHot:
		if clusterSize >= 2 {
			return fmt.Sprintf("Visit today and cover the %d-permit hot zone in one trip", clusterSize)
		}
		return "Visit today"
	case model.StatusNew:
		if priority == PriorityHigh {
			return "Stop by the site and introduce yourself"
		}
		if hasPhone {
			return "Call the builder to introduce yourself"
		}
		return "Drop by when you are in the area"
	case model.StatusNotVisited:
		return "Schedule a site visit"
	case model.StatusContacted:
		return "Follow up in person on the earlier conversation"
	case model.StatusVisited:
		if hasPhone {
			return "Follow up by phone"
		}
		return "Revisit only if nearby"
	case model.StatusCold:
		return "Skip unless passing by"
	default:
		return "Review permit"
	}
}

func recencyReason(age float64) string {
	days := int(age)
	switch {
	case days == 0:
		return "Filed today"
	case days == 1:
		return "Filed yesterday"
	default:
		return fmt.Sprintf("Filed %d days ago", days)
	}
}

func clampScore(total float64) int {
	score := int(math.Round(total))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func formatPoints(pts float64) string {
	r := math.Round(pts)
	if r == 0 {
		// -0 and tiny fractions
		return "+0"
	}
	return fmt.Sprintf("%+d", int(r))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
