package hunter

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-hunter/internal/config"
)

// DefaultWeights returns the default scoring weight table.
func DefaultWeights() config.WeightsConfig {
	return config.DefaultWeights()
}

// DefaultHunterConfig returns clustering and scoring defaults.
func DefaultHunterConfig() config.HunterConfig {
	return config.DefaultHunterConfig()
}

// DefaultRouteConfig returns route estimate defaults. No default business
// location is set.
func DefaultRouteConfig() config.RouteConfig {
	return config.DefaultRouteConfig()
}

// ValidateWeights checks that a weight table is internally consistent and
// keeps the intended order of influence.
func ValidateWeights(w config.WeightsConfig) error {
	var errs []string

	positive := map[string]float64{
		"status_hot":             w.StatusHot,
		"cluster_weight":         w.ClusterWeight,
		"recency_half_life_days": w.RecencyHalfLifeDays,
		"commercial_multiplier":  w.CommercialMultiplier,
	}
	for name, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0", name))
		}
	}

	nonNegative := map[string]float64{
		"base":                  w.Base,
		"recency_weight":        w.RecencyWeight,
		"builder_repeat_weight": w.BuilderRepeatWeight,
		"builder_repeat_cap":    w.BuilderRepeatCap,
		"contact_weight":        w.ContactWeight,
	}
	for name, v := range nonNegative {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if w.ClusterSaturation < 2 {
		errs = append(errs, "cluster_saturation must be >= 2")
	}

	// Status dominates.
	for name, v := range map[string]float64{
		"status_new":         w.StatusNew,
		"status_not_visited": w.StatusNotVisited,
		"status_contacted":   w.StatusContacted,
		"cluster_weight":     w.ClusterWeight,
	} {
		if v >= w.StatusHot {
			errs = append(errs, fmt.Sprintf("%s must be < status_hot", name))
		}
	}
	for name, v := range map[string]float64{
		"status_visited":   w.StatusVisited,
		"status_contacted": w.StatusContacted,
	} {
		if v <= w.StatusCold {
			errs = append(errs, fmt.Sprintf("%s must be > status_cold", name))
		}
	}
	if w.StatusCold >= 0 {
		errs = append(errs, "status_cold must be < 0")
	}
	if w.RecencyWeight > w.ClusterWeight {
		errs = append(errs, "recency_weight must be <= cluster_weight")
	}
	if w.BuilderRepeatCap > w.RecencyWeight {
		errs = append(errs, "builder_repeat_cap must be <= recency_weight")
	}

	if w.MediumThreshold <= 0 || w.MediumThreshold >= w.HighThreshold {
		errs = append(errs, "medium_threshold must be > 0 and < high_threshold")
	}
	if w.HighThreshold > 100 {
		errs = append(errs, "high_threshold must be <= 100")
	}
	// An isolated hot permit at full marks must stay below the clamp, or the
	// hot zone bonus disappears at the top of the scale.
	if isolatedHotMax(w) >= 100 {
		errs = append(errs, fmt.Sprintf("isolated hot maximum %.1f must be < 100", isolatedHotMax(w)))
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("hunter: weights validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// isolatedHotMax is the best score a hot permit outside any hot zone can
// reach before clamping.
func isolatedHotMax(w config.WeightsConfig) float64 {
	total := w.Base + w.StatusHot + w.RecencyWeight + w.BuilderRepeatCap + w.ContactWeight
	if w.CommercialMultiplier > 1 {
		total *= w.CommercialMultiplier
	}
	return total
}

// ValidateRouteConfig checks route estimate parameters.
func ValidateRouteConfig(rc config.RouteConfig) error {
	var errs []string
	if rc.AverageSpeedKPH <= 0 {
		errs = append(errs, "average_speed_kph must be > 0")
	}
	if rc.DwellMinutes < 0 {
		errs = append(errs, "dwell_minutes must be >= 0")
	}
	if rc.MaxMinutes <= 0 {
		errs = append(errs, "max_minutes must be > 0")
	}
	if len(errs) > 0 {
		return eris.Errorf("hunter: route config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadWeightsFile overlays the weight table in a YAML file on top of base.
// Keys missing from the file keep their base value.
func LoadWeightsFile(path string, base config.WeightsConfig) (config.WeightsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, eris.Wrapf(err, "hunter: read weights file %s", path)
	}

	w := base
	if err := yaml.Unmarshal(data, &w); err != nil {
		return base, eris.Wrapf(err, "hunter: parse weights file %s", path)
	}
	if err := ValidateWeights(w); err != nil {
		return base, eris.Wrapf(err, "hunter: weights file %s", path)
	}
	return w, nil
}
