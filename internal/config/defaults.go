package config

import "github.com/spf13/viper"

const (
	// DefaultClusterRadiusDeg is roughly 1 km at mid latitudes.
	DefaultClusterRadiusDeg = 0.01
	// DefaultMinClusterSize is the smallest hot zone.
	DefaultMinClusterSize = 2
)

// DefaultWeights returns the default scoring weight table.
// Influence order: status > cluster > recency > builder repetition > permit type.
func DefaultWeights() WeightsConfig {
	return WeightsConfig{
		Base: 10,

		// Status.
		StatusHot:        40,
		StatusNew:        15,
		StatusNotVisited: 10,
		StatusContacted:  5,
		StatusVisited:    -10,
		StatusCold:       -25,

		// Hot zone.
		ClusterWeight:     25,
		ClusterSaturation: 5,

		// Recency.
		RecencyWeight:       20,
		RecencyHalfLifeDays: 14,

		// Builder.
		BuilderRepeatWeight: 5,
		BuilderRepeatCap:    15,
		ContactWeight:       5,

		CommercialMultiplier: 1.1,

		// Buckets.
		HighThreshold:   70,
		MediumThreshold: 40,
	}
}

// DefaultHunterConfig returns clustering and scoring defaults.
func DefaultHunterConfig() HunterConfig {
	return HunterConfig{
		ClusterRadiusDeg: DefaultClusterRadiusDeg,
		MinClusterSize:   DefaultMinClusterSize,
		Weights:          DefaultWeights(),
	}
}

// DefaultRouteConfig returns route estimate defaults. No default business
// location is set.
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		DwellMinutes:    15,
		AverageSpeedKPH: 40,
		MaxMinutes:      240,
	}
}

// setHunterDefaults registers the hunter and route defaults with v.
func setHunterDefaults(v *viper.Viper) {
	h := DefaultHunterConfig()
	v.SetDefault("hunter.cluster_radius_deg", h.ClusterRadiusDeg)
	v.SetDefault("hunter.min_cluster_size", h.MinClusterSize)
	v.SetDefault("hunter.weights_file", h.WeightsFile)

	w := h.Weights
	v.SetDefault("hunter.weights.base", w.Base)
	v.SetDefault("hunter.weights.status_hot", w.StatusHot)
	v.SetDefault("hunter.weights.status_new", w.StatusNew)
	v.SetDefault("hunter.weights.status_not_visited", w.StatusNotVisited)
	v.SetDefault("hunter.weights.status_contacted", w.StatusContacted)
	v.SetDefault("hunter.weights.status_visited", w.StatusVisited)
	v.SetDefault("hunter.weights.status_cold", w.StatusCold)
	v.SetDefault("hunter.weights.cluster_weight", w.ClusterWeight)
	v.SetDefault("hunter.weights.cluster_saturation", w.ClusterSaturation)
	v.SetDefault("hunter.weights.recency_weight", w.RecencyWeight)
	v.SetDefault("hunter.weights.recency_half_life_days", w.RecencyHalfLifeDays)
	v.SetDefault("hunter.weights.builder_repeat_weight", w.BuilderRepeatWeight)
	v.SetDefault("hunter.weights.builder_repeat_cap", w.BuilderRepeatCap)
	v.SetDefault("hunter.weights.contact_weight", w.ContactWeight)
	v.SetDefault("hunter.weights.commercial_multiplier", w.CommercialMultiplier)
	v.SetDefault("hunter.weights.high_threshold", w.HighThreshold)
	v.SetDefault("hunter.weights.medium_threshold", w.MediumThreshold)

	r := DefaultRouteConfig()
	v.SetDefault("route.dwell_minutes", r.DwellMinutes)
	v.SetDefault("route.average_speed_kph", r.AverageSpeedKPH)
	v.SetDefault("route.max_minutes", r.MaxMinutes)
	// Registered so HUNTER_ROUTE_DEFAULT_* environment overrides apply.
	v.SetDefault("route.default_address", r.DefaultAddress)
	v.SetDefault("route.default_latitude", r.DefaultLatitude)
	v.SetDefault("route.default_longitude", r.DefaultLongitude)
}
