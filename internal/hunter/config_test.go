package hunter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-hunter/internal/config"
	"github.com/sells-group/lead-hunter/internal/model"
)

func TestDefaultsValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateWeights(DefaultWeights()))
	assert.NoError(t, ValidateRouteConfig(DefaultRouteConfig()))
	assert.NotPanics(t, func() { DefaultEngine() })
}

func TestValidateWeights_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(w *config.WeightsConfig)
		wantErr string
	}{
		{"zero hot", func(w *config.WeightsConfig) { w.StatusHot = 0 }, "status_hot must be > 0"},
		{"negative base", func(w *config.WeightsConfig) { w.Base = -1 }, "base must be >= 0"},
		{"saturation too small", func(w *config.WeightsConfig) { w.ClusterSaturation = 1 }, "cluster_saturation must be >= 2"},
		{"new outranks hot", func(w *config.WeightsConfig) { w.StatusNew = 45 }, "status_new must be < status_hot"},
		{"cluster outranks status", func(w *config.WeightsConfig) { w.ClusterWeight = 50 }, "cluster_weight must be < status_hot"},
		{"cold not negative", func(w *config.WeightsConfig) { w.StatusCold = 0 }, "status_cold must be < 0"},
		{"visited below cold", func(w *config.WeightsConfig) { w.StatusVisited = -30 }, "status_visited must be > status_cold"},
		{"recency outranks cluster", func(w *config.WeightsConfig) { w.RecencyWeight = 30 }, "recency_weight must be <= cluster_weight"},
		{"builder outranks recency", func(w *config.WeightsConfig) { w.BuilderRepeatCap = 25 }, "builder_repeat_cap must be <= recency_weight"},
		{"thresholds inverted", func(w *config.WeightsConfig) { w.MediumThreshold = 80 }, "medium_threshold must be > 0 and < high_threshold"},
		{"high above 100", func(w *config.WeightsConfig) { w.HighThreshold = 120 }, "high_threshold must be <= 100"},
		{"base crowds out hot zone bonus", func(w *config.WeightsConfig) { w.Base = 60 }, "isolated hot maximum 154.0 must be < 100"},
		{"multiplier crowds out hot zone bonus", func(w *config.WeightsConfig) { w.CommercialMultiplier = 1.2 }, "isolated hot maximum 108.0 must be < 100"},
		{"zero multiplier", func(w *config.WeightsConfig) { w.CommercialMultiplier = 0 }, "commercial_multiplier must be > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := DefaultWeights()
			tt.mutate(&w)
			err := ValidateWeights(w)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateRouteConfig_Failures(t *testing.T) {
	t.Parallel()

	rc := DefaultRouteConfig()
	rc.AverageSpeedKPH = 0
	rc.DwellMinutes = -1
	rc.MaxMinutes = 0

	err := ValidateRouteConfig(rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "average_speed_kph must be > 0")
	assert.Contains(t, err.Error(), "dwell_minutes must be >= 0")
	assert.Contains(t, err.Error(), "max_minutes must be > 0")
}

func TestLoadWeightsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("overlay keeps missing keys", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "weights.yaml")
		require.NoError(t, os.WriteFile(path, []byte("status_hot: 50\nhigh_threshold: 75\n"), 0o644))

		w, err := LoadWeightsFile(path, DefaultWeights())
		require.NoError(t, err)
		assert.InDelta(t, 50, w.StatusHot, 1e-9)
		assert.Equal(t, 75, w.HighThreshold)
		assert.InDelta(t, DefaultWeights().ClusterWeight, w.ClusterWeight, 1e-9)
	})

	t.Run("invalid table rejected", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("status_cold: 5\n"), 0o644))

		w, err := LoadWeightsFile(path, DefaultWeights())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status_cold must be < 0")
		assert.Equal(t, DefaultWeights(), w)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("status_hot: [\n"), 0o644))

		_, err := LoadWeightsFile(path, DefaultWeights())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse weights file")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadWeightsFile(filepath.Join(dir, "nope.yaml"), DefaultWeights())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read weights file")
	})
}

func TestNewEngine_FoldsCountyNames(t *testing.T) {
	t.Parallel()

	hc := DefaultHunterConfig()
	hc.Counties = map[string][]string{"  Suffolk   County ": {"Boston"}}
	e, err := NewEngine(hc, DefaultRouteConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"Suffolk County"}, e.Counties())
}

func TestNewEngine_CountyDisplayNames(t *testing.T) {
	t.Parallel()

	hc := DefaultHunterConfig()
	hc.Counties = map[string][]string{
		"middlesex":      {"Cambridge"},
		"MIDDLESEX":      {"Newton"},
		"Norfolk":        {"Quincy"},
		"hampden county": {"Springfield"},
	}
	e, err := NewEngine(hc, DefaultRouteConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"Hampden County", "MIDDLESEX", "Norfolk"}, e.Counties())

	c1 := permit("c1", model.StatusNew, 42.37, -71.11)
	c1.City = "Cambridge"
	n1 := permit("n1", model.StatusNew, 42.33, -71.21)
	n1.City = "Newton"
	res, err := e.GenerateRecommendations([]model.Permit{c1, n1}, Filter{County: "Middlesex"}, testNow)
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 2)
}
