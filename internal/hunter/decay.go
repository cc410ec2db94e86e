package hunter

import (
	"math"
	"time"
)

// ageDays returns whole-and-fractional days between createdAt and now.
// Future timestamps count as age zero.
func ageDays(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours() / 24
	if age < 0 {
		return 0
	}
	return age
}

// recencyPoints decays weight exponentially with permit age.
// Formula: weight * 2^(-ageDays / halfLifeDays)
func recencyPoints(weight, ageDays, halfLifeDays float64) float64 {
	if weight <= 0 {
		return 0
	}
	if halfLifeDays <= 0 {
		halfLifeDays = 14
	}
	return weight * math.Pow(2, -ageDays/halfLifeDays)
}

// clusterPoints scales weight by cluster size with diminishing returns:
// weight * min(1, log2(size) / log2(saturation)). Sizes below 2 earn nothing.
func clusterPoints(weight float64, size, saturation int) float64 {
	if size < 2 || weight <= 0 {
		return 0
	}
	if saturation < 2 {
		saturation = 2
	}
	return weight * math.Min(1, math.Log2(float64(size))/math.Log2(float64(saturation)))
}
