package hunter

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/lead-hunter/internal/config"
	"github.com/sells-group/lead-hunter/internal/model"
)

const (
	// DefaultClusterRadiusDeg is roughly 1 km at mid latitudes.
	DefaultClusterRadiusDeg = config.DefaultClusterRadiusDeg
	// DefaultMinClusterSize is the smallest hot zone.
	DefaultMinClusterSize = config.DefaultMinClusterSize

	// radiusEpsilon absorbs float error for neighbors sitting exactly on the radius.
	radiusEpsilon = 1e-12
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Cluster is a hot zone: two or more hot permits within the cluster radius.
type Cluster struct {
	Center  Point    `json:"center"`
	Members []string `json:"members"`
	Count   int      `json:"count"`
}

// ClusterParams controls hot zone detection.
type ClusterParams struct {
	RadiusDeg float64
	MinSize   int
}

// DefaultClusterParams returns a 0.01° radius and a minimum size of 2.
func DefaultClusterParams() ClusterParams {
	return ClusterParams{RadiusDeg: DefaultClusterRadiusDeg, MinSize: DefaultMinClusterSize}
}

// Validate checks the parameters.
func (p ClusterParams) Validate() error {
	if p.RadiusDeg <= 0 || math.IsNaN(p.RadiusDeg) || math.IsInf(p.RadiusDeg, 0) {
		return eris.Errorf("hunter: cluster radius must be > 0, got %v", p.RadiusDeg)
	}
	if p.MinSize < 2 {
		return eris.Errorf("hunter: min cluster size must be >= 2, got %d", p.MinSize)
	}
	return nil
}

// ClusterHotPermits finds hot zones among permits with status hot. Unplaced
// and non-hot permits are ignored, so callers may pass the full permit list.
//
// Distances are Euclidean in degree space, which stretches east-west at high
// latitudes; acceptable for a single metro service area. Candidates are built
// around every hot permit in id order and a candidate is dropped when its
// center lies within radius/2 of an already accepted center, so output does
// not depend on input order.
//
// The neighbor search is O(n²) over hot permits. Past a few thousand hot
// permits replace it with a grid or k-d tree index.
func ClusterHotPermits(permits []model.Permit, params ClusterParams) []Cluster {
	if params.Validate() != nil {
		params = DefaultClusterParams()
	}

	hot := make([]model.Permit, 0, len(permits))
	for _, p := range permits {
		if p.Status == model.StatusHot && p.Placed() {
			hot = append(hot, p)
		}
	}
	if len(hot) < params.MinSize {
		return []Cluster{}
	}
	sort.SliceStable(hot, func(i, j int) bool { return hot[i].ID < hot[j].ID })

	var candidates []Cluster
	for _, p := range hot {
		var members []model.Permit
		for _, q := range hot {
			if degreeDistance(p.Latitude, p.Longitude, q.Latitude, q.Longitude) <= params.RadiusDeg+radiusEpsilon {
				members = append(members, q)
			}
		}
		if len(members) < params.MinSize {
			continue
		}
		candidates = append(candidates, newCluster(members))
	}

	accepted := []Cluster{}
	dedup := params.RadiusDeg / 2
	for _, c := range candidates {
		duplicate := false
		for _, a := range accepted {
			if degreeDistance(c.Center.Lat, c.Center.Lng, a.Center.Lat, a.Center.Lng) <= dedup {
				duplicate = true
				break
			}
		}
		if !duplicate {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

// newCluster builds a cluster centered on the mean of member coordinates.
func newCluster(members []model.Permit) Cluster {
	flat := make([]float64, 0, 2*len(members))
	ids := make([]string, 0, len(members))
	for _, m := range members {
		flat = append(flat, m.Longitude, m.Latitude)
		ids = append(ids, m.ID)
	}
	center := xy.MultiPointCentroid(geom.NewMultiPointFlat(geom.XY, flat))

	return Cluster{
		Center:  Point{Lat: center.Y(), Lng: center.X()},
		Members: ids,
		Count:   len(ids),
	}
}

func degreeDistance(lat1, lng1, lat2, lng2 float64) float64 {
	return math.Hypot(lat2-lat1, lng2-lng1)
}

// clusterSizes maps each member id to the size of the largest cluster it belongs to.
func clusterSizes(clusters []Cluster) map[string]int {
	sizes := make(map[string]int)
	for _, c := range clusters {
		for _, id := range c.Members {
			if c.Count > sizes[id] {
				sizes[id] = c.Count
			}
		}
	}
	return sizes
}
