package spatialindex

import (
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

// Rtree indexes stops by position. stops are points, their bounding box is degenerate.
type Rtree struct {
	tr *rtree.RTreeG[da.Stop]
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[da.Stop]
	return &Rtree{
		tr: &tr,
	}
}

func (rt *Rtree) Build(stops []da.Stop, log *zap.Logger) {
	log.Info("Building R-tree spatial index...", zap.Int("stops", len(stops)))
	for _, s := range stops {
		rt.Insert(s)
	}
	log.Info("R-tree spatial index built.")
}

func (rt *Rtree) Insert(s da.Stop) {
	p := [2]float64{s.Lon, s.Lat}
	rt.tr.Insert(p, p, s)
}

func (rt *Rtree) Len() int {
	return rt.tr.Len()
}

// SearchWithinRadius returns every stop within radius (in km) from the query point (qLat, qLon).
// the r-tree answers the bounding box, the exact distance is checked on the spherical cap.
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []da.Stop {
	return rt.SearchCap(geo.NewCap(geo.NewCoordinate(qLat, qLon), radius))
}

func (rt *Rtree) SearchCap(c geo.Cap) []da.Stop {
	lower, upper := c.Bound()

	results := make([]da.Stop, 0, 16)
	rt.tr.Search(lower, upper,
		func(min, max [2]float64, data da.Stop) bool {
			if c.ContainsPoint(data.Lat, data.Lon) {
				results = append(results, data)
			}
			return true
		})
	return results
}
