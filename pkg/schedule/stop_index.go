package schedule

import (
	"context"
	"sort"
	"strings"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/geo"
	"github.com/lintang-b-s/navigatorx-transit/pkg/spatialindex"
	"go.uber.org/zap"
)

type StopIndexConfig struct {
	// BetweenFactor scales half the distance between the two stations into the cap radius.
	BetweenFactor float64
	// BetweenMarginKm is added to the cap radius.
	BetweenMarginKm float64
}

func DefaultStopIndexConfig() StopIndexConfig {
	return StopIndexConfig{
		BetweenFactor:   1.3,
		BetweenMarginKm: 2.0,
	}
}

// StopIndex resolves station names and the stops lying between two stations.
type StopIndex struct {
	stops  []da.Stop
	byName map[string][]da.Stop
	tree   *spatialindex.Rtree
	cfg    StopIndexConfig
}

func NewStopIndex(stops []da.Stop, cfg StopIndexConfig, log *zap.Logger) *StopIndex {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BetweenFactor <= 0 {
		cfg.BetweenFactor = DefaultStopIndexConfig().BetweenFactor
	}
	if cfg.BetweenMarginKm < 0 {
		cfg.BetweenMarginKm = 0
	}
	idx := &StopIndex{
		stops:  stops,
		byName: make(map[string][]da.Stop),
		tree:   spatialindex.NewRtree(),
		cfg:    cfg,
	}
	for _, s := range stops {
		key := normalizeName(s.Name)
		idx.byName[key] = append(idx.byName[key], s)
	}
	idx.tree.Build(stops, log)
	return idx
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (idx *StopIndex) Stops() []da.Stop {
	return idx.stops
}

func (idx *StopIndex) Len() int {
	return len(idx.stops)
}

// ResolveStopsByName returns every stop whose name equals name, ignoring case.
func (idx *StopIndex) ResolveStopsByName(_ context.Context, name string) ([]da.Stop, error) {
	matches := idx.byName[normalizeName(name)]
	out := make([]da.Stop, len(matches))
	copy(out, matches)
	return out, nil
}

// SearchByName returns up to limit stops whose name contains query, exact matches first.
func (idx *StopIndex) SearchByName(query string, limit int) []da.Stop {
	q := normalizeName(query)
	if q == "" {
		return []da.Stop{}
	}
	out := make([]da.Stop, 0, 8)
	out = append(out, idx.byName[q]...)
	for _, s := range idx.stops {
		if limit > 0 && len(out) >= limit {
			break
		}
		name := normalizeName(s.Name)
		if name != q && strings.Contains(name, q) {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

/*
StopsBetween returns a, b and every stop inside the spherical cap centred at the midpoint of a and b,
of radius BetweenFactor * d(a, b) / 2 + BetweenMarginKm. the r-tree answers the cap's bounding box and
the cap itself filters the candidates.
*/
func (idx *StopIndex) StopsBetween(_ context.Context, a, b da.Stop) ([]da.Stop, error) {
	c := geo.BetweenCap(geo.NewCoordinate(a.Lat, a.Lon), geo.NewCoordinate(b.Lat, b.Lon),
		idx.cfg.BetweenFactor, idx.cfg.BetweenMarginKm)
	inside := idx.tree.SearchCap(c)
	sort.Slice(inside, func(i, j int) bool {
		return inside[i].ID < inside[j].ID
	})

	out := make([]da.Stop, 0, len(inside)+2)
	seen := make(map[string]bool, len(inside)+2)
	for _, s := range append([]da.Stop{a, b}, inside...) {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out, nil
}
