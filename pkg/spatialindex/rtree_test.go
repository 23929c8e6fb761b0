package spatialindex

import (
	"sort"
	"testing"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/geo"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRtreeSearch(t *testing.T) {
	rt := NewRtree()
	rt.Build([]da.Stop{
		da.NewStop("chatelet", "Châtelet", 48.8606, 2.3477),
		da.NewStop("hotel-de-ville", "Hôtel de Ville", 48.8573, 2.3520),
		da.NewStop("la-defense", "La Défense", 48.8918, 2.2380),
		da.NewStop("versailles", "Versailles", 48.8049, 2.1204),
	}, zap.NewNop())
	assert.Equal(t, 4, rt.Len())

	ids := func(stops []da.Stop) []string {
		out := make([]string, len(stops))
		for i, s := range stops {
			out[i] = s.ID
		}
		sort.Strings(out)
		return out
	}

	assert.Equal(t, []string{"chatelet", "hotel-de-ville"}, ids(rt.SearchWithinRadius(48.8590, 2.3500, 1)))
	assert.Equal(t, []string{"chatelet", "hotel-de-ville", "la-defense"}, ids(rt.SearchWithinRadius(48.8590, 2.3500, 9.5)))

	c := geo.BetweenCap(geo.NewCoordinate(48.8606, 2.3477), geo.NewCoordinate(48.8918, 2.2380), 1.0, 1.0)
	assert.Equal(t, []string{"chatelet", "hotel-de-ville", "la-defense"}, ids(rt.SearchCap(c)))
}
