package guidance

import (
	"math"

	"github.com/lintang-b-s/navigatorx-transit/pkg/geo"
)

var compassPoints = [8]string{"north", "north-east", "east", "south-east", "south", "south-west", "west", "north-west"}

// computeInitialBearing bearing from a to b with meridian line crossing a, in degrees.
func computeInitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.NewCoordinate(lat1, lon1).BearingTo(geo.NewCoordinate(lat2, lon2))
}

// compassPoint names the 45 degree sector of bearing.
func compassPoint(bearing float64) string {
	sector := int(math.Floor(math.Mod(bearing+22.5, 360) / 45))
	return compassPoints[sector%8]
}
