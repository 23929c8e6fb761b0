package geo

import (
	"math"

	"github.com/golang/geo/s1"
)

// BearingTo is the initial bearing from c to o in degrees, clockwise from north in [0, 360).
func (c Coordinate) BearingTo(o Coordinate) float64 {
	a, b := c.latLng(), o.latLng()
	dLon := float64(b.Lng - a.Lng)
	lat1, lat2 := float64(a.Lat), float64(b.Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(s1.Angle(math.Atan2(y, x)).Degrees()+360, 360)
}
