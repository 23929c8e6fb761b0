package geo

import (
	"github.com/golang/geo/s2"
)

// Cap is a spherical cap, the set of points within a great circle distance of a center.
type Cap struct {
	center Coordinate
	radius float64
	cap    s2.Cap
}

// NewCap radius in km
func NewCap(center Coordinate, radius float64) Cap {
	return Cap{
		center: center,
		radius: radius,
		cap:    s2.CapFromCenterAngle(s2.PointFromLatLng(center.latLng()), kmToAngle(radius)),
	}
}

func (c Cap) GetCenter() Coordinate {
	return c.center
}

func (c Cap) GetRadius() float64 {
	return c.radius
}

func (c Cap) ContainsPoint(lat, lon float64) bool {
	return c.cap.ContainsPoint(s2.PointFromLatLng(NewCoordinate(lat, lon).latLng()))
}

// Bound returns the (min, max) corners, as (lon, lat), of a box covering the cap.
// caps across the antimeridian get the full longitude range.
func (c Cap) Bound() ([2]float64, [2]float64) {
	rect := c.cap.RectBound()
	lower := [2]float64{-180, rect.Lo().Lat.Degrees()}
	upper := [2]float64{180, rect.Hi().Lat.Degrees()}
	if !rect.Lng.IsInverted() && !rect.Lng.IsFull() {
		lower[0] = rect.Lo().Lng.Degrees()
		upper[0] = rect.Hi().Lng.Degrees()
	}
	return lower, upper
}

// BetweenCap is the cap centred at the midpoint of a and b with radius factor*d(a,b)/2 + margin (km).
func BetweenCap(a, b Coordinate, factor, margin float64) Cap {
	midLat, midLon := MidPoint(a.Lat, a.Lon, b.Lat, b.Lon)
	d := a.DistanceTo(b)
	return NewCap(NewCoordinate(midLat, midLon), factor*d/2+margin)
}
