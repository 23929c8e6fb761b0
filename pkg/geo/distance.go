package geo

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

func (c Coordinate) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lon)
}

func fromLatLng(ll s2.LatLng) Coordinate {
	return NewCoordinate(ll.Lat.Degrees(), ll.Lng.Normalized().Degrees())
}

const (
	earthRadiusKM = 6371.0
)

func kmToAngle(km float64) s1.Angle {
	return s1.Angle(km / earthRadiusKM)
}

// CalculateHaversineDistance. great circle distance in km
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	return NewCoordinate(latOne, longOne).DistanceTo(NewCoordinate(latTwo, longTwo))
}

// DistanceTo in km.
func (c Coordinate) DistanceTo(o Coordinate) float64 {
	return c.latLng().Distance(o.latLng()).Radians() * earthRadiusKM
}

// MidPoint returns the (lat, lon) halfway along the great circle between the two points.
func MidPoint(latOne, longOne, latTwo, longTwo float64) (float64, float64) {
	a := s2.PointFromLatLng(NewCoordinate(latOne, longOne).latLng())
	b := s2.PointFromLatLng(NewCoordinate(latTwo, longTwo).latLng())
	mid := fromLatLng(s2.LatLngFromPoint(s2.Interpolate(0.5, a, b)))
	return mid.Lat, mid.Lon
}
