package geo

import (
	"github.com/twpayne/go-polyline"
)

// EncodePolyline returns the google encoded polyline of coords.
func EncodePolyline(coords []Coordinate) string {
	points := make([][]float64, len(coords))
	for i, c := range coords {
		points[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(points))
}

func DecodePolyline(s string) ([]Coordinate, error) {
	points, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, err
	}
	coords := make([]Coordinate, len(points))
	for i, p := range points {
		coords[i] = NewCoordinate(p[0], p[1])
	}
	return coords, nil
}
