package parser

import (
	"math"
)

// ValidateCoordinate validates a single geographic coordinate pair
func ValidateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90.0 || lat > 90.0 {
		return &ErrInvalidCoordinate{Lat: lat, Lon: lon}
	}
	if math.IsNaN(lon) || lon < -180.0 || lon > 180.0 {
		return &ErrInvalidCoordinate{Lat: lat, Lon: lon}
	}
	return nil
}
