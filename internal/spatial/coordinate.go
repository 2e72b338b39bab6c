package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// ValidCoordinate reports whether lat/lng (degrees) is a finite point on the sphere
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return s2.LatLngFromDegrees(lat, lng).IsValid()
}
