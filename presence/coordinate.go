package presence

import "math"

const earthRadiusKm = 6371.0

// Coordinate is a GPS position in decimal degrees. It is an immutable value type.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// DistanceKm returns the great-circle distance between two coordinates in
// kilometers, computed with the haversine formula.
func DistanceKm(a Coordinate, b Coordinate) float64 {
	latA := degreesToRadians(a.Latitude)
	latB := degreesToRadians(b.Latitude)
	deltaLat := degreesToRadians(b.Latitude - a.Latitude)
	deltaLng := degreesToRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceMeters returns the great-circle distance between two coordinates in meters.
func DistanceMeters(a Coordinate, b Coordinate) float64 {
	return DistanceKm(a, b) * 1000
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
