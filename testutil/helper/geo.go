package helper

import "github.com/openshelf/presence-engine/presence"

// metersPerLatitudeDegree follows from the 6371 km Earth radius the engine
// uses: 6371 * 1000 * pi / 180.
const metersPerLatitudeDegree = 111194.92664455873

// CoordinateNorthOf returns a coordinate the given number of meters due north
// of center. Along a meridian the haversine distance is exact, which makes
// this suitable for placing test points at precise geofence distances.
func CoordinateNorthOf(center presence.Coordinate, meters float64) presence.Coordinate {
	return presence.Coordinate{
		Latitude:  center.Latitude + meters/metersPerLatitudeDegree,
		Longitude: center.Longitude,
	}
}

// DefaultLibraryCenter is the demo library center coordinate the engine
// defaults to when no configuration is present.
func DefaultLibraryCenter() presence.Coordinate {
	return presence.Coordinate{
		Latitude:  presence.DefaultGPSLibraryLat,
		Longitude: presence.DefaultGPSLibraryLng,
	}
}
