package presence

import (
	"context"
	"math"
)

// Per-signal score caps. GPS degrades linearly between the inner and outer
// geofence radii; Wi-Fi and motion are step functions.
const (
	gpsScoreMax       = 40
	gpsScoreOuterEdge = 20
	wifiScoreMatch    = 40
	motionScoreStill  = 20
	motionScoreNoData = 10
	totalScoreMax     = 100
)

// Zone classifies a coordinate relative to the library geofence.
type Zone string

const (
	ZoneInner   Zone = "inner"
	ZoneOuter   Zone = "outer"
	ZoneOutside Zone = "outside"
)

// ConfidenceDetails carries the inputs behind the GPS component of a score.
type ConfidenceDetails struct {
	DistanceMeters float64
	Zone           Zone
}

// Confidence is the breakdown of a presence confidence score.
// Invariants: GPS in [0,40], WiFi in {0,40}, Motion in {0,10,20},
// Total = GPS + WiFi + Motion, clamped to [0,100].
type Confidence struct {
	GPS     int
	WiFi    int
	Motion  int
	Total   int
	Details ConfidenceDetails
}

// SettingsReader is the configuration access the scorer and the entry policy
// need. It is satisfied by config.Store; lookups never fail, they fall back
// to the supplied default.
type SettingsReader interface {
	Number(ctx context.Context, key string, defaultValue float64) float64
	Bool(ctx context.Context, key string, defaultValue bool) bool
	String(ctx context.Context, key string, defaultValue string) string
}

// Scorer combines GPS, Wi-Fi and motion signals into a 0-100 confidence score.
// The library center, geofence radii, SSID and motion threshold come from the
// settings source on every call, so configuration changes take effect without
// rebuilding the scorer.
type Scorer struct {
	settings SettingsReader
}

// NewScorer creates a Scorer reading its tuning from the given settings source.
func NewScorer(settings SettingsReader) Scorer {
	return Scorer{settings: settings}
}

// Score computes the confidence breakdown for a reported position.
// wifiSSID and speedKmh are optional signals; nil means "not reported".
func (s Scorer) Score(ctx context.Context, at Coordinate, wifiSSID *string, speedKmh *float64) Confidence {
	center := Coordinate{
		Latitude:  s.settings.Number(ctx, KeyGPSLibraryLat, DefaultGPSLibraryLat),
		Longitude: s.settings.Number(ctx, KeyGPSLibraryLng, DefaultGPSLibraryLng),
	}
	innerMeters := s.settings.Number(ctx, KeyGPSInnerZoneMeters, DefaultGPSInnerZoneMeters)
	outerMeters := s.settings.Number(ctx, KeyGPSOuterZoneMeters, DefaultGPSOuterZoneMeters)

	distanceMeters := DistanceMeters(at, center)
	gpsScore, zone := scoreGPS(distanceMeters, innerMeters, outerMeters)

	librarySSID := s.settings.String(ctx, KeyLibraryWiFiSSID, DefaultLibraryWiFiSSID)
	wifiScore := scoreWiFi(wifiSSID, librarySSID)

	speedThreshold := s.settings.Number(ctx, KeyMotionSpeedThreshold, DefaultMotionSpeedThreshold)
	motionScore := scoreMotion(speedKmh, speedThreshold)

	return Confidence{
		GPS:    gpsScore,
		WiFi:   wifiScore,
		Motion: motionScore,
		Total:  clampTotal(gpsScore + wifiScore + motionScore),
		Details: ConfidenceDetails{
			DistanceMeters: distanceMeters,
			Zone:           zone,
		},
	}
}

func scoreGPS(distanceMeters float64, innerMeters float64, outerMeters float64) (int, Zone) {
	switch {
	case distanceMeters <= innerMeters:
		return gpsScoreMax, ZoneInner

	case distanceMeters <= outerMeters:
		// Linear falloff from 40 at the inner radius down to 20 at the outer radius.
		falloff := (distanceMeters - innerMeters) / (outerMeters - innerMeters) * gpsScoreOuterEdge
		return int(math.Round(gpsScoreMax - falloff)), ZoneOuter

	default:
		return 0, ZoneOutside
	}
}

func scoreWiFi(reportedSSID *string, librarySSID string) int {
	if reportedSSID == nil || librarySSID == "" {
		return 0
	}

	if *reportedSSID == librarySSID {
		return wifiScoreMatch
	}

	return 0
}

func scoreMotion(speedKmh *float64, thresholdKmh float64) int {
	if speedKmh == nil {
		return motionScoreNoData // partial credit for unknown motion state
	}

	if *speedKmh < thresholdKmh {
		return motionScoreStill
	}

	return 0
}

func clampTotal(total int) int {
	if total < 0 {
		return 0
	}

	if total > totalScoreMax {
		return totalScoreMax
	}

	return total
}
