package config

import (
	"time"

	"github.com/openshelf/presence-engine/presence"
)

// Defaults returns the hardcoded configuration set served when the persistent
// source is unreachable, so dependent computations remain available.
func Defaults() map[string]any {
	return map[string]any{
		presence.KeyDemoMode:                 presence.DefaultDemoMode,
		presence.KeyProductionModeEnabled:    presence.DefaultProductionModeEnabled,
		presence.KeyScanDebounceSeconds:      float64(presence.DefaultScanDebounceSeconds),
		presence.KeyEntryConfidenceThreshold: float64(presence.DefaultEntryConfidenceThreshold),
		presence.KeyEntryManualThreshold:     float64(presence.DefaultEntryManualThreshold),
		presence.KeyEntryDebounceMinutes:     float64(presence.DefaultEntryDebounceMinutes),
		presence.KeyLibraryOpenHour:          float64(presence.DefaultLibraryOpenHour),
		presence.KeyLibraryCloseHour:         float64(presence.DefaultLibraryCloseHour),
		presence.KeyLibraryWiFiSSID:          presence.DefaultLibraryWiFiSSID,
		presence.KeyGPSLibraryLat:            presence.DefaultGPSLibraryLat,
		presence.KeyGPSLibraryLng:            presence.DefaultGPSLibraryLng,
		presence.KeyGPSInnerZoneMeters:       float64(presence.DefaultGPSInnerZoneMeters),
		presence.KeyGPSOuterZoneMeters:       float64(presence.DefaultGPSOuterZoneMeters),
		presence.KeyMotionSpeedThreshold:     float64(presence.DefaultMotionSpeedThreshold),
	}
}

// defaultsSnapshot builds the fallback snapshot used when a reload fails.
// The previous cache contents are discarded, not merged.
func defaultsSnapshot(loadedAt time.Time) *snapshot {
	return &snapshot{
		values:       Defaults(),
		entries:      make(map[string]presence.ConfigEntry),
		loadedAt:     loadedAt,
		fromDefaults: true,
	}
}
