package presence

// Configuration keys consumed by the engine.
const (
	KeyDemoMode                 = "demo_mode"
	KeyProductionModeEnabled    = "production_mode_enabled"
	KeyScanDebounceSeconds      = "scan_debounce_seconds"
	KeyEntryConfidenceThreshold = "entry_confidence_threshold"
	KeyEntryManualThreshold     = "entry_manual_threshold"
	KeyEntryDebounceMinutes     = "entry_debounce_minutes"
	KeyLibraryOpenHour          = "library_open_hour"
	KeyLibraryCloseHour         = "library_close_hour"
	KeyLibraryWiFiSSID          = "library_wifi_ssid"
	KeyGPSLibraryLat            = "gps_library_lat"
	KeyGPSLibraryLng            = "gps_library_lng"
	KeyGPSInnerZoneMeters       = "gps_inner_zone_meters"
	KeyGPSOuterZoneMeters       = "gps_outer_zone_meters"
	KeyMotionSpeedThreshold     = "motion_speed_threshold"
)

// Documented defaults, used when the configuration source is unavailable
// or a key is absent.
const (
	DefaultDemoMode                 = true
	DefaultProductionModeEnabled    = false
	DefaultScanDebounceSeconds      = 300
	DefaultEntryConfidenceThreshold = 80
	DefaultEntryManualThreshold     = 50
	DefaultEntryDebounceMinutes     = 5
	DefaultLibraryOpenHour          = 8
	DefaultLibraryCloseHour         = 22
	DefaultLibraryWiFiSSID          = "Library-WiFi"
	DefaultGPSLibraryLat            = 40.7532
	DefaultGPSLibraryLng            = -73.9822
	DefaultGPSInnerZoneMeters       = 20
	DefaultGPSOuterZoneMeters       = 50
	DefaultMotionSpeedThreshold     = 5
)
