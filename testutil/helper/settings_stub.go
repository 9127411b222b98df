package helper

import "context"

// SettingsStub implements presence.SettingsReader from fixed maps. Keys not
// present fall back to the supplied default, like the real config store does.
type SettingsStub struct {
	Numbers map[string]float64
	Bools   map[string]bool
	Strings map[string]string
}

// NewSettingsStub creates an empty stub; every lookup returns its default.
func NewSettingsStub() *SettingsStub {
	return &SettingsStub{
		Numbers: make(map[string]float64),
		Bools:   make(map[string]bool),
		Strings: make(map[string]string),
	}
}

// Number returns the stubbed number for key, or defaultValue.
func (s *SettingsStub) Number(_ context.Context, key string, defaultValue float64) float64 {
	if value, ok := s.Numbers[key]; ok {
		return value
	}

	return defaultValue
}

// Bool returns the stubbed flag for key, or defaultValue.
func (s *SettingsStub) Bool(_ context.Context, key string, defaultValue bool) bool {
	if value, ok := s.Bools[key]; ok {
		return value
	}

	return defaultValue
}

// String returns the stubbed string for key, or defaultValue.
func (s *SettingsStub) String(_ context.Context, key string, defaultValue string) string {
	if value, ok := s.Strings[key]; ok {
		return value
	}

	return defaultValue
}
