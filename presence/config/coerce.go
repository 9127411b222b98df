package config

import (
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/openshelf/presence-engine/presence"
)

var json = jsoniter.ConfigFastest

// coerceRaw converts a stored text value into its typed form according to the
// entry's type tag. A value that does not parse falls back to the raw string
// rather than failing the whole snapshot.
func coerceRaw(raw string, valueType presence.ValueType) any {
	switch valueType {
	case presence.ValueTypeNumber:
		if number, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
			return number
		}

		return raw

	case presence.ValueTypeBoolean:
		return raw == "true"

	case presence.ValueTypeJSON:
		var structured any
		if unmarshalErr := json.UnmarshalFromString(raw, &structured); unmarshalErr == nil {
			return structured
		}

		return raw

	default:
		return raw
	}
}

// rawFromValue converts a caller-supplied value into its stored text form and
// the coerced form readers will observe.
func rawFromValue(value any, valueType presence.ValueType) (string, any) {
	switch valueType {
	case presence.ValueTypeNumber:
		if number, ok := asNumber(value); ok {
			return strconv.FormatFloat(number, 'f', -1, 64), number
		}

	case presence.ValueTypeBoolean:
		if flag, ok := asBool(value); ok {
			return strconv.FormatBool(flag), flag
		}

	case presence.ValueTypeJSON:
		if encoded, marshalErr := json.MarshalToString(value); marshalErr == nil {
			return encoded, value
		}

	case presence.ValueTypeString:
		if text, ok := value.(string); ok {
			return text, text
		}
	}

	// Type tag and supplied value disagree; store the JSON form so nothing is lost.
	encoded, marshalErr := json.MarshalToString(value)
	if marshalErr != nil {
		return "", value
	}

	return encoded, value
}

// inferValueType picks a type tag for a key that has no persisted entry yet.
func inferValueType(value any) presence.ValueType {
	switch value.(type) {
	case bool:
		return presence.ValueTypeBoolean

	case int, int32, int64, float32, float64:
		return presence.ValueTypeNumber

	case string:
		return presence.ValueTypeString

	default:
		return presence.ValueTypeJSON
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func asBool(value any) (bool, bool) {
	flag, ok := value.(bool)
	return flag, ok
}
