package trigger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"wildcam/internal/services"
)

// Payload is the telemetry carried by a trigger. Every field is optional; a
// nil field is stored as NULL.
type Payload struct {
	Temp       *float64 `json:"temp,omitempty"`
	Humidity   *float64 `json:"humidity,omitempty"`
	Battery    *int64   `json:"battery,omitempty"`
	LightState *int64   `json:"light_state,omitempty"`

	// Ignored lists telemetry keys whose values had the wrong type.
	Ignored []string `json:"-"`
}

// Decode parses a trigger message. Anything other than a JSON object is
// rejected with services.ErrMalformedTrigger. Unknown keys are ignored, and a
// known key with an unusable value is dropped and listed in Ignored.
func Decode(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Payload{}, services.Wrap(services.ErrMalformedTrigger, "trigger", "decode", "payload is not a JSON object", nil)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Payload{}, services.Wrap(services.ErrMalformedTrigger, "trigger", "decode", "invalid JSON", err)
	}

	var p Payload
	var ok bool
	if raw, present := fields["temp"]; present {
		if p.Temp, ok = decodeFloat(raw); !ok {
			p.Ignored = append(p.Ignored, "temp")
		}
	}
	if raw, present := fields["humidity"]; present {
		if p.Humidity, ok = decodeFloat(raw); !ok {
			p.Ignored = append(p.Ignored, "humidity")
		}
	}
	if raw, present := fields["battery"]; present {
		if p.Battery, ok = decodeInt(raw); !ok {
			p.Ignored = append(p.Ignored, "battery")
		}
	}
	if raw, present := fields["light_state"]; present {
		if p.LightState, ok = decodeLightState(raw); !ok {
			p.Ignored = append(p.Ignored, "light_state")
		}
	}
	sort.Strings(p.Ignored)
	return p, nil
}

// Encode renders p as a trigger message.
func Encode(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode trigger: %w", err)
	}
	return data, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeFloat(raw json.RawMessage) (*float64, bool) {
	if isNull(raw) {
		return nil, true
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// int64Bound is 2^63, the first float64 value past the int64 range.
const int64Bound float64 = 1 << 63

// decodeInt accepts whole JSON numbers, including 87.0, that fit in an int64.
func decodeInt(raw json.RawMessage) (*int64, bool) {
	f, ok := decodeFloat(raw)
	if !ok || f == nil {
		return nil, ok
	}
	if *f != math.Trunc(*f) || *f < -int64Bound || *f >= int64Bound {
		return nil, false
	}
	v := int64(*f)
	return &v, true
}

func decodeLightState(raw json.RawMessage) (*int64, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		var v int64
		if b {
			v = 1
		}
		return &v, true
	}
	return decodeInt(raw)
}
