package music

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Duration is the upstream's song length as it was sent, either a number of
// seconds or a numeric string. It is echoed back unchanged; absent is 0.
type Duration struct {
	raw json.RawMessage
}

// DurationOf builds a Duration from a number of seconds.
func DurationOf(s float64) Duration {
	return Duration{raw: json.RawMessage(strconv.FormatFloat(s, 'f', -1, 64))}
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		d.raw = nil
		return nil
	}
	d.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	if len(d.raw) == 0 {
		return []byte("0"), nil
	}
	return d.raw, nil
}

// Seconds returns the length in seconds when the value is numeric.
func (d Duration) Seconds() (float64, bool) {
	if len(d.raw) == 0 {
		return 0, true
	}
	s := string(d.raw)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(d.raw, &s); err != nil {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (d Duration) String() string {
	if len(d.raw) == 0 {
		return "0"
	}
	return string(d.raw)
}
