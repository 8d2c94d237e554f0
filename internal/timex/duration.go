// Package timex provides a JSON-friendly wrapper around time.Duration used by
// configuration files.
package timex

import (
	"encoding/json"
	"errors"
	"time"
)

// Duration accepts both duration strings ("15m", "72h") and integer
// nanoseconds when unmarshalled from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return errors.New("invalid duration")
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}
