package timex

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampFormat is the persisted layout: UTC, second precision, no zone.
const TimestampFormat = "2006-01-02T15:04:05"

// Timestamp is a UTC instant truncated to the second. It marshals to
// TimestampFormat so that persisted tables sort lexicographically and
// round-trip exactly.
type Timestamp struct {
	time.Time
}

// NewTimestamp normalises t to UTC and drops sub-second precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampFormat)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(TimestampFormat, s, time.UTC)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = parsed
	return nil
}
