package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a point in time stored as Unix milliseconds.
//
// Decoding is lenient so that records written by older versions still load:
// numbers, numeric strings and RFC 3339 strings are accepted, and null or an
// empty string decode to the zero Timestamp. Callers replace zero values
// after loading.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to millisecond precision, the precision it is
// persisted with.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: time.UnixMilli(t.UnixMilli())}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, t.UnixMilli(), 10), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	const op = "models.Timestamp.UnmarshalJSON"

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		parsed, err := parseTimestamp(s)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		*t = parsed
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	*t = Timestamp{Time: time.UnixMilli(int64(ms))}
	return nil
}

func parseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Timestamp{Time: time.UnixMilli(ms)}, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, err
	}
	return NewTimestamp(parsed), nil
}
