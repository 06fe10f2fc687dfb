package logfile

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one normalized log line. Timestamp is epoch milliseconds, nil
// for legacy lines and for lines whose timestamp could not be parsed.
type Record struct {
	Timestamp *int64
	Line      string
}

// Records serialize as two-element [timestamp, line] arrays. This is the
// stored format of cached log files; keep it stable across releases.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{r.Timestamp, r.Line})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("log record must be a [timestamp, line] pair: %w", err)
	}
	if string(pair[0]) != "null" {
		var ts int64
		if err := json.Unmarshal(pair[0], &ts); err != nil {
			return fmt.Errorf("log record timestamp: %w", err)
		}
		r.Timestamp = &ts
	} else {
		r.Timestamp = nil
	}
	return json.Unmarshal(pair[1], &r.Line)
}

// File is the cached raw log for one task attempt and stream, stored
// under the log:file: key. Size is the upstream-reported size at fetch
// time and drives staleness checks.
type File struct {
	Size    int64    `json:"log_size"`
	Content []Record `json:"content"`
}

// epochMillis converts an RFC 3339 timestamp to epoch milliseconds.
// Returns nil when the value cannot be parsed; a bad timestamp on one
// line never fails the fetch.
func epochMillis(value string) *int64 {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
