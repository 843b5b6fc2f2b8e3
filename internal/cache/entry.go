package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Class separates scenario variations from parent situations. Each class
// has its own disk mapping and its own size bound.
type Class string

const (
	Scenario  Class = "scenario"
	Situation Class = "situation"
)

var Classes = []Class{Scenario, Situation}

// Key builds the composite "{topic}_{id}" key.
func Key(topic string, id any) string {
	return fmt.Sprintf("%s_%v", topic, id)
}

// Entry is one cached artifact with its lifetime.
type Entry struct {
	Content   json.RawMessage `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Expiry    time.Time       `json:"expiry"`
}

// timestamps written without a zone are read as local time
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseISO(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range isoLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// UnmarshalJSON accepts RFC 3339 and zone-less ISO 8601 timestamps. An
// unreadable timestamp leaves the zero time, so the entry reads as expired.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content   json.RawMessage `json:"content"`
		Timestamp string          `json:"timestamp"`
		Expiry    string          `json:"expiry"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Content = compact(raw.Content)
	e.Timestamp, _ = parseISO(raw.Timestamp)
	e.Expiry, _ = parseISO(raw.Expiry)
	return nil
}

// Valid reports whether the entry is still within its lifetime at now.
func (e Entry) Valid(now time.Time) bool {
	return !e.Expiry.IsZero() && now.Before(e.Expiry)
}

func compact(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// evictOldest keeps the max newest entries by timestamp.
func evictOldest(entries map[string]Entry, max int) []string {
	if len(entries) <= max {
		return nil
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ti, tj := entries[keys[i]].Timestamp, entries[keys[j]].Timestamp
		if ti.Equal(tj) {
			return keys[i] < keys[j]
		}
		return ti.After(tj)
	})
	evicted := keys[max:]
	for _, k := range evicted {
		delete(entries, k)
	}
	return evicted
}
