package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sub returns the object stored under key, if it is one.
func (r Record) Sub(key string) (Record, bool) {
	switch v := r[key].(type) {
	case Record:
		return v, true
	case map[string]any:
		return Record(v), true
	default:
		return nil, false
	}
}

// String returns the trimmed string stored under key, or "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return strings.TrimSpace(s)
}

// FirstString returns the first non-empty string among keys.
func (r Record) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := r.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Float returns the finite number stored under key. Numeric strings are
// accepted because several API versions quote their numbers.
func (r Record) Float(key string) (float64, bool) {
	var f float64
	switch v := r[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FirstFloat returns the first finite number among keys.
func (r Record) FirstFloat(keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := r.Float(k); ok {
			return f, true
		}
	}
	return 0, false
}

// Time parses the timestamp stored under key. RFC3339 strings and unix
// epoch numbers (seconds or milliseconds) are accepted.
func (r Record) Time(key string) (time.Time, bool) {
	if s := r.String(key); s != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	n, ok := r.Float(key)
	if !ok || n <= 0 {
		return time.Time{}, false
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC(), true
	}
	return time.Unix(int64(n), 0).UTC(), true
}

// FirstTime returns the first parseable timestamp among keys.
func (r Record) FirstTime(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if t, ok := r.Time(k); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Strings returns the string-valued entries of the object under key.
func (r Record) Strings(key string) map[string]string {
	sub, ok := r.Sub(key)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(sub))
	for k, v := range sub {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out[k] = strings.TrimSpace(s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
