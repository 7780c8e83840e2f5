// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ServerTimestamp is a point in time reported by the storage server, kept as
// integer milliseconds since the Unix epoch.
//
// On the wire (JSON bodies and the X-Last-Modified / X-If-Unmodified-Since
// headers) it is represented as float seconds, e.g. "1234.567". Timestamps
// are compared for exact equality when deciding whether cached global state
// is still fresh, which is why the integer form is canonical.
type ServerTimestamp int64

// ServerTimestampFromFloatSeconds converts float seconds into a
// [ServerTimestamp], rounding to the nearest millisecond. Non-finite, negative
// or out-of-range inputs yield zero.
func ServerTimestampFromFloatSeconds(ts float64) ServerTimestamp {
	rf := math.Round(ts * 1000)
	if math.IsNaN(rf) || math.IsInf(rf, 0) || rf < 0 || rf >= math.MaxInt64 {
		return 0
	}
	return ServerTimestamp(int64(rf))
}

// ServerTimestampFromMillis wraps a millisecond value. Negative values are
// clamped to zero.
func ServerTimestampFromMillis(ms int64) ServerTimestamp {
	if ms < 0 {
		return 0
	}
	return ServerTimestamp(ms)
}

// ParseServerTimestamp parses the header form (float seconds).
func ParseServerTimestamp(s string) (ServerTimestamp, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse server timestamp %q: %w", s, err)
	}
	return ServerTimestampFromFloatSeconds(f), nil
}

// Millis returns the timestamp in milliseconds.
func (t ServerTimestamp) Millis() int64 {
	return int64(t)
}

// Time converts the timestamp into a [time.Time].
func (t ServerTimestamp) Time() time.Time {
	return time.UnixMilli(int64(t))
}

// DurationSince returns t - other, or false when other is later than t.
func (t ServerTimestamp) DurationSince(other ServerTimestamp) (time.Duration, bool) {
	delta := int64(t) - int64(other)
	if delta < 0 {
		return 0, false
	}
	return time.Duration(delta) * time.Millisecond, true
}

// String renders the float seconds form used in headers and URLs.
func (t ServerTimestamp) String() string {
	return strconv.FormatFloat(float64(t)/1000, 'f', -1, 64)
}

func (t ServerTimestamp) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ServerTimestamp) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("decode server timestamp: %w", err)
	}
	*t = ServerTimestampFromFloatSeconds(f)
	return nil
}
