package models

import (
	"encoding/json"
	"math"
)

const (
	defaultMaxRequestBytes       = 260 * 1024
	defaultMaxRecordPayloadBytes = 256 * 1024
)

// InfoConfiguration holds the upload limits advertised by
// info/configuration. Fields absent from the server response keep their
// defaults (see [DefaultInfoConfiguration]).
type InfoConfiguration struct {
	// MaxRequestBytes bounds the whole HTTP request body.
	MaxRequestBytes int `json:"max_request_bytes"`
	// MaxPostRecords bounds the number of records in one POST.
	MaxPostRecords int `json:"max_post_records"`
	// MaxPostBytes bounds the combined payload size of one POST.
	MaxPostBytes int `json:"max_post_bytes"`
	// MaxTotalRecords bounds the number of records in one batch.
	MaxTotalRecords int `json:"max_total_records"`
	// MaxTotalBytes bounds the combined payload size of one batch.
	MaxTotalBytes int `json:"max_total_bytes"`
	// MaxRecordPayloadBytes bounds a single BSO payload.
	MaxRecordPayloadBytes int `json:"max_record_payload_bytes"`
}

// DefaultInfoConfiguration is used when the server has no
// info/configuration document.
func DefaultInfoConfiguration() InfoConfiguration {
	return InfoConfiguration{
		MaxRequestBytes:       defaultMaxRequestBytes,
		MaxPostRecords:        math.MaxInt,
		MaxPostBytes:          math.MaxInt,
		MaxTotalRecords:       math.MaxInt,
		MaxTotalBytes:         math.MaxInt,
		MaxRecordPayloadBytes: defaultMaxRecordPayloadBytes,
	}
}

func (c *InfoConfiguration) UnmarshalJSON(b []byte) error {
	type plain InfoConfiguration
	cfg := plain(DefaultInfoConfiguration())
	if err := json.Unmarshal(b, &cfg); err != nil {
		return err
	}
	*c = InfoConfiguration(cfg)
	return nil
}

// InfoCollections maps collection names to their last modified time.
type InfoCollections map[string]ServerTimestamp

// Names returns the collection names as a set.
func (i InfoCollections) Names() map[string]struct{} {
	out := make(map[string]struct{}, len(i))
	for k := range i {
		out[k] = struct{}{}
	}
	return out
}

// HasTimestamp reports whether collection exists with exactly ts.
func (i InfoCollections) HasTimestamp(collection string, ts ServerTimestamp) bool {
	got, ok := i[collection]
	return ok && got == ts
}
