package adapter

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/models"
)

// Response is the outcome of a storage request that reached the server.
// Err is nil for a 2xx; Record and LastModified are only set then.
type Response[T any] struct {
	Status       int
	Record       T
	LastModified models.ServerTimestamp
	Route        string
	Err          *ErrorResponse
}

// IsSuccess reports whether the server answered with a 2xx.
func (r Response[T]) IsSuccess() bool {
	return r.Err == nil
}

// StorageError converts the response into an error. Calling it on a
// success yields a RequestFailed error.
func (r Response[T]) StorageError() error {
	if r.Err != nil {
		return &StorageHTTPError{Response: *r.Err}
	}
	return &StorageHTTPError{Response: ErrorResponse{Kind: ErrorRequestFailed, Route: r.Route, Status: r.Status}}
}

// newResponse notes backoff headers and decodes a storage response body.
func newResponse[T any](status int, header http.Header, body []byte, route string,
	backoff *BackoffListener, log *logger.Logger) (Response[T], error) {
	if ra, ok := parseSeconds(header.Get("Retry-After")); ok {
		backoff.NoteRetryAfter(ra)
	}
	if bo, ok := parseSeconds(header.Get("X-Weave-Backoff")); ok {
		backoff.NoteBackoff(bo)
	}

	resp := Response[T]{Status: status, Route: route}
	if errResp := mapHTTPError(status, route); errResp != nil {
		log.Info().Str("route", route).Int("status", status).Msg("storage request failed")
		resp.Err = errResp
		return resp, nil
	}

	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp.Record); err != nil {
			return resp, fmt.Errorf("decode %s response: %w", route, err)
		}
	}
	lm := header.Get("X-Last-Modified")
	if lm == "" {
		return resp, ErrMissingServerTimestamp
	}
	ts, err := models.ParseServerTimestamp(lm)
	if err != nil {
		return resp, fmt.Errorf("%w: %v", ErrMissingServerTimestamp, err)
	}
	resp.LastModified = ts
	log.Debug().Str("route", route).Stringer("last_modified", ts).Msg("storage request succeeded")
	return resp, nil
}

// parseSeconds reads a Retry-After or X-Weave-Backoff value: float seconds,
// rounded up. Values that are not finite, negative or out of range are
// ignored.
func parseSeconds(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	secs := math.Ceil(f)
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 || secs >= math.MaxUint32 {
		return 0, false
	}
	return uint32(secs), true
}
