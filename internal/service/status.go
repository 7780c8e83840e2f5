package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/telemetry"
	"github.com/MKhiriev/go-sync15/models"
)

// ServiceStatusFromErr classifies an error into the status reported to the
// caller. A nil error is [models.StatusOk].
func ServiceStatusFromErr(err error) models.ServiceStatus {
	if err == nil {
		return models.StatusOk
	}

	var (
		tokenErr   *adapter.TokenserverHTTPError
		storageErr *adapter.StorageHTTPError
		backoffErr *adapter.BackoffError
		requestErr *adapter.RequestError
	)
	switch {
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return models.StatusInterrupted
	case errors.As(err, &tokenErr):
		if tokenErr.Status == http.StatusUnauthorized {
			return models.StatusAuthenticationError
		}
		return models.StatusServiceError
	case errors.As(err, &backoffErr):
		return models.StatusBackedOff
	case errors.As(err, &storageErr):
		if storageErr.Response.Kind == adapter.ErrorUnauthorized {
			return models.StatusAuthenticationError
		}
		return models.StatusServiceError
	case errors.As(err, &requestErr), errors.Is(err, adapter.ErrHawk):
		return models.StatusNetworkError
	default:
		return models.StatusOtherError
	}
}

// failureFromErr converts an error into its telemetry failure reason.
func failureFromErr(err error) telemetry.SyncFailure {
	var (
		tokenErr   *adapter.TokenserverHTTPError
		storageErr *adapter.StorageHTTPError
	)
	switch {
	case errors.Is(err, ErrInterrupted), errors.Is(err, context.Canceled):
		return telemetry.ShutdownFailure()
	case errors.As(err, &tokenErr):
		if tokenErr.Status == http.StatusUnauthorized {
			return telemetry.AuthFailure("tokenserver")
		}
		return telemetry.HTTPFailure(tokenErr.Status)
	case errors.As(err, &storageErr):
		if storageErr.Response.Kind == adapter.ErrorUnauthorized {
			return telemetry.AuthFailure("storage")
		}
		return telemetry.HTTPFailure(storageErr.Response.Status)
	default:
		return telemetry.OtherFailure(err.Error())
	}
}

// SyncResult is the outcome of [SyncMultiple].
type SyncResult struct {
	// ServiceStatus is the overall status. Engine failures that are not
	// service problems leave it Ok.
	ServiceStatus models.ServiceStatus

	// Declined is the declined engine list after the sync, or nil when the
	// setup never got far enough to learn it.
	Declined []string

	// Result is the error that ended the sync early, if any.
	Result error

	// EngineResults maps every engine that was attempted to its error (nil
	// on success).
	EngineResults map[string]error

	Telemetry *telemetry.Ping

	// NextSyncAfter is set when the server asked us to back off.
	NextSyncAfter *time.Time
}

func newSyncResult() *SyncResult {
	return &SyncResult{
		ServiceStatus: models.StatusOtherError,
		EngineResults: map[string]error{},
		Telemetry:     telemetry.NewPing(),
	}
}

// setSyncAfter computes NextSyncAfter from the backoff the client noted and
// every backoff error seen during the sync.
func (r *SyncResult) setSyncAfter(backoff time.Duration, now time.Time) {
	until := now.Add(backoff)
	if t, ok := adapter.BackoffUntil(r.Result); ok && t.After(until) {
		until = t
	}
	for _, err := range r.EngineResults {
		if t, ok := adapter.BackoffUntil(err); ok && t.After(until) {
			until = t
		}
	}
	if !until.After(now) {
		r.NextSyncAfter = nil
		return
	}
	r.NextSyncAfter = &until
}
