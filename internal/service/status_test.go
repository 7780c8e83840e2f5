package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/telemetry"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/stretchr/testify/assert"
)

func TestServiceStatusFromErr(t *testing.T) {
	storageErr := func(kind adapter.ErrorKind, status int) error {
		return &adapter.StorageHTTPError{Response: adapter.ErrorResponse{Kind: kind, Status: status}}
	}
	tests := []struct {
		name string
		err  error
		want models.ServiceStatus
	}{
		{name: "nil", err: nil, want: models.StatusOk},
		{name: "interrupted", err: checkInterrupted(cancelledContext()), want: models.StatusInterrupted},
		{name: "store saw cancellation", err: fmt.Errorf("apply: %w", context.Canceled), want: models.StatusInterrupted},
		{name: "tokenserver 401", err: &adapter.TokenserverHTTPError{Status: http.StatusUnauthorized}, want: models.StatusAuthenticationError},
		{name: "tokenserver 503", err: &adapter.TokenserverHTTPError{Status: http.StatusServiceUnavailable}, want: models.StatusServiceError},
		{name: "backoff", err: &adapter.BackoffError{Until: time.Now().Add(time.Minute)}, want: models.StatusBackedOff},
		{name: "storage 401", err: storageErr(adapter.ErrorUnauthorized, http.StatusUnauthorized), want: models.StatusAuthenticationError},
		{name: "storage 500", err: storageErr(adapter.ErrorServer, http.StatusInternalServerError), want: models.StatusServiceError},
		{name: "wrapped storage 412", err: fmt.Errorf("upload: %w", adapter.NewPreconditionFailed("history")), want: models.StatusServiceError},
		{name: "transport", err: &adapter.RequestError{Op: "GET", Err: errors.New("connection refused")}, want: models.StatusNetworkError},
		{name: "hawk", err: fmt.Errorf("sign: %w", adapter.ErrHawk), want: models.StatusNetworkError},
		{name: "anything else", err: errors.New("boom"), want: models.StatusOtherError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ServiceStatusFromErr(tt.err))
		})
	}
}

func TestFailureFromErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want telemetry.SyncFailure
	}{
		{name: "interrupted", err: checkInterrupted(cancelledContext()), want: telemetry.ShutdownFailure()},
		{name: "tokenserver auth", err: &adapter.TokenserverHTTPError{Status: http.StatusUnauthorized}, want: telemetry.AuthFailure("tokenserver")},
		{name: "tokenserver http", err: &adapter.TokenserverHTTPError{Status: http.StatusBadGateway}, want: telemetry.HTTPFailure(http.StatusBadGateway)},
		{name: "storage auth", err: &adapter.StorageHTTPError{Response: adapter.ErrorResponse{Kind: adapter.ErrorUnauthorized, Status: 401}}, want: telemetry.AuthFailure("storage")},
		{name: "storage http", err: &adapter.StorageHTTPError{Response: adapter.ErrorResponse{Kind: adapter.ErrorServer, Status: 503}}, want: telemetry.HTTPFailure(503)},
		{name: "other", err: errors.New("boom"), want: telemetry.OtherFailure("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failureFromErr(tt.err))
		})
	}
}

func TestSyncResult_SetSyncAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no backoff", func(t *testing.T) {
		r := newSyncResult()
		r.setSyncAfter(0, now)
		assert.Nil(t, r.NextSyncAfter)
	})

	t.Run("listener backoff", func(t *testing.T) {
		r := newSyncResult()
		r.setSyncAfter(30*time.Second, now)
		if assert.NotNil(t, r.NextSyncAfter) {
			assert.Equal(t, now.Add(30*time.Second), *r.NextSyncAfter)
		}
	})

	t.Run("latest backoff error wins", func(t *testing.T) {
		r := newSyncResult()
		r.Result = &adapter.BackoffError{Until: now.Add(time.Minute)}
		r.EngineResults["history"] = fmt.Errorf("sync: %w", &adapter.BackoffError{Until: now.Add(time.Hour)})
		r.EngineResults["tabs"] = nil
		r.setSyncAfter(10*time.Second, now)
		if assert.NotNil(t, r.NextSyncAfter) {
			assert.Equal(t, now.Add(time.Hour), *r.NextSyncAfter)
		}
	})
}

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
