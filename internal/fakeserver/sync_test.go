package fakeserver_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync15/internal/config"
	"github.com/MKhiriev/go-sync15/internal/fakeserver"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/service"
	"github.com/MKhiriev/go-sync15/internal/store"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type device struct {
	manager *service.SyncManager
	history *store.HistoryStore
	params  models.SyncParams
}

func newDevice(t *testing.T, ts *httptest.Server, syncKey, id string) *device {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()

	db, err := store.NewConnectSQLite(ctx, ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	history := store.NewHistoryStore(db, log)

	manager := service.NewSyncManager(service.SyncEnv{
		NewClient: service.NewStorageClientFactory(config.ClientAdapter{RequestTimeout: 5 * time.Second}, nil, log),
		Log:       log,
	})
	require.NoError(t, manager.SetStore(models.HistoryCollection, history))

	return &device{
		manager: manager,
		history: history,
		params: models.SyncParams{
			Reason:         models.ReasonUser,
			SyncAllEngines: true,
			AccountKeyID:   "kid",
			AccessToken:    "opaque-access-token",
			SyncKey:        syncKey,
			TokenserverURL: ts.URL,
			FxaDeviceID:    id,
			DeviceName:     "device " + id,
			DeviceType:     models.DeviceDesktop,
		},
	}
}

func (d *device) sync(t *testing.T) *models.SyncResultReport {
	t.Helper()
	report, err := d.manager.Sync(context.Background(), d.params)
	require.NoError(t, err)
	d.params.PersistedState = report.PersistedState
	return report
}

func newSyncKey(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 64)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func TestSync_HistoryBetweenTwoDevices(t *testing.T) {
	ctx := context.Background()
	fs := fakeserver.New(fakeserver.Options{}, logger.Nop())
	ts := httptest.NewServer(fs.Handler())
	t.Cleanup(ts.Close)

	key := newSyncKey(t)
	first := newDevice(t, ts, key, "device-a")
	second := newDevice(t, ts, key, "device-b")

	require.NoError(t, first.history.RecordVisit(ctx, "https://example.com/", "Example",
		models.TransitionLink, time.Now().Add(-time.Hour)))

	report := first.sync(t)
	require.Equal(t, models.StatusOk, report.Status, "results: %v", report.Results)
	assert.Empty(t, report.Results[models.HistoryCollection])
	assert.NotEmpty(t, report.PersistedState)

	assert.Len(t, fs.Collection("meta"), 1)
	assert.Len(t, fs.Collection("crypto"), 1)
	assert.Len(t, fs.Collection(models.HistoryCollection), 1)
	assert.Len(t, fs.Collection("clients"), 1)

	report = second.sync(t)
	require.Equal(t, models.StatusOk, report.Status, "results: %v", report.Results)
	n, err := second.history.PageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, fs.Collection("clients"), 2)

	// nothing changed locally, the history collection stays put
	before := fs.Collection(models.HistoryCollection)
	report = first.sync(t)
	require.Equal(t, models.StatusOk, report.Status, "results: %v", report.Results)
	assert.Equal(t, before, fs.Collection(models.HistoryCollection))
}

func TestSync_ServerBackoff(t *testing.T) {
	fs := fakeserver.New(fakeserver.Options{}, logger.Nop())
	ts := httptest.NewServer(fs.Handler())
	t.Cleanup(ts.Close)

	d := newDevice(t, ts, newSyncKey(t), "device-a")
	fs.SetBackoff(600)

	report := d.sync(t)
	require.NotNil(t, report.NextSyncAllowedAt)
	assert.Greater(t, *report.NextSyncAllowedAt, time.Now().Add(5*time.Minute).UnixMilli())

	served := fs.RequestCount()
	d.params.Reason = models.ReasonScheduled
	report = d.sync(t)
	assert.Equal(t, models.StatusBackedOff, report.Status)
	assert.Equal(t, served, fs.RequestCount(), "a backed off sync does not reach the server")

	d.params.Reason = models.ReasonUser
	report = d.sync(t)
	assert.NotEqual(t, models.StatusBackedOff, report.Status)
	assert.Greater(t, fs.RequestCount(), served)
}
