package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/crypto"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type managerFixture struct {
	*syncFixture
	manager *SyncManager
	syncKey string
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := newSyncFixture(t)

	kSync := make([]byte, 64)
	_, err := rand.Read(kSync)
	require.NoError(t, err)
	syncKey := base64.RawURLEncoding.EncodeToString(kSync)
	f.root, err = crypto.KeyBundleFromKSyncBase64(syncKey)
	require.NoError(t, err)
	_, f.keys = newTestKeys(t, f.root, 10)

	return &managerFixture{syncFixture: f, manager: NewSyncManager(f.env()), syncKey: syncKey}
}

func (f *managerFixture) params(reason models.SyncReason) models.SyncParams {
	return models.SyncParams{
		Reason:         reason,
		SyncAllEngines: true,
		AccountKeyID:   f.init.KeyID,
		AccessToken:    f.init.AccessToken,
		TokenserverURL: f.init.TokenserverURL,
		SyncKey:        f.syncKey,
		FxaDeviceID:    "deviceAAAAAA",
		DeviceName:     "Laptop",
		DeviceType:     models.DeviceDesktop,
	}
}

// expectClientsSync expects the clients engine to find an empty collection
// and upload our own record.
func (f *managerFixture) expectClientsSync() {
	f.client.EXPECT().GetEncryptedRecords(gomock.Any(), gomock.Any()).
		Return(okResponse([]models.EncryptedBso{}, 9), nil)
	f.client.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any(), models.ServerTimestamp(9)).
		Return(adapter.Response[adapter.UploadResult]{
			Status:       http.StatusOK,
			Record:       adapter.UploadResult{Success: []models.Guid{"deviceAAAAAA"}},
			LastModified: 11,
		}, nil)
}

// ── Sync ──

func TestSyncManager_Sync(t *testing.T) {
	f := newManagerFixture(t)
	f.expectFullSetup(fullMetaGlobal())
	f.expectClientsSync()

	history := newTestStore(f.ctrl, "history")
	history.EXPECT().PrepareForSync(gomock.Any(), gomock.Any()).Return(nil)
	expectStoreSync(history, "history", 7)
	require.NoError(t, f.manager.SetStore(EngineHistory, history))

	report, err := f.manager.Sync(context.Background(), f.params(models.ReasonUser))
	require.NoError(t, err)

	assert.Equal(t, models.StatusOk, report.Status)
	assert.Equal(t, map[string]string{"history": ""}, report.Results)
	assert.True(t, report.HaveDeclined)
	assert.Equal(t, []string{}, report.Declined)
	assert.Nil(t, report.NextSyncAllowedAt)
	assert.NotEmpty(t, report.PersistedState)

	require.NotNil(t, report.TelemetryJSON)
	var ping map[string]any
	require.NoError(t, json.Unmarshal([]byte(*report.TelemetryJSON), &ping))
	assert.Equal(t, "hashed-uid", ping["uid"])
}

func TestSyncManager_SyncOnlySelectedEngines(t *testing.T) {
	f := newManagerFixture(t)
	f.expectFullSetup(fullMetaGlobal())
	f.expectClientsSync()

	history := newTestStore(f.ctrl, "history")
	passwords := newTestStore(f.ctrl, "passwords")
	passwords.EXPECT().PrepareForSync(gomock.Any(), gomock.Any()).Return(nil)
	expectStoreSync(passwords, "passwords", 8)
	require.NoError(t, f.manager.SetStore(EngineHistory, history))
	require.NoError(t, f.manager.SetStore(EnginePasswords, passwords))

	params := f.params(models.ReasonScheduled)
	params.SyncAllEngines = false
	params.EnginesToSync = []string{EnginePasswords}
	report, err := f.manager.Sync(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"passwords": ""}, report.Results)
}

func TestSyncManager_SyncFailureIsReported(t *testing.T) {
	f := newManagerFixture(t)
	f.client.EXPECT().FetchInfoConfiguration(gomock.Any()).
		Return(errResponse[models.InfoConfiguration](http.StatusUnauthorized, adapter.ErrorUnauthorized), nil)

	params := f.params(models.ReasonScheduled)
	params.PersistedState = `{"schema_version":"V2","declined":["tabs"]}`
	report, err := f.manager.Sync(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, models.StatusAuthenticationError, report.Status)
	assert.Empty(t, report.Results)
	assert.Equal(t, []string{"tabs"}, report.Declined)
	assert.Contains(t, report.PersistedState, "tabs")
}

func TestSyncManager_CheckEngineList(t *testing.T) {
	tests := []struct {
		name    string
		engines []string
		wantErr error
	}{
		{name: "unknown engine", engines: []string{"addons"}, wantErr: ErrUnknownEngine},
		{name: "known but not registered", engines: []string{EngineTabs}, wantErr: ErrUnsupportedFeature},
		{name: "first bad engine wins", engines: []string{EngineHistory, "addons", EngineTabs}, wantErr: ErrUnknownEngine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newManagerFixture(t)
			require.NoError(t, f.manager.SetStore(EngineHistory, newTestStore(f.ctrl, "history")))

			params := f.params(models.ReasonUser)
			params.EnginesToSync = tt.engines
			report, err := f.manager.Sync(context.Background(), params)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, report)
			assert.Equal(t, 0, f.created)
		})
	}
}

func TestSyncManager_BadSyncKey(t *testing.T) {
	f := newManagerFixture(t)
	params := f.params(models.ReasonUser)
	params.SyncKey = "not-a-key"

	_, err := f.manager.Sync(context.Background(), params)

	require.Error(t, err)
	assert.Equal(t, 0, f.created)
}

func TestSyncManager_BackoffGating(t *testing.T) {
	tests := []struct {
		name        string
		reason      models.SyncReason
		stateChange map[string]bool
		wantGated   bool
	}{
		{name: "scheduled waits", reason: models.ReasonScheduled, wantGated: true},
		{name: "startup waits", reason: models.ReasonStartup, wantGated: true},
		{name: "user ignores backoff", reason: models.ReasonUser},
		{name: "enabled change ignores backoff", reason: models.ReasonEnabledChange},
		{name: "state changes ignore backoff", reason: models.ReasonScheduled, stateChange: map[string]bool{"tabs": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newManagerFixture(t)
			until := testNow.Add(time.Hour)
			f.manager.mcs.nextSyncAfter = &until
			if !tt.wantGated {
				f.client.EXPECT().FetchInfoConfiguration(gomock.Any()).
					Return(errResponse[models.InfoConfiguration](http.StatusUnauthorized, adapter.ErrorUnauthorized), nil)
			}

			params := f.params(tt.reason)
			params.EnginesToChangeState = tt.stateChange
			params.PersistedState = "previous"
			report, err := f.manager.Sync(context.Background(), params)
			require.NoError(t, err)

			if tt.wantGated {
				assert.Equal(t, models.StatusBackedOff, report.Status)
				require.NotNil(t, report.NextSyncAllowedAt)
				assert.Equal(t, until.UnixMilli(), *report.NextSyncAllowedAt)
				assert.Equal(t, "previous", report.PersistedState)
				assert.False(t, report.HaveDeclined)
				assert.Nil(t, report.TelemetryJSON)
				assert.Equal(t, 0, f.created)
				return
			}
			assert.Equal(t, models.StatusAuthenticationError, report.Status)
			assert.Equal(t, 1, f.created)
		})
	}
}

func TestSyncManager_ExpiredBackoffIsIgnored(t *testing.T) {
	f := newManagerFixture(t)
	past := testNow.Add(-time.Minute)
	f.manager.mcs.nextSyncAfter = &past
	f.client.EXPECT().FetchInfoConfiguration(gomock.Any()).
		Return(errResponse[models.InfoConfiguration](http.StatusServiceUnavailable, adapter.ErrorServer), nil)

	report, err := f.manager.Sync(context.Background(), f.params(models.ReasonScheduled))

	require.NoError(t, err)
	assert.Equal(t, models.StatusServiceError, report.Status)
}

// ── registry operations ──

func TestSyncManager_WipeAndReset(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	history := newTestStore(f.ctrl, "history")
	require.NoError(t, f.manager.SetStore(EngineHistory, history))

	history.EXPECT().Wipe(gomock.Any()).Return(nil)
	require.NoError(t, f.manager.Wipe(ctx, EngineHistory))

	history.EXPECT().Reset(gomock.Any(), models.Disconnected()).Return(nil)
	require.NoError(t, f.manager.Reset(ctx, EngineHistory))

	require.ErrorIs(t, f.manager.Wipe(ctx, EngineBookmarks), ErrConnectionClosed)
	require.ErrorIs(t, f.manager.Reset(ctx, EngineTabs), ErrConnectionClosed)
	require.ErrorIs(t, f.manager.Wipe(ctx, "addons"), ErrUnknownEngine)
	require.ErrorIs(t, f.manager.Reset(ctx, "addons"), ErrUnknownEngine)

	f.manager.RemoveStore(EngineHistory)
	require.ErrorIs(t, f.manager.Wipe(ctx, EngineHistory), ErrConnectionClosed)
}

func TestSyncManager_SetStoreUnknownEngine(t *testing.T) {
	f := newManagerFixture(t)
	require.ErrorIs(t, f.manager.SetStore("addons", newTestStore(f.ctrl, "addons")), ErrUnknownEngine)
}

func TestSyncManager_WipeAllAndResetAll(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	history := newTestStore(f.ctrl, "history")
	tabs := newTestStore(f.ctrl, "tabs")
	require.NoError(t, f.manager.SetStore(EngineHistory, history))
	require.NoError(t, f.manager.SetStore(EngineTabs, tabs))

	history.EXPECT().Wipe(gomock.Any()).Return(nil)
	tabs.EXPECT().Wipe(gomock.Any()).Return(nil)
	require.NoError(t, f.manager.WipeAll(ctx))

	boom := errors.New("disk full")
	history.EXPECT().Reset(gomock.Any(), models.Disconnected()).Return(boom)
	err := f.manager.ResetAll(ctx)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "history")
}

func TestSyncManager_Disconnect(t *testing.T) {
	f := newManagerFixture(t)
	history := newTestStore(f.ctrl, "history")
	passwords := newTestStore(f.ctrl, "passwords")
	require.NoError(t, f.manager.SetStore(EngineHistory, history))
	require.NoError(t, f.manager.SetStore(EnginePasswords, passwords))

	history.EXPECT().Reset(gomock.Any(), models.Disconnected()).Return(errors.New("locked"))
	passwords.EXPECT().Reset(gomock.Any(), models.Disconnected()).Return(nil)
	until := testNow.Add(time.Hour)
	f.manager.mcs.nextSyncAfter = &until

	f.manager.Disconnect(context.Background())

	assert.Nil(t, f.manager.mcs.NextSyncAfter())
}

// ── command processor ──

func TestManagerCommandProcessor_ApplyIncomingCommand(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)
	history := newTestStore(f.ctrl, "history")
	require.NoError(t, f.manager.SetStore(EngineHistory, history))
	p := &managerCommandProcessor{manager: f.manager}

	history.EXPECT().Wipe(gomock.Any()).Return(nil)
	status, err := p.ApplyIncomingCommand(ctx, models.WipeCommand(EngineHistory))
	require.NoError(t, err)
	assert.Equal(t, models.CommandApplied, status)

	status, err = p.ApplyIncomingCommand(ctx, models.ResetCommand("addons"))
	require.NoError(t, err)
	assert.Equal(t, models.CommandUnsupported, status)

	_, err = p.ApplyIncomingCommand(ctx, models.WipeCommand(EngineBookmarks))
	require.ErrorIs(t, err, ErrConnectionClosed)

	history.EXPECT().Reset(gomock.Any(), models.Disconnected()).Return(nil)
	status, err = p.ApplyIncomingCommand(ctx, models.ResetAllCommand)
	require.NoError(t, err)
	assert.Equal(t, models.CommandApplied, status)

	out, err := p.FetchOutgoingCommands(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEngineResultMessage(t *testing.T) {
	assert.Equal(t, "", engineResultMessage(nil))
	assert.Equal(t, "boom", engineResultMessage(errors.New("boom")))
	assert.Equal(t, unspecifiedError, engineResultMessage(errors.New("")))
}
