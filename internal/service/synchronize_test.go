package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/crypto"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/mock"
	"github.com/MKhiriev/go-sync15/internal/telemetry"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestGlobalState(t *testing.T, root *crypto.KeyBundle) (*models.GlobalState, *crypto.CollectionKeys) {
	t.Helper()
	keys, bso := newTestKeys(t, root, 10)
	return &models.GlobalState{
		Config:          models.DefaultInfoConfiguration(),
		Collections:     models.InfoCollections{"meta": 5, "crypto": 10, "history": 100},
		Global:          fullMetaGlobal(),
		GlobalTimestamp: 5,
		Keys:            bso,
	}, keys
}

func connectedHistory() models.StoreSyncAssociation {
	return models.ConnectedTo(models.CollSyncIDs{Global: "globalSyncID", Coll: "historySyncID"})
}

// ── getCollState ──

func TestGetCollState(t *testing.T) {
	root := newTestRootKey(t)

	t.Run("ready", func(t *testing.T) {
		gs, keys := newTestGlobalState(t, root)
		store := newTestStore(gomock.NewController(t), "history")
		store.EXPECT().GetSyncAssoc(gomock.Any()).Return(connectedHistory(), nil)

		state, err := getCollState(context.Background(), store, gs, root, logger.Nop())
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.Equal(t, models.ServerTimestamp(100), state.LastModified)
		assert.True(t, keys.KeyForCollection("history").Equal(state.Key))
	})

	t.Run("declined", func(t *testing.T) {
		gs, _ := newTestGlobalState(t, root)
		gs.Global = metaGlobalDeclining("history")
		store := newTestStore(gomock.NewController(t), "history")
		store.EXPECT().GetSyncAssoc(gomock.Any()).Return(connectedHistory(), nil)

		state, err := getCollState(context.Background(), store, gs, root, logger.Nop())
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("not in meta/global", func(t *testing.T) {
		gs, _ := newTestGlobalState(t, root)
		store := newTestStore(gomock.NewController(t), "unknown")
		store.EXPECT().GetSyncAssoc(gomock.Any()).Return(models.Disconnected(), nil)

		state, err := getCollState(context.Background(), store, gs, root, logger.Nop())
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("sync id changed resets the store", func(t *testing.T) {
		gs, _ := newTestGlobalState(t, root)
		store := newTestStore(gomock.NewController(t), "history")
		store.EXPECT().GetSyncAssoc(gomock.Any()).Return(models.ConnectedTo(models.CollSyncIDs{
			Global: "globalSyncID", Coll: "oldSyncID",
		}), nil)
		store.EXPECT().Reset(gomock.Any(), connectedHistory()).Return(nil)

		state, err := getCollState(context.Background(), store, gs, root, logger.Nop())
		require.NoError(t, err)
		assert.NotNil(t, state)
	})

	t.Run("disconnected store resets", func(t *testing.T) {
		gs, _ := newTestGlobalState(t, root)
		store := newTestStore(gomock.NewController(t), "history")
		store.EXPECT().GetSyncAssoc(gomock.Any()).Return(models.Disconnected(), nil)
		store.EXPECT().Reset(gomock.Any(), connectedHistory()).Return(nil)

		state, err := getCollState(context.Background(), store, gs, root, logger.Nop())
		require.NoError(t, err)
		assert.NotNil(t, state)
	})
}

// ── Synchronize ──

func TestSynchronize_RoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	root := newTestRootKey(t)
	gs, keys := newTestGlobalState(t, root)
	key := keys.KeyForCollection("history")

	incoming, err := models.PayloadFromJSON([]byte(`{"id":"aaaaaaaaaaaa","histUri":"https://example.com/","title":"Example"}`))
	require.NoError(t, err)
	enc, err := crypto.EncryptBso(incoming.IntoBso("history"), key)
	require.NoError(t, err)
	enc.Modified = 150

	store := newTestStore(ctrl, "history")
	store.EXPECT().GetSyncAssoc(gomock.Any()).Return(connectedHistory(), nil)
	store.EXPECT().GetCollectionRequests(gomock.Any(), models.ServerTimestamp(100)).
		Return([]models.CollectionRequest{models.NewCollectionRequest("history").WithFull().NewerThan(100)}, nil)
	client.EXPECT().GetEncryptedRecords(gomock.Any(), gomock.Any()).
		Return(okResponse([]models.EncryptedBso{enc}, 200), nil)

	outgoing, err := models.PayloadFromJSON([]byte(`{"id":"bbbbbbbbbbbb","histUri":"https://example.org/","title":"Other"}`))
	require.NoError(t, err)
	store.EXPECT().ApplyIncoming(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in []models.IncomingChangeset, telem *telemetry.Engine) (models.OutgoingChangeset, error) {
			require.Len(t, in, 1)
			require.Len(t, in[0].Changes, 1)
			assert.Equal(t, models.Guid("aaaaaaaaaaaa"), in[0].Changes[0].Payload.ID)
			assert.Equal(t, "Example", in[0].Changes[0].Payload.Data["title"])
			assert.Equal(t, models.ServerTimestamp(150), in[0].Changes[0].Timestamp)
			return models.OutgoingChangeset{Collection: "history", Changes: []models.Payload{outgoing}}, nil
		})

	client.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any(), models.ServerTimestamp(200)).
		DoAndReturn(func(_ context.Context, req models.CollectionRequest, body []byte,
			_ models.ServerTimestamp) (adapter.Response[adapter.UploadResult], error) {
			assert.Equal(t, "history", req.Collection)
			var posted []models.EncryptedBso
			require.NoError(t, json.Unmarshal(body, &posted))
			require.Len(t, posted, 1)
			cleartext, err := crypto.DecryptBso(posted[0], key)
			require.NoError(t, err)
			assert.Equal(t, "Other", cleartext.Payload.Data["title"])
			return adapter.Response[adapter.UploadResult]{
				Status:       http.StatusOK,
				Record:       adapter.UploadResult{Success: []models.Guid{"bbbbbbbbbbbb"}},
				LastModified: 250,
			}, nil
		})
	store.EXPECT().SyncFinished(gomock.Any(), models.ServerTimestamp(250), []models.Guid{"bbbbbbbbbbbb"}).Return(nil)

	telem := telemetry.NewEngine("history")
	err = Synchronize(context.Background(), client, gs, root, store, true, telem, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, []telemetry.EngineOutgoing{{Sent: 1}}, telem.OutgoingBatches())
}

func TestSynchronize_SkipsUnknownCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	root := newTestRootKey(t)
	gs, _ := newTestGlobalState(t, root)

	store := newTestStore(ctrl, "unknown")
	store.EXPECT().GetSyncAssoc(gomock.Any()).Return(models.Disconnected(), nil)

	err := Synchronize(context.Background(), client, gs, root, store, true, telemetry.NewEngine("unknown"), logger.Nop())
	require.NoError(t, err)
}

func TestSynchronize_DecryptFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockStorageClient(ctrl)
	root := newTestRootKey(t)
	gs, _ := newTestGlobalState(t, root)

	wrongKey := newTestRootKey(t)
	p, err := models.PayloadFromJSON([]byte(`{"id":"aaaaaaaaaaaa"}`))
	require.NoError(t, err)
	enc, err := crypto.EncryptBso(p.IntoBso("history"), wrongKey)
	require.NoError(t, err)

	store := newTestStore(ctrl, "history")
	store.EXPECT().GetSyncAssoc(gomock.Any()).Return(connectedHistory(), nil)
	store.EXPECT().GetCollectionRequests(gomock.Any(), gomock.Any()).
		Return([]models.CollectionRequest{models.NewCollectionRequest("history")}, nil)
	client.EXPECT().GetEncryptedRecords(gomock.Any(), gomock.Any()).
		Return(okResponse([]models.EncryptedBso{enc}, 200), nil)

	err = Synchronize(context.Background(), client, gs, root, store, true, telemetry.NewEngine("history"), logger.Nop())
	require.ErrorIs(t, err, crypto.ErrHMACMismatch)
}

// ── uploadChanges ──

func TestUploadChanges_StaleChangesetIsRefused(t *testing.T) {
	client := mock.NewMockStorageClient(gomock.NewController(t))
	state := &CollState{Config: models.DefaultInfoConfiguration(), LastModified: 10, Key: newTestRootKey(t)}

	_, err := uploadChanges(context.Background(), client, state,
		models.NewOutgoingChangeset("history", 5), true, logger.Nop())

	var storageErr *adapter.StorageHTTPError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, adapter.ErrorPreconditionFailed, storageErr.Response.Kind)
}

func TestUploadChanges_ServerRejectsRecords(t *testing.T) {
	tests := []struct {
		name        string
		fullyAtomic bool
		wantErr     error
		wantFailed  []models.Guid
	}{
		{name: "fully atomic", fullyAtomic: true, wantErr: adapter.ErrRecordUploadFailed},
		{name: "partial allowed", fullyAtomic: false, wantFailed: []models.Guid{"bbbbbbbbbbbb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mock.NewMockStorageClient(gomock.NewController(t))
			state := &CollState{Config: models.DefaultInfoConfiguration(), LastModified: 10, Key: newTestRootKey(t)}
			client.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(adapter.Response[adapter.UploadResult]{
					Status: http.StatusOK,
					Record: adapter.UploadResult{
						Success: []models.Guid{"aaaaaaaaaaaa"},
						Failed:  map[models.Guid]string{"bbbbbbbbbbbb": "invalid"},
					},
					LastModified: 20,
				}, nil)

			out := models.NewOutgoingChangeset("history", 10)
			out.Changes = []models.Payload{models.NewTombstone("aaaaaaaaaaaa"), models.NewTombstone("bbbbbbbbbbbb")}
			info, err := uploadChanges(context.Background(), client, state, out, tt.fullyAtomic, logger.Nop())

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []models.Guid{"aaaaaaaaaaaa"}, info.SuccessfulIDs)
			assert.Equal(t, tt.wantFailed, info.FailedIDs)
			assert.Equal(t, models.ServerTimestamp(20), info.ModifiedTimestamp)
		})
	}
}
