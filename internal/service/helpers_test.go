package service

import (
	"net/http"
	"testing"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/crypto"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/stretchr/testify/require"
)

func okResponse[T any](rec T, ts models.ServerTimestamp) adapter.Response[T] {
	return adapter.Response[T]{Status: http.StatusOK, Record: rec, LastModified: ts}
}

func errResponse[T any](status int, kind adapter.ErrorKind) adapter.Response[T] {
	return adapter.Response[T]{Status: status, Err: &adapter.ErrorResponse{Kind: kind, Status: status}}
}

func notFound[T any]() adapter.Response[T] {
	return errResponse[T](http.StatusNotFound, adapter.ErrorNotFound)
}

func newTestRootKey(t *testing.T) *crypto.KeyBundle {
	t.Helper()
	root, err := crypto.NewRandomKeyBundle()
	require.NoError(t, err)
	return root
}

// newTestKeys returns fresh collection keys together with their crypto/keys
// record encrypted with root and stamped with modified.
func newTestKeys(t *testing.T, root *crypto.KeyBundle, modified models.ServerTimestamp) (*crypto.CollectionKeys, models.EncryptedBso) {
	t.Helper()
	keys, err := crypto.NewRandomCollectionKeys()
	require.NoError(t, err)
	bso, err := keys.ToEncryptedBso(root)
	require.NoError(t, err)
	bso.Modified = modified
	return keys, bso
}

// fullMetaGlobal is a current meta/global with every default engine.
func fullMetaGlobal() models.MetaGlobalRecord {
	engines := make(map[string]models.MetaGlobalEngine, len(defaultEngines))
	for _, e := range defaultEngines {
		engines[e.name] = models.MetaGlobalEngine{Version: e.version, SyncID: models.Guid(e.name + "SyncID")}
	}
	return models.MetaGlobalRecord{
		SyncID:         "globalSyncID",
		StorageVersion: StorageVersion,
		Engines:        engines,
		Declined:       []string{},
	}
}

func set(items ...string) map[string]struct{} {
	return toSet(items)
}
