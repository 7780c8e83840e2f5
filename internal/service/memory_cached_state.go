package service

import (
	"time"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/models"
)

type cachedClientInfo struct {
	init   adapter.Sync15StorageClientInit
	client adapter.StorageClient
}

// MemoryCachedState is kept by the caller between syncs in the same
// process. Nothing in it is persisted. A zero value is ready to use.
type MemoryCachedState struct {
	lastClientInfo         *cachedClientInfo
	lastGlobalState        *models.GlobalState
	nextSyncAfter          *time.Time
	nextClientRefreshAfter *time.Time
}

// ClearSensitiveInfo drops the cached client, which holds a token, and the
// global state, which holds the encrypted keys. Backoff and refresh times
// survive.
func (m *MemoryCachedState) ClearSensitiveInfo() {
	m.lastClientInfo = nil
	m.lastGlobalState = nil
}

// NextSyncAfter is when the server allows the next sync, or nil.
func (m *MemoryCachedState) NextSyncAfter() *time.Time {
	return m.nextSyncAfter
}

// ShouldRefreshClient reports whether our client record is due to be
// re-uploaded.
func (m *MemoryCachedState) ShouldRefreshClient(now time.Time) bool {
	return m.nextClientRefreshAfter == nil || now.After(*m.nextClientRefreshAfter)
}

// NoteClientRefresh records that our client record was just uploaded.
func (m *MemoryCachedState) NoteClientRefresh(now time.Time) {
	next := now.Add(ClientsTTLRefresh)
	m.nextClientRefreshAfter = &next
}
