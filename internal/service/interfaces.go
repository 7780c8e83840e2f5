// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service holds the sync logic of the client: the setup state
// machine that establishes the global state, the per-collection sync flow,
// the clients engine, the multi-engine driver and the sync manager that
// callers talk to.
//
// Interruption is expressed with context.Context. Every checkpoint checks
// ctx.Err(); a cancelled context surfaces as [ErrInterrupted].
package service

import (
	"context"

	"github.com/MKhiriev/go-sync15/internal/telemetry"
	"github.com/MKhiriev/go-sync15/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// Store is a local data store that can be synced with one server
// collection.
type Store interface {
	// CollectionName is the server collection, e.g. "history".
	CollectionName() string

	// PrepareForSync is called before anything is fetched. getClientData
	// returns the state of the clients engine; stores that do not care can
	// ignore it.
	PrepareForSync(ctx context.Context, getClientData func() models.ClientData) error

	// ApplyIncoming applies everything fetched from the server and returns
	// the records to upload.
	ApplyIncoming(ctx context.Context, inbound []models.IncomingChangeset,
		telem *telemetry.Engine) (models.OutgoingChangeset, error)

	// SyncFinished is called once the upload succeeded.
	SyncFinished(ctx context.Context, newTimestamp models.ServerTimestamp, recordsSynced []models.Guid) error

	// GetCollectionRequests says what to fetch given the collection's current
	// server timestamp. An empty result means nothing changed.
	GetCollectionRequests(ctx context.Context, serverTimestamp models.ServerTimestamp) ([]models.CollectionRequest, error)

	// GetSyncAssoc returns the sync ids the store last synced with.
	GetSyncAssoc(ctx context.Context) (models.StoreSyncAssociation, error)

	// Reset drops sync metadata and associates the store with assoc.
	Reset(ctx context.Context, assoc models.StoreSyncAssociation) error

	// Wipe deletes all local data of the store.
	Wipe(ctx context.Context) error
}

// CommandProcessor applies the commands other devices sent us and supplies
// the commands we want to send them.
type CommandProcessor interface {
	Settings() models.Settings
	ApplyIncomingCommand(ctx context.Context, cmd models.Command) (models.CommandStatus, error)
	FetchOutgoingCommands(ctx context.Context) (map[models.Command]struct{}, error)
}

// Syncer runs one sync. [SyncManager] implements it.
type Syncer interface {
	Sync(ctx context.Context, params models.SyncParams) (*models.SyncResultReport, error)
}

// StateStore keeps the persisted sync state between process runs.
type StateStore interface {
	// Load returns "" when nothing was saved yet.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, state string) error
}
