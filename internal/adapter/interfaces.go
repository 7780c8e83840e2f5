// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter talks to the two servers a Sync 1.5 client depends on:
// the token server, which exchanges an OAuth access token for Hawk
// credentials and a storage node URL, and the storage node itself.
//
// [Sync15StorageClient] is the HTTP implementation. Non-success storage
// statuses are not returned as errors by the fetch methods; they come back
// as a [Response] with Err set so callers can react to 404 or 412. Errors
// are reserved for transport failures, token problems ([BackoffError],
// [TokenserverHTTPError], [ErrStorageReset]) and malformed responses.
//
// Uploads go through [PostQueue], which splits records into POSTs and
// batches according to the server's info/configuration.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-sync15/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/storage_client_mock.go -package=mock

// SetupStorageClient is the part of the storage API needed to establish
// global state: server limits, collection timestamps, meta/global and
// crypto/keys.
type SetupStorageClient interface {
	FetchInfoConfiguration(ctx context.Context) (Response[models.InfoConfiguration], error)
	FetchInfoCollections(ctx context.Context) (Response[models.InfoCollections], error)
	FetchMetaGlobal(ctx context.Context) (Response[models.MetaGlobalRecord], error)
	FetchCryptoKeys(ctx context.Context) (Response[models.EncryptedBso], error)

	// PutMetaGlobal fails with a precondition error when meta/global changed
	// after xius. It returns the new server timestamp.
	PutMetaGlobal(ctx context.Context, xius models.ServerTimestamp, global models.MetaGlobalRecord) (models.ServerTimestamp, error)
	PutCryptoKeys(ctx context.Context, xius models.ServerTimestamp, keys models.EncryptedBso) error

	// WipeAllRemote deletes all of the user's data on the node.
	WipeAllRemote(ctx context.Context) error
}

// StorageClient is everything a sync needs from the storage node.
type StorageClient interface {
	SetupStorageClient
	BatchPoster

	GetEncryptedRecords(ctx context.Context, req models.CollectionRequest) (Response[[]models.EncryptedBso], error)
	WipeRemoteEngine(ctx context.Context, engine string) error

	// HashedUID identifies the account in telemetry.
	HashedUID(ctx context.Context) (string, error)

	// Backoff exposes the X-Weave-Backoff and Retry-After values seen so far.
	Backoff() *BackoffListener
}

var (
	_ StorageClient       = (*Sync15StorageClient)(nil)
	_ PostResponseHandler = (*NormalResponseHandler)(nil)
)
