// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/crypto"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/telemetry"
	"github.com/MKhiriev/go-sync15/models"
)

// Synchronize syncs one store with its collection.
func Synchronize(ctx context.Context, client adapter.StorageClient, gs *models.GlobalState,
	rootKey *crypto.KeyBundle, store Store, fullyAtomic bool, telem *telemetry.Engine,
	log *logger.Logger) error {
	return SynchronizeWithClientsEngine(ctx, client, gs, rootKey, nil, store, fullyAtomic, telem, log)
}

// SynchronizeWithClientsEngine syncs one store: fetch what changed, let the
// store apply it, upload what the store returns and tell it what made it.
// clients, when set, gives the store access to the list of remote devices.
func SynchronizeWithClientsEngine(ctx context.Context, client adapter.StorageClient, gs *models.GlobalState,
	rootKey *crypto.KeyBundle, clients *ClientsEngine, store Store, fullyAtomic bool,
	telem *telemetry.Engine, log *logger.Logger) error {
	collection := store.CollectionName()
	log.Info().Str("collection", collection).Msg("syncing collection")

	state, err := getCollState(ctx, store, gs, rootKey, log)
	if err != nil {
		return err
	}
	if state == nil {
		log.Warn().Str("collection", collection).Msg("can't set up collection, skipping")
		return nil
	}

	if clients != nil {
		if err = store.PrepareForSync(ctx, clients.GetClientData); err != nil {
			return err
		}
	}

	requests, err := store.GetCollectionRequests(ctx, state.LastModified)
	if err != nil {
		return err
	}
	var incoming []models.IncomingChangeset
	if len(requests) == 0 {
		log.Info().Str("collection", collection).Msg("nothing changed on the server, skipping fetch")
		incoming = []models.IncomingChangeset{models.NewIncomingChangeset(collection, state.LastModified)}
	} else {
		for i, req := range requests {
			if err = checkInterrupted(ctx); err != nil {
				return err
			}
			changes, err := fetchIncoming(ctx, client, state, req)
			if err != nil {
				return err
			}
			log.Info().Int("changes", len(changes.Changes)).Int("request", i+1).Int("of", len(requests)).
				Msg("downloaded remote changes")
			incoming = append(incoming, changes)
		}
	}

	newTimestamp := incoming[len(incoming)-1].Timestamp
	outgoing, err := store.ApplyIncoming(ctx, incoming, telem)
	if err != nil {
		return err
	}
	if err = checkInterrupted(ctx); err != nil {
		return err
	}
	outgoing.Timestamp = newTimestamp
	if outgoing.Collection == "" {
		outgoing.Collection = collection
	}
	state.LastModified = newTimestamp

	log.Info().Int("changes", len(outgoing.Changes)).Msg("uploading outgoing changes")
	info, err := uploadChanges(ctx, client, state, outgoing, fullyAtomic, log)
	if err != nil {
		return err
	}
	log.Info().Int("succeeded", len(info.SuccessfulIDs)).Int("failed", len(info.FailedIDs)).
		Msg("upload finished")
	telem.Outgoing(telemetry.EngineOutgoing{
		Sent:   len(info.SuccessfulIDs) + len(info.FailedIDs),
		Failed: len(info.FailedIDs),
	})

	if err = store.SyncFinished(ctx, info.ModifiedTimestamp, info.SuccessfulIDs); err != nil {
		return err
	}
	log.Info().Str("collection", collection).Msg("sync finished")
	return nil
}

// fetchIncoming runs one collection GET and decrypts the result. A
// record that fails to decrypt fails the whole fetch.
func fetchIncoming(ctx context.Context, client adapter.StorageClient, state *CollState,
	req models.CollectionRequest) (models.IncomingChangeset, error) {
	resp, err := client.GetEncryptedRecords(ctx, req)
	if err != nil {
		return models.IncomingChangeset{}, err
	}
	if !resp.IsSuccess() {
		return models.IncomingChangeset{}, resp.StorageError()
	}
	state.LastModified = resp.LastModified

	result := models.NewIncomingChangeset(req.Collection, resp.LastModified)
	result.Changes = make([]models.IncomingRecord, 0, len(resp.Record))
	for _, bso := range resp.Record {
		cleartext, err := crypto.DecryptBso(bso, state.Key)
		if err != nil {
			return models.IncomingChangeset{}, fmt.Errorf("decrypt %s/%s: %w", req.Collection, bso.ID, err)
		}
		result.Changes = append(result.Changes, models.IncomingRecord{
			Payload:   models.WithAutoFields(cleartext),
			Timestamp: bso.Modified,
		})
	}
	return result, nil
}

// uploadChanges encrypts and posts outgoing. The upload is refused with a
// precondition failure when the changeset is older than the collection.
func uploadChanges(ctx context.Context, client adapter.StorageClient, state *CollState,
	outgoing models.OutgoingChangeset, fullyAtomic bool, log *logger.Logger) (adapter.UploadInfo, error) {
	if outgoing.Timestamp < state.LastModified {
		return adapter.UploadInfo{}, adapter.NewPreconditionFailed(outgoing.Collection)
	}

	records := make([]models.EncryptedBso, 0, len(outgoing.Changes))
	for _, p := range outgoing.Changes {
		bso, err := crypto.EncryptBso(p.IntoBso(outgoing.Collection), state.Key)
		if err != nil {
			return adapter.UploadInfo{}, err
		}
		records = append(records, bso)
	}

	handler := adapter.NewNormalResponseHandler(!fullyAtomic)
	q := adapter.NewPostQueue(client, outgoing.Collection, state.Config, outgoing.Timestamp, handler, log)
	var dropped []models.Guid
	for _, r := range records {
		enqueued, err := q.Enqueue(ctx, r)
		if err != nil {
			return adapter.UploadInfo{}, err
		}
		if !enqueued {
			if fullyAtomic {
				return adapter.UploadInfo{}, fmt.Errorf("%w: %s", adapter.ErrRecordTooLarge, r.ID)
			}
			dropped = append(dropped, r.ID)
		}
	}
	if err := q.Flush(ctx, true); err != nil {
		return adapter.UploadInfo{}, err
	}

	info := handler.Completed(q.LastModified())
	info.FailedIDs = append(info.FailedIDs, dropped...)
	if fullyAtomic && len(info.FailedIDs) > 0 {
		return adapter.UploadInfo{}, errors.Join(adapter.ErrRecordUploadFailed,
			fmt.Errorf("%d records failed in a fully atomic upload", len(info.FailedIDs)))
	}
	return info, nil
}
