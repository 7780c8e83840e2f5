// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/crypto"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/models"
)

const (
	// ClientsTTL is the server-side lifetime of a client record, in seconds.
	ClientsTTL uint32 = 1814400

	// ClientsTTLRefresh is how often our own record is re-uploaded even when
	// nothing in it changed.
	ClientsTTLRefresh = 604800 * time.Second

	memcacheMaxRecordBytes = 512 * 1024
	clientsProtocol        = "1.5"
)

// ClientsEngine syncs the clients collection: it publishes this device's
// record, runs commands other devices left for it and queues outgoing
// commands on theirs.
//
// The collection can't be declined and is always fetched in full, so it
// does not go through the per-store collection state machine.
type ClientsEngine struct {
	processor     CommandProcessor
	recentClients map[string]models.RemoteClient
	log           *logger.Logger
}

// NewClientsEngine returns an engine that applies commands with processor.
func NewClientsEngine(processor CommandProcessor, log *logger.Logger) *ClientsEngine {
	return &ClientsEngine{
		processor:     processor,
		recentClients: map[string]models.RemoteClient{},
		log:           log,
	}
}

// RecentClients returns the devices seen during the last sync keyed by
// client record id. Our own record is included.
func (e *ClientsEngine) RecentClients() map[string]models.RemoteClient {
	return maps.Clone(e.recentClients)
}

// GetClientData is what stores get in PrepareForSync.
func (e *ClientsEngine) GetClientData() models.ClientData {
	return models.ClientData{
		LocalClientID: e.processor.Settings().FxaDeviceID,
		RecentClients: e.RecentClients(),
	}
}

// Sync fetches every client record, applies and queues commands and uploads
// the records that changed. shouldRefresh forces an upload of our own
// record.
func (e *ClientsEngine) Sync(ctx context.Context, client adapter.StorageClient, gs *models.GlobalState,
	rootKey *crypto.KeyBundle, shouldRefresh bool) error {
	e.log.Info().Msg("syncing clients")

	keys, err := crypto.CollectionKeysFromEncryptedBso(gs.Keys, rootKey)
	if err != nil {
		return err
	}
	state := &CollState{
		Config:       gs.Config,
		LastModified: gs.Collections[models.ClientsCollection],
		Key:          keys.KeyForCollection(models.ClientsCollection),
	}

	if err = checkInterrupted(ctx); err != nil {
		return err
	}
	inbound, err := fetchIncoming(ctx, client, state, models.NewCollectionRequest(models.ClientsCollection).WithFull())
	if err != nil {
		return err
	}

	driver := &clientsDriver{
		processor:     e.processor,
		config:        gs.Config,
		recentClients: map[string]models.RemoteClient{},
		log:           e.log,
	}
	outgoing, err := driver.sync(ctx, inbound, shouldRefresh)
	if err != nil {
		return err
	}
	e.recentClients = driver.recentClients

	state.LastModified = outgoing.Timestamp
	if err = checkInterrupted(ctx); err != nil {
		return err
	}
	info, err := uploadChanges(ctx, client, state, outgoing, false, e.log)
	if err != nil {
		return err
	}
	if len(info.FailedIDs) > 0 {
		failed := make([]string, 0, len(info.FailedIDs))
		for _, id := range info.FailedIDs {
			failed = append(failed, id.String())
		}
		e.log.Warn().Strs("failed_ids", failed).Msg("some client records were not uploaded")
	}
	e.log.Info().Int("succeeded", len(info.SuccessfulIDs)).Int("failed", len(info.FailedIDs)).
		Msg("uploaded client records")
	return nil
}

type clientsDriver struct {
	processor     CommandProcessor
	config        models.InfoConfiguration
	recentClients map[string]models.RemoteClient
	log           *logger.Logger
}

func (d *clientsDriver) noteRecentClient(r models.ClientRecord) {
	d.recentClients[r.ID] = models.RemoteClientFromRecord(r)
}

func (d *clientsDriver) sync(ctx context.Context, inbound models.IncomingChangeset,
	shouldRefresh bool) (models.OutgoingChangeset, error) {
	outgoing := models.NewOutgoingChangeset(models.ClientsCollection, inbound.Timestamp)

	if err := checkInterrupted(ctx); err != nil {
		return outgoing, err
	}
	outgoingCommands, err := d.processor.FetchOutgoingCommands(ctx)
	if err != nil {
		return outgoing, err
	}

	ownID := d.processor.Settings().FxaDeviceID
	sawOwnRecord := false

	for _, change := range inbound.Changes {
		if err = checkInterrupted(ctx); err != nil {
			return outgoing, err
		}
		var record models.ClientRecord
		if err = change.Payload.IntoRecord(&record); err != nil {
			return outgoing, err
		}

		if record.ID == ownID {
			d.log.Debug().Msg("found our own client record")
			sawOwnRecord = true
			current := d.currentRecord()
			for _, c := range record.Commands {
				status := models.CommandUnsupported
				if cmd, ok := c.AsCommand(); ok {
					if status, err = d.processor.ApplyIncomingCommand(ctx, cmd); err != nil {
						return outgoing, err
					}
				}
				switch status {
				case models.CommandIgnored:
					d.log.Debug().Str("command", c.Name).Msg("ignored command")
				case models.CommandUnsupported:
					d.log.Warn().Str("command", c.Name).Msg("don't know how to apply command")
					current.Commands = append(current.Commands, c)
				}
			}
			if err = shrinkToFit(&current.Commands, d.memcacheMaxRecordPayloadSize()); err != nil {
				return outgoing, err
			}
			d.noteRecentClient(current)

			compare := record
			compare.TTL = current.TTL
			same, err := sameRecord(compare, current)
			if err != nil {
				return outgoing, err
			}
			if shouldRefresh || !same {
				d.log.Debug().Msg("updating our client record on the server")
				p, err := models.PayloadFromRecord(current)
				if err != nil {
					return outgoing, err
				}
				outgoing.Changes = append(outgoing.Changes, p)
			}
			continue
		}

		d.noteRecentClient(record)
		if len(outgoingCommands) == 0 {
			continue
		}

		existing := make(map[models.Command]struct{}, len(record.Commands))
		for _, c := range record.Commands {
			if cmd, ok := c.AsCommand(); ok {
				existing[cmd] = struct{}{}
			}
		}
		var added []models.Command
		for cmd := range outgoingCommands {
			if _, ok := existing[cmd]; !ok {
				added = append(added, cmd)
			}
		}
		if len(added) == 0 {
			continue
		}
		models.SortCommands(added)

		updated := record
		updated.Commands = make([]models.CommandRecord, 0, len(record.Commands)+len(added))
		updated.Commands = append(updated.Commands, record.Commands...)
		for _, cmd := range added {
			updated.Commands = append(updated.Commands, cmd.Record())
		}
		if err = shrinkToFit(&updated.Commands, d.memcacheMaxRecordPayloadSize()); err != nil {
			return outgoing, err
		}
		updated.TTL = ClientsTTL
		p, err := models.PayloadFromRecord(updated)
		if err != nil {
			return outgoing, err
		}
		outgoing.Changes = append(outgoing.Changes, p)
	}

	if !sawOwnRecord {
		current := d.currentRecord()
		d.noteRecentClient(current)
		p, err := models.PayloadFromRecord(current)
		if err != nil {
			return outgoing, err
		}
		outgoing.Changes = append(outgoing.Changes, p)
	}
	return outgoing, nil
}

// currentRecord builds a fresh record for this device with no commands.
func (d *clientsDriver) currentRecord() models.ClientRecord {
	s := d.processor.Settings()
	typ := string(s.DeviceType)
	fxaID := s.FxaDeviceID
	return models.ClientRecord{
		ID:          s.FxaDeviceID,
		Name:        s.DeviceName,
		Type:        &typ,
		FxaDeviceID: &fxaID,
		Protocols:   []string{clientsProtocol},
		TTL:         ClientsTTL,
	}
}

func (d *clientsDriver) maxRecordPayloadSize() int {
	if d.config.MaxRecordPayloadBytes <= d.config.MaxPostBytes {
		return max(d.config.MaxPostBytes-4096, 0)
	}
	return d.config.MaxRecordPayloadBytes
}

// The clients collection lives in memcached on the server, which caps
// records well below the normal limit.
func (d *clientsDriver) memcacheMaxRecordPayloadSize() int {
	return min(d.maxRecordPayloadSize(), memcacheMaxRecordBytes)
}

// sameRecord compares two client records by their JSON form, so a nil and
// an empty command list are equal.
func sameRecord(a, b models.ClientRecord) (bool, error) {
	ja, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ja, jb), nil
}

func serializedSize(v any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("measure record: %w", err)
	}
	return len(b), nil
}

// shrinkToFit drops commands from the end of the list until its encoded
// size fits in three quarters of limit, minus room for the rest of the
// record and the encryption overhead.
func shrinkToFit(cmds *[]models.CommandRecord, limit int) error {
	maxSize := (limit/4)*3 - 1500
	if maxSize < 0 {
		*cmds = (*cmds)[:0]
		return nil
	}
	size, err := serializedSize(*cmds)
	if err != nil {
		return err
	}
	if size <= maxSize {
		return nil
	}

	list := *cmds
	cutoff := (len(list)*maxSize-1)/size + 1
	if cutoff+1 < len(list) {
		list = list[:cutoff+1]
	}
	for len(list) > 0 {
		if size, err = serializedSize(list); err != nil {
			return err
		}
		if size <= maxSize {
			break
		}
		list = list[:len(list)-1]
	}
	*cmds = list
	return nil
}
