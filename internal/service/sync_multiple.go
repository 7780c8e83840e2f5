// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/crypto"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/metrics"
	"github.com/MKhiriev/go-sync15/internal/telemetry"
	"github.com/MKhiriev/go-sync15/internal/utils"
	"github.com/MKhiriev/go-sync15/models"
)

// ClientFactory builds a storage client for an account. It is called only
// when no cached client for the same account exists.
type ClientFactory func(init adapter.Sync15StorageClientInit) adapter.StorageClient

// SyncEnv is what a sync needs besides its inputs.
type SyncEnv struct {
	NewClient ClientFactory
	Metrics   *metrics.Metrics
	Log       *logger.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

func (e SyncEnv) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// SyncRequestInfo tunes a single sync.
type SyncRequestInfo struct {
	// EnginesToStateChange maps engines to enable (true) or decline (false).
	EnginesToStateChange map[string]bool

	// IsUserAction ignores the server's soft backoff between stores.
	IsUserAction bool
}

// SyncMultiple syncs stores without the clients engine. See
// [SyncMultipleWithCommandProcessor].
func SyncMultiple(ctx context.Context, stores []Store, persisted *string, mcs *MemoryCachedState,
	init adapter.Sync15StorageClientInit, rootKey *crypto.KeyBundle, req *SyncRequestInfo, env SyncEnv) *SyncResult {
	return SyncMultipleWithCommandProcessor(ctx, nil, stores, persisted, mcs, init, rootKey, req, env)
}

// SyncMultipleWithCommandProcessor runs setup, the clients engine when
// processor is set, and then each store in order. It never returns an
// error: everything that went wrong is in the result. persisted is read
// and rewritten in place and must be saved by the caller even when the
// sync failed.
func SyncMultipleWithCommandProcessor(ctx context.Context, processor CommandProcessor, stores []Store,
	persisted *string, mcs *MemoryCachedState, init adapter.Sync15StorageClientInit,
	rootKey *crypto.KeyBundle, req *SyncRequestInfo, env SyncEnv) *SyncResult {
	if env.Log == nil {
		env.Log = logger.Nop()
	}
	if req == nil {
		req = &SyncRequestInfo{}
	}
	if persisted == nil {
		persisted = new(string)
	}
	start := env.now()
	result := newSyncResult()
	ctx = env.Log.WithSyncID(ctx, utils.NewUUIDGenerator().Generate())

	d := &syncMultipleDriver{
		processor:         processor,
		stores:            stores,
		init:              init,
		rootKey:           rootKey,
		engineUpdates:     req.EnginesToStateChange,
		ignoreSoftBackoff: req.IsUserAction,
		result:            result,
		persisted:         persisted,
		mcs:               mcs,
		env:               env,
		telem:             telemetry.NewSync(),
		log:               logger.FromContext(ctx),
	}

	if err := d.sync(ctx); err != nil {
		d.log.Warn().Err(err).Str("status", result.ServiceStatus.String()).Msg("sync failed")
		result.Result = err
		d.telem.Failure(failureFromErr(err))
	} else {
		d.log.Debug().Str("status", result.ServiceStatus.String()).Msg("sync was successful")
	}
	result.Telemetry.Sync(d.telem)

	var wait time.Duration
	if d.client != nil {
		wait = d.client.Backoff().RequiredWait(false)
	}
	result.setSyncAfter(wait, env.now())
	mcs.nextSyncAfter = result.NextSyncAfter

	env.Metrics.ObserveSync(result.ServiceStatus.String(), env.now().Sub(start))
	for _, e := range d.telem.Engines() {
		in := e.IncomingCounts()
		env.Metrics.AddRecords(e.Name(), "applied", int(in.Applied))
		env.Metrics.AddRecords(e.Name(), "failed", int(in.Failed))
		env.Metrics.AddRecords(e.Name(), "reconciled", int(in.Reconciled))
		for _, out := range e.OutgoingBatches() {
			env.Metrics.AddRecords(e.Name(), "sent", out.Sent)
			env.Metrics.AddRecords(e.Name(), "send_failed", out.Failed)
		}
	}
	return result
}

type syncMultipleDriver struct {
	processor         CommandProcessor
	stores            []Store
	init              adapter.Sync15StorageClientInit
	rootKey           *crypto.KeyBundle
	engineUpdates     map[string]bool
	ignoreSoftBackoff bool

	result    *SyncResult
	persisted *string
	mcs       *MemoryCachedState
	env       SyncEnv
	telem     *telemetry.Sync
	log       *logger.Logger

	client       adapter.StorageClient
	sawAuthError bool
}

func (d *syncMultipleDriver) sync(ctx context.Context) error {
	d.log.Info().Msg("loading persisted state")
	pgs := d.preparePersistedState()

	d.log.Info().Msg("preparing client")
	d.prepareClient()

	if d.wasInterrupted(ctx) {
		return nil
	}

	d.log.Info().Msg("entering sync state machine")
	gs, err := d.runStateMachine(ctx, &pgs)
	if err != nil {
		return err
	}
	if d.wasInterrupted(ctx) {
		return nil
	}

	d.result.ServiceStatus = models.StatusOk

	var clients *ClientsEngine
	if d.processor != nil {
		d.log.Info().Msg("syncing clients engine")
		now := d.env.now()
		clients = NewClientsEngine(d.processor, d.log)
		telemEngine := telemetry.NewEngine(models.ClientsCollection)
		if err = clients.Sync(ctx, d.client, gs, d.rootKey, d.mcs.ShouldRefreshClient(now)); err != nil {
			telemEngine.Failure(failureFromErr(err))
			d.telem.Engine(telemEngine)
			d.result.ServiceStatus = ServiceStatusFromErr(err)
			return err
		}
		if d.wasInterrupted(ctx) {
			return nil
		}
		d.mcs.NoteClientRefresh(now)
	}

	d.log.Info().Msg("syncing stores")
	d.syncStores(ctx, gs, clients)
	d.log.Info().Msg("finished syncing stores")

	if !d.sawAuthError {
		d.mcs.lastClientInfo = &cachedClientInfo{init: d.init, client: d.client}
		d.mcs.lastGlobalState = gs
	}
	return nil
}

func (d *syncMultipleDriver) wasInterrupted(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	d.log.Info().Msg("interrupted, bailing out")
	d.result.ServiceStatus = models.StatusInterrupted
	return true
}

func (d *syncMultipleDriver) syncStores(ctx context.Context, gs *models.GlobalState, clients *ClientsEngine) {
	for _, store := range d.stores {
		name := store.CollectionName()
		if d.client.Backoff().RequiredWait(d.ignoreSoftBackoff) > 0 {
			d.log.Warn().Msg("got backoff, bailing out of sync early")
			break
		}
		if gs.Global.IsDeclined(name) {
			d.log.Info().Str("engine", name).Msg("engine is declined, skipping")
			continue
		}
		d.log.Info().Str("engine", name).Msg("syncing engine")

		telemEngine := telemetry.NewEngine(name)
		err := SynchronizeWithClientsEngine(ctx, d.client, gs, d.rootKey, clients, store, true, telemEngine, d.log)
		d.result.EngineResults[name] = err
		if err != nil {
			d.log.Warn().Err(err).Str("engine", name).Msg("engine sync failed")
			status := ServiceStatusFromErr(err)
			d.sawAuthError = d.sawAuthError || status == models.StatusAuthenticationError
			telemEngine.Failure(failureFromErr(err))
			if status != models.StatusOtherError {
				d.telem.Engine(telemEngine)
				d.result.ServiceStatus = status
				break
			}
		} else {
			d.log.Info().Str("engine", name).Msg("engine sync was successful")
		}
		d.telem.Engine(telemEngine)
		if d.wasInterrupted(ctx) {
			break
		}
	}
}

func (d *syncMultipleDriver) runStateMachine(ctx context.Context, pgs *models.PersistedGlobalState) (*models.GlobalState, error) {
	last := d.mcs.lastGlobalState
	d.mcs.lastGlobalState = nil

	sm := NewFullSyncStateMachine(d.client, d.rootKey, pgs, d.engineUpdates, d.log)
	d.log.Info().Msg("advancing state machine to ready")
	gs, runErr := sm.RunToReady(ctx, last)

	*d.persisted = pgs.String()
	d.result.Declined = pgs.GetDeclined()
	d.log.Debug().Strs("declined", d.result.Declined).Msg("declined engines after setup")

	if changes := sm.ChangesNeeded(); changes != nil {
		if err := d.wipeOrResetEngines(ctx, changes); err != nil {
			return nil, err
		}
	}
	if runErr != nil {
		d.result.ServiceStatus = ServiceStatusFromErr(runErr)
		return nil, runErr
	}

	uid, err := d.client.HashedUID(ctx)
	if err != nil {
		return nil, err
	}
	d.result.Telemetry.SetUID(uid)
	d.mcs.lastGlobalState = nil
	return gs, nil
}

func (d *syncMultipleDriver) wipeOrResetEngines(ctx context.Context, changes *EngineChangesNeeded) error {
	if changes.IsEmpty() {
		return nil
	}
	for _, e := range sortedKeys(changes.RemoteWipes) {
		d.log.Info().Str("engine", e).Msg("engine was disabled locally, wiping server")
		if err := d.client.WipeRemoteEngine(ctx, e); err != nil {
			return err
		}
	}
	for _, s := range d.stores {
		name := s.CollectionName()
		if _, ok := changes.LocalResets[name]; !ok {
			continue
		}
		d.log.Info().Str("engine", name).Msg("engine was declined remotely, resetting")
		if err := s.Reset(ctx, models.Disconnected()); err != nil {
			return err
		}
	}
	return nil
}

// prepareClient reuses the cached client when it belongs to the same
// account. A different account discards all cached state.
func (d *syncMultipleDriver) prepareClient() {
	cached := d.mcs.lastClientInfo
	d.mcs.lastClientInfo = nil
	switch {
	case cached != nil && cached.init != d.init:
		d.log.Info().Msg("discarding all state as the account might have changed")
		*d.mcs = MemoryCachedState{}
		d.client = d.env.NewClient(d.init)
	case cached != nil:
		d.log.Debug().Msg("reusing cached client")
		d.client = cached.client
	default:
		d.log.Debug().Msg("cached state was stale or missing, need setup")
		d.mcs.ClearSensitiveInfo()
		d.client = d.env.NewClient(d.init)
	}
	d.client.Backoff().Reset()
}

func (d *syncMultipleDriver) preparePersistedState() models.PersistedGlobalState {
	if *d.persisted == "" {
		d.log.Info().Msg("no persisted state, expected only on the first run for a user")
		return models.PersistedGlobalState{}
	}
	pgs, err := models.ParsePersistedGlobalState(*d.persisted)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to parse persisted state, falling back to default")
		return models.PersistedGlobalState{}
	}
	return pgs
}
