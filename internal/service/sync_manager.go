// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/config"
	"github.com/MKhiriev/go-sync15/internal/crypto"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/metrics"
	"github.com/MKhiriev/go-sync15/models"
)

// Engine names accepted by the sync manager.
const (
	EngineHistory   = "history"
	EngineBookmarks = "bookmarks"
	EnginePasswords = "passwords"
	EngineTabs      = "tabs"
)

// knownEngines is also the order stores are synced in.
var knownEngines = []string{EngineHistory, EngineBookmarks, EnginePasswords, EngineTabs}

const unspecifiedError = "<unspecified error>"

// NewStorageClientFactory returns the [ClientFactory] used outside tests.
func NewStorageClientFactory(cfg config.ClientAdapter, m *metrics.Metrics, log *logger.Logger) ClientFactory {
	return func(init adapter.Sync15StorageClientInit) adapter.StorageClient {
		return adapter.NewStorageClient(init, cfg, m, log)
	}
}

// SyncManager is the entry point for callers. It owns the in-memory state
// kept between syncs and a registry of local stores keyed by engine name.
// Any engine may be missing from the registry.
//
// Methods are safe for concurrent use; a sync holds the manager for its
// whole duration.
type SyncManager struct {
	mu     sync.Mutex
	stores map[string]Store
	mcs    MemoryCachedState
	env    SyncEnv
	log    *logger.Logger
}

// NewSyncManager creates a manager with an empty registry.
func NewSyncManager(env SyncEnv) *SyncManager {
	if env.Log == nil {
		env.Log = logger.Nop()
	}
	return &SyncManager{
		stores: map[string]Store{},
		env:    env,
		log:    env.Log,
	}
}

// SetStore registers store for engine, replacing any previous one.
func (m *SyncManager) SetStore(engine string, store Store) error {
	if !slices.Contains(knownEngines, engine) {
		return fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[engine] = store
	return nil
}

// RemoveStore drops the store of engine. Later calls naming it fail with
// [ErrConnectionClosed].
func (m *SyncManager) RemoveStore(engine string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, engine)
}

func (m *SyncManager) lookup(engine string) (Store, error) {
	if !slices.Contains(knownEngines, engine) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, engine)
	}
	store, ok := m.stores[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionClosed, engine)
	}
	return store, nil
}

// Wipe deletes all local data of engine.
func (m *SyncManager) Wipe(ctx context.Context, engine string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wipe(ctx, engine)
}

func (m *SyncManager) wipe(ctx context.Context, engine string) error {
	store, err := m.lookup(engine)
	if err != nil {
		return err
	}
	return store.Wipe(ctx)
}

// WipeAll wipes every registered store.
func (m *SyncManager) WipeAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wipeAll(ctx)
}

func (m *SyncManager) wipeAll(ctx context.Context) error {
	for _, engine := range knownEngines {
		if store, ok := m.stores[engine]; ok {
			if err := store.Wipe(ctx); err != nil {
				return fmt.Errorf("wipe %s: %w", engine, err)
			}
		}
	}
	return nil
}

// Reset drops the sync metadata of engine, so the next sync starts over.
func (m *SyncManager) Reset(ctx context.Context, engine string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset(ctx, engine)
}

func (m *SyncManager) reset(ctx context.Context, engine string) error {
	store, err := m.lookup(engine)
	if err != nil {
		return err
	}
	return store.Reset(ctx, models.Disconnected())
}

// ResetAll resets every registered store.
func (m *SyncManager) ResetAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetAll(ctx)
}

func (m *SyncManager) resetAll(ctx context.Context) error {
	for _, engine := range knownEngines {
		if store, ok := m.stores[engine]; ok {
			if err := store.Reset(ctx, models.Disconnected()); err != nil {
				return fmt.Errorf("reset %s: %w", engine, err)
			}
		}
	}
	return nil
}

// Disconnect resets every registered store and forgets the in-memory
// state. Failures are logged, not returned.
func (m *SyncManager) Disconnect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, engine := range knownEngines {
		store, ok := m.stores[engine]
		if !ok {
			m.log.Warn().Str("engine", engine).Msg("unable to reset engine, no store registered")
			continue
		}
		if err := store.Reset(ctx, models.Disconnected()); err != nil {
			m.log.Err(err).Str("func", "SyncManager.Disconnect").Str("engine", engine).Msg("failed to reset engine")
		}
	}
	m.mcs = MemoryCachedState{}
}

// Sync runs one sync. An error is returned only for bad params; every
// failure after that is reported in the result.
func (m *SyncManager) Sync(ctx context.Context, params models.SyncParams) (*models.SyncResultReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkEngineList(params.EnginesToSync, m.stores); err != nil {
		return nil, err
	}

	now := m.env.now()
	if next := m.mcs.NextSyncAfter(); next != nil && next.After(now) && !ignoresBackoff(params) {
		m.log.Warn().Time("until", *next).Msg("backoff still in effect, bailing out early")
		return &models.SyncResultReport{
			Status:            models.StatusBackedOff,
			Results:           map[string]string{},
			Declined:          []string{},
			NextSyncAllowedAt: toMillis(next),
			PersistedState:    params.PersistedState,
		}, nil
	}
	return m.doSync(ctx, params)
}

func (m *SyncManager) doSync(ctx context.Context, params models.SyncParams) (*models.SyncResultReport, error) {
	rootKey, err := crypto.KeyBundleFromKSyncBase64(params.SyncKey)
	if err != nil {
		return nil, fmt.Errorf("parse sync key: %w", err)
	}

	var stores []Store
	for _, engine := range knownEngines {
		store, ok := m.stores[engine]
		if ok && shouldSync(params, engine) {
			stores = append(stores, store)
		}
	}

	deviceType := params.DeviceType
	if _, ok := models.ParseDeviceType(string(deviceType)); !ok {
		m.log.Warn().Str("device_type", string(deviceType)).Msg("unknown device type, assuming desktop")
		deviceType = models.DeviceDesktop
	}
	processor := &managerCommandProcessor{
		manager: m,
		settings: models.Settings{
			FxaDeviceID: params.FxaDeviceID,
			DeviceName:  params.DeviceName,
			DeviceType:  deviceType,
		},
	}

	var changes map[string]bool
	if len(params.EnginesToChangeState) > 0 {
		changes = params.EnginesToChangeState
	}
	persisted := params.PersistedState
	init := adapter.Sync15StorageClientInit{
		KeyID:          params.AccountKeyID,
		AccessToken:    params.AccessToken,
		TokenserverURL: params.TokenserverURL,
	}
	result := SyncMultipleWithCommandProcessor(ctx, processor, stores, &persisted, &m.mcs, init, rootKey,
		&SyncRequestInfo{EnginesToStateChange: changes, IsUserAction: params.Reason == models.ReasonUser}, m.env)

	m.log.Info().Str("status", result.ServiceStatus.String()).Msg("sync finished")
	results := make(map[string]string, len(result.EngineResults))
	for engine, err := range result.EngineResults {
		results[engine] = engineResultMessage(err)
		if err != nil {
			m.log.Info().Str("engine", engine).Err(err).Msg("engine status")
		}
	}

	report := &models.SyncResultReport{
		Status:            result.ServiceStatus,
		Results:           results,
		HaveDeclined:      result.Declined != nil,
		Declined:          result.Declined,
		NextSyncAllowedAt: toMillis(result.NextSyncAfter),
		PersistedState:    persisted,
	}
	if report.Declined == nil {
		report.Declined = []string{}
	}
	if telem, err := result.Telemetry.JSON(); err != nil {
		m.log.Err(err).Str("func", "SyncManager.doSync").Msg("failed to serialise telemetry")
	} else {
		report.TelemetryJSON = &telem
	}
	return report, nil
}

func engineResultMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return unspecifiedError
}

func ignoresBackoff(params models.SyncParams) bool {
	return params.Reason == models.ReasonUser ||
		params.Reason == models.ReasonEnabledChange ||
		len(params.EnginesToChangeState) > 0
}

func shouldSync(params models.SyncParams, engine string) bool {
	return params.SyncAllEngines || slices.Contains(params.EnginesToSync, engine)
}

func checkEngineList(requested []string, have map[string]Store) error {
	for _, e := range requested {
		if !slices.Contains(knownEngines, e) {
			return fmt.Errorf("%w: %s", ErrUnknownEngine, e)
		}
		if _, ok := have[e]; !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedFeature, e)
		}
	}
	return nil
}

func toMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// managerCommandProcessor applies commands from other devices to the
// manager's registry. It runs inside Sync, so it uses the unlocked methods.
type managerCommandProcessor struct {
	manager  *SyncManager
	settings models.Settings
}

func (p *managerCommandProcessor) Settings() models.Settings {
	return p.settings
}

func (p *managerCommandProcessor) ApplyIncomingCommand(ctx context.Context, cmd models.Command) (models.CommandStatus, error) {
	var err error
	switch cmd.Kind {
	case models.CommandWipe:
		err = p.manager.wipe(ctx, cmd.Engine)
	case models.CommandWipeAll:
		err = p.manager.wipeAll(ctx)
	case models.CommandReset:
		err = p.manager.reset(ctx, cmd.Engine)
	case models.CommandResetAll:
		err = p.manager.resetAll(ctx)
	default:
		return models.CommandUnsupported, nil
	}
	switch {
	case err == nil:
		return models.CommandApplied, nil
	case errors.Is(err, ErrUnknownEngine):
		return models.CommandUnsupported, nil
	default:
		return models.CommandIgnored, err
	}
}

func (p *managerCommandProcessor) FetchOutgoingCommands(context.Context) (map[models.Command]struct{}, error) {
	return map[models.Command]struct{}{}, nil
}
