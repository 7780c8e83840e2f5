// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/MKhiriev/go-sync15/internal/adapter"
	"github.com/MKhiriev/go-sync15/internal/crypto"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/models"
)

// StorageVersion is the meta/global storage version this client speaks.
const StorageVersion = 5

// defaultEngines are written into a fresh meta/global with their versions.
// Engines we do not implement are listed too so other clients keep them
// enabled.
var defaultEngines = []struct {
	name    string
	version int
}{
	{"passwords", 1},
	{"clients", 1},
	{"addons", 1},
	{"addresses", 1},
	{"bookmarks", 2},
	{"creditcards", 1},
	{"forms", 1},
	{"history", 1},
	{"prefs", 2},
	{"tabs", 1},
}

// defaultDeclined is the declined list of a fresh meta/global when nothing
// was ever persisted.
var defaultDeclined = []string{}

// Setup state labels.
const (
	labelInitial               = "Initial"
	labelInitialWithConfig     = "InitialWithConfig"
	labelInitialWithInfo       = "InitialWithInfo"
	labelInitialWithMetaGlobal = "InitialWithMetaGlobal"
	labelWithPreviousState     = "WithPreviousState"
	labelReady                 = "Ready"
	labelFreshStartRequired    = "FreshStartRequired"
)

// setupState is one state of the setup process. Each state owns the data
// valid in it.
type setupState interface {
	label() string
}

type stateInitial struct{}

type stateInitialWithConfig struct {
	config models.InfoConfiguration
}

type stateInitialWithInfo struct {
	config      models.InfoConfiguration
	collections models.InfoCollections
}

type stateInitialWithMetaGlobal struct {
	config          models.InfoConfiguration
	collections     models.InfoCollections
	global          models.MetaGlobalRecord
	globalTimestamp models.ServerTimestamp
}

type stateWithPreviousState struct {
	old models.GlobalState
}

type stateReady struct {
	state models.GlobalState
}

type stateFreshStartRequired struct {
	config models.InfoConfiguration
}

func (stateInitial) label() string               { return labelInitial }
func (stateInitialWithConfig) label() string     { return labelInitialWithConfig }
func (stateInitialWithInfo) label() string       { return labelInitialWithInfo }
func (stateInitialWithMetaGlobal) label() string { return labelInitialWithMetaGlobal }
func (stateWithPreviousState) label() string     { return labelWithPreviousState }
func (stateReady) label() string                 { return labelReady }
func (stateFreshStartRequired) label() string    { return labelFreshStartRequired }

// EngineChangesNeeded lists what has to happen to engines whose declined
// state changed during setup.
type EngineChangesNeeded struct {
	// LocalResets are engines that became declined and must reset locally.
	LocalResets map[string]struct{}
	// RemoteWipes are engines the user disabled whose server data must go.
	RemoteWipes map[string]struct{}
}

// IsEmpty reports whether nothing needs to be done.
func (c *EngineChangesNeeded) IsEmpty() bool {
	return c == nil || (len(c.LocalResets) == 0 && len(c.RemoteWipes) == 0)
}

// SetupStateMachine drives the client from nothing (or a cached global
// state) to a ready [models.GlobalState], uploading meta/global and
// crypto/keys when the server has none or an outdated one.
type SetupStateMachine struct {
	client        adapter.SetupStorageClient
	rootKey       *crypto.KeyBundle
	pgs           *models.PersistedGlobalState
	engineUpdates map[string]bool
	allowed       map[string]struct{}

	sequence      []string
	changesNeeded *EngineChangesNeeded
	log           *logger.Logger
}

func newSetupStateMachine(client adapter.SetupStorageClient, rootKey *crypto.KeyBundle,
	pgs *models.PersistedGlobalState, engineUpdates map[string]bool, allowed []string,
	log *logger.Logger) *SetupStateMachine {
	set := make(map[string]struct{}, len(allowed))
	for _, l := range allowed {
		set[l] = struct{}{}
	}
	return &SetupStateMachine{
		client:        client,
		rootKey:       rootKey,
		pgs:           pgs,
		engineUpdates: engineUpdates,
		allowed:       set,
		log:           log,
	}
}

// NewFullSyncStateMachine allows every state, including a fresh start that
// wipes the server. engineUpdates carries the user's enable (true) or
// decline (false) wishes; it may be nil.
func NewFullSyncStateMachine(client adapter.SetupStorageClient, rootKey *crypto.KeyBundle,
	pgs *models.PersistedGlobalState, engineUpdates map[string]bool, log *logger.Logger) *SetupStateMachine {
	return newSetupStateMachine(client, rootKey, pgs, engineUpdates, []string{
		labelInitial,
		labelInitialWithConfig,
		labelInitialWithInfo,
		labelInitialWithMetaGlobal,
		labelReady,
		labelFreshStartRequired,
		labelWithPreviousState,
	}, log)
}

// NewFastSyncStateMachine only accepts a cached global state that is still
// current. Anything else fails with [ErrSetupRequired].
func NewFastSyncStateMachine(client adapter.SetupStorageClient, rootKey *crypto.KeyBundle,
	pgs *models.PersistedGlobalState, log *logger.Logger) *SetupStateMachine {
	return newSetupStateMachine(client, rootKey, pgs, nil, []string{
		labelReady,
		labelWithPreviousState,
	}, log)
}

// NewReadonlySyncStateMachine never starts fresh and takes no engine
// updates.
func NewReadonlySyncStateMachine(client adapter.SetupStorageClient, rootKey *crypto.KeyBundle,
	pgs *models.PersistedGlobalState, log *logger.Logger) *SetupStateMachine {
	return newSetupStateMachine(client, rootKey, pgs, nil, []string{
		labelInitial,
		labelInitialWithConfig,
		labelInitialWithInfo,
		labelInitialWithMetaGlobal,
		labelReady,
		labelWithPreviousState,
	}, log)
}

// Sequence returns the labels of the states visited so far.
func (m *SetupStateMachine) Sequence() []string {
	return slices.Clone(m.sequence)
}

// ChangesNeeded returns the engine changes computed during setup, or nil
// when setup never compared declined lists (e.g. a cached state was reused).
func (m *SetupStateMachine) ChangesNeeded() *EngineChangesNeeded {
	return m.changesNeeded
}

// RunToReady advances until the global state is ready. A non-nil previous
// state is revalidated against info/collections instead of refetched.
func (m *SetupStateMachine) RunToReady(ctx context.Context, previous *models.GlobalState) (*models.GlobalState, error) {
	var s setupState = stateInitial{}
	if previous != nil {
		s = stateWithPreviousState{old: *previous}
	}

	for {
		if err := checkInterrupted(ctx); err != nil {
			return nil, err
		}
		label := s.label()
		m.log.Trace().Str("state", label).Msg("global setup state")

		if ready, ok := s.(stateReady); ok {
			m.sequence = append(m.sequence, label)
			return &ready.state, nil
		}

		switch s.(type) {
		case stateInitial, stateWithPreviousState, stateFreshStartRequired:
			if slices.Contains(m.sequence, label) {
				return nil, fmt.Errorf("%w: %s revisited after %v", ErrSetupRace, label, m.sequence)
			}
		}
		if _, ok := m.allowed[label]; !ok {
			return nil, fmt.Errorf("%w: state %s", ErrSetupRequired, label)
		}

		m.sequence = append(m.sequence, label)
		next, err := m.advance(ctx, s)
		if err != nil {
			return nil, err
		}
		s = next
	}
}

func (m *SetupStateMachine) advance(ctx context.Context, from setupState) (setupState, error) {
	switch s := from.(type) {
	case stateInitial:
		resp, err := m.client.FetchInfoConfiguration(ctx)
		if err != nil {
			return nil, err
		}
		switch {
		case resp.IsSuccess():
			return stateInitialWithConfig{config: resp.Record}, nil
		case resp.Err.Kind == adapter.ErrorNotFound:
			return stateInitialWithConfig{config: models.DefaultInfoConfiguration()}, nil
		default:
			return nil, resp.StorageError()
		}

	case stateInitialWithConfig:
		resp, err := m.client.FetchInfoCollections(ctx)
		if err != nil {
			return nil, err
		}
		switch {
		case resp.IsSuccess():
			return stateInitialWithInfo{config: s.config, collections: resp.Record}, nil
		case resp.Err.Kind == adapter.ErrorNotFound:
			return stateFreshStartRequired{config: s.config}, nil
		default:
			return nil, resp.StorageError()
		}

	case stateInitialWithInfo:
		return m.advanceWithInfo(ctx, s)

	case stateInitialWithMetaGlobal:
		resp, err := m.client.FetchCryptoKeys(ctx)
		if err != nil {
			return nil, err
		}
		switch {
		case resp.IsSuccess():
			if resp.LastModified != resp.Record.Modified {
				return nil, fmt.Errorf("%w: header %s, record %s",
					ErrKeysTimestampMismatch, resp.LastModified, resp.Record.Modified)
			}
			return stateReady{state: models.GlobalState{
				Config:          s.config,
				Collections:     s.collections,
				Global:          s.global,
				GlobalTimestamp: s.globalTimestamp,
				Keys:            resp.Record,
			}}, nil
		case resp.Err.Kind == adapter.ErrorNotFound:
			return stateFreshStartRequired{config: s.config}, nil
		default:
			return nil, resp.StorageError()
		}

	case stateWithPreviousState:
		resp, err := m.client.FetchInfoCollections(ctx)
		if err != nil {
			return nil, err
		}
		if resp.IsSuccess() &&
			resp.Record.HasTimestamp("meta", s.old.GlobalTimestamp) &&
			resp.Record.HasTimestamp("crypto", s.old.Keys.Modified) {
			state := s.old
			state.Collections = resp.Record
			return stateReady{state: state}, nil
		}
		return stateInitialWithConfig{config: s.old.Config}, nil

	case stateReady:
		return s, nil

	case stateFreshStartRequired:
		return m.freshStart(ctx, s)

	default:
		return nil, fmt.Errorf("unknown setup state %T", from)
	}
}

func (m *SetupStateMachine) advanceWithInfo(ctx context.Context, s stateInitialWithInfo) (setupState, error) {
	resp, err := m.client.FetchMetaGlobal(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		if resp.Err.Kind == adapter.ErrorNotFound {
			return stateFreshStartRequired{config: s.config}, nil
		}
		return nil, resp.StorageError()
	}

	global := resp.Record.Clone()
	globalTimestamp := resp.LastModified
	if global.StorageVersion > StorageVersion {
		return nil, fmt.Errorf("%w: server has %d, we have %d",
			ErrClientUpgradeRequired, global.StorageVersion, StorageVersion)
	}
	if global.StorageVersion < StorageVersion {
		return stateFreshStartRequired{config: s.config}, nil
	}

	m.log.Info().Msg("have info/collections and meta/global, computing new engine states")
	remoteDeclined := toSet(global.Declined)
	result := computeEngineStates(engineStateInput{
		localDeclined: toSet(m.pgs.GetDeclined()),
		userChanges:   m.engineUpdates,
		remote: &remoteEngineState{
			declined:        remoteDeclined,
			infoCollections: s.collections.Names(),
		},
	}, m.log)
	m.pgs.SetDeclined(sortedKeys(result.declined))

	changed := false
	if !maps.Equal(result.declined, remoteDeclined) {
		global.Declined = sortedKeys(result.declined)
		m.log.Info().Strs("declined", global.Declined).Stringer("timestamp", globalTimestamp).
			Msg("uploading new declined list to meta/global")
		changed = true
	}
	if fixupMetaGlobal(&global) {
		m.log.Info().Stringer("timestamp", globalTimestamp).Msg("uploading corrected meta/global")
		changed = true
	}
	if changed {
		globalTimestamp, err = m.client.PutMetaGlobal(ctx, globalTimestamp, global)
		if err != nil {
			return nil, err
		}
		m.log.Debug().Stringer("timestamp", globalTimestamp).Msg("new meta/global timestamp")
	}

	if m.changesNeeded != nil {
		m.log.Warn().Msg("already have a set of changes needed, overwriting")
	}
	m.changesNeeded = &result.changesNeeded
	return stateInitialWithMetaGlobal{
		config:          s.config,
		collections:     s.collections,
		global:          global,
		globalTimestamp: globalTimestamp,
	}, nil
}

func (m *SetupStateMachine) freshStart(ctx context.Context, s stateFreshStartRequired) (setupState, error) {
	m.log.Info().Msg("fresh start: wiping remote")
	if err := m.client.WipeAllRemote(ctx); err != nil {
		return nil, err
	}

	m.log.Info().Msg("uploading meta/global")
	computed := computeEngineStates(engineStateInput{
		localDeclined: toSet(m.pgs.GetDeclined()),
		userChanges:   m.engineUpdates,
	}, m.log)
	m.pgs.SetDeclined(sortedKeys(computed.declined))
	m.changesNeeded = &computed.changesNeeded

	if _, err := m.client.PutMetaGlobal(ctx, 0, newMetaGlobal(m.pgs)); err != nil {
		return nil, err
	}

	keys, err := crypto.NewRandomCollectionKeys()
	if err != nil {
		return nil, err
	}
	bso, err := keys.ToEncryptedBso(m.rootKey)
	if err != nil {
		return nil, err
	}
	if err = m.client.PutCryptoKeys(ctx, 0, bso); err != nil {
		return nil, err
	}
	return stateInitialWithConfig{config: s.config}, nil
}

type remoteEngineState struct {
	infoCollections map[string]struct{}
	declined        map[string]struct{}
}

type engineStateInput struct {
	localDeclined map[string]struct{}
	// remote is nil when there is no meta/global to compare with.
	remote      *remoteEngineState
	userChanges map[string]bool
}

type engineStateOutput struct {
	declined      map[string]struct{}
	changesNeeded EngineChangesNeeded
}

// computeEngineStates merges the local and remote declined lists with the
// user's requested changes.
func computeEngineStates(input engineStateInput, log *logger.Logger) engineStateOutput {
	mustEnable := map[string]struct{}{}
	mustDisable := map[string]struct{}{}
	for name, enabled := range input.userChanges {
		if enabled {
			mustEnable[name] = struct{}{}
		} else {
			mustDisable[name] = struct{}{}
		}
	}

	remote := remoteEngineState{}
	if input.remote != nil {
		remote = *input.remote
	}
	if both := intersect(remote.infoCollections, remote.declined); len(both) > 0 {
		log.Warn().Strs("engines", sortedKeys(both)).
			Msg("remote state has engines both in info/collections and declined")
	}

	mostRecent := input.localDeclined
	if input.remote != nil {
		mostRecent = remote.declined
	}

	declined := make(map[string]struct{}, len(mostRecent)+len(mustDisable))
	for name := range mostRecent {
		declined[name] = struct{}{}
	}
	for name := range mustDisable {
		declined[name] = struct{}{}
	}
	for name := range mustEnable {
		delete(declined, name)
	}

	localResets := map[string]struct{}{}
	for name := range declined {
		if _, ok := input.localDeclined[name]; !ok {
			localResets[name] = struct{}{}
		}
	}

	return engineStateOutput{
		declined: declined,
		changesNeeded: EngineChangesNeeded{
			LocalResets: localResets,
			RemoteWipes: intersect(remote.infoCollections, mustDisable),
		},
	}
}

// fixupMetaGlobal makes sure every default engine is either declined or
// has an entry with a sync id. It reports whether global was changed.
func fixupMetaGlobal(global *models.MetaGlobalRecord) bool {
	if global.Engines == nil {
		global.Engines = map[string]models.MetaGlobalEngine{}
	}
	changed := false
	for _, e := range defaultEngines {
		_, has := global.Engines[e.name]
		shouldHave := !global.IsDeclined(e.name)
		switch {
		case shouldHave && !has:
			global.Engines[e.name] = models.MetaGlobalEngine{Version: e.version, SyncID: models.NewRandomGuid()}
			changed = true
		case !shouldHave && has:
			delete(global.Engines, e.name)
			changed = true
		}
	}
	return changed
}

// newMetaGlobal builds the meta/global uploaded on a fresh start.
func newMetaGlobal(pgs *models.PersistedGlobalState) models.MetaGlobalRecord {
	declined := defaultDeclined
	if pgs.Declined != nil {
		declined = pgs.Declined
	}
	declined = slices.Clone(declined)

	engines := make(map[string]models.MetaGlobalEngine, len(defaultEngines))
	for _, e := range defaultEngines {
		if slices.Contains(declined, e.name) {
			continue
		}
		engines[e.name] = models.MetaGlobalEngine{Version: e.version, SyncID: models.NewRandomGuid()}
	}
	return models.MetaGlobalRecord{
		SyncID:         models.NewRandomGuid(),
		StorageVersion: StorageVersion,
		Engines:        engines,
		Declined:       declined,
	}
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, i := range items {
		out[i] = struct{}{}
	}
	return out
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
