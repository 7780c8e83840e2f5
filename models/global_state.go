// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// GlobalState is everything the client needs to know about the server
// before a collection can be synced: upload limits, collection timestamps,
// meta/global and the still-encrypted crypto/keys record.
//
// It is produced by the setup state machine and is only ever cached in
// memory. It goes stale as soon as the server's "meta" or "crypto"
// timestamps move.
type GlobalState struct {
	Config          InfoConfiguration
	Collections     InfoCollections
	Global          MetaGlobalRecord
	GlobalTimestamp ServerTimestamp
	Keys            EncryptedBso
}

const persistedStateSchemaV2 = "V2"

// ErrUnknownPersistedStateSchema is returned when the persisted envelope has a
// schema_version this client does not know.
var ErrUnknownPersistedStateSchema = errors.New("unknown persisted state schema version")

// PersistedGlobalState is the only part of the global state that survives a
// process restart. It is owned by the caller, who stores the serialised form
// as an opaque string and hands it back on the next sync.
//
// A nil Declined means the declined list has never been learned.
type PersistedGlobalState struct {
	Declined []string
}

type persistedGlobalStateWire struct {
	SchemaVersion string    `json:"schema_version"`
	Declined      *[]string `json:"declined"`
}

// GetDeclined returns the declined list, or an empty slice when unknown.
func (p *PersistedGlobalState) GetDeclined() []string {
	if p == nil || p.Declined == nil {
		return []string{}
	}
	return p.Declined
}

// SetDeclined replaces the declined list.
func (p *PersistedGlobalState) SetDeclined(declined []string) {
	if declined == nil {
		declined = []string{}
	}
	p.Declined = declined
}

func (p PersistedGlobalState) MarshalJSON() ([]byte, error) {
	w := persistedGlobalStateWire{SchemaVersion: persistedStateSchemaV2}
	if p.Declined != nil {
		d := p.Declined
		w.Declined = &d
	}
	return json.Marshal(w)
}

func (p *PersistedGlobalState) UnmarshalJSON(b []byte) error {
	var w persistedGlobalStateWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode persisted state: %w", err)
	}
	if w.SchemaVersion != persistedStateSchemaV2 {
		return fmt.Errorf("%w: %q", ErrUnknownPersistedStateSchema, w.SchemaVersion)
	}
	p.Declined = nil
	if w.Declined != nil {
		p.Declined = *w.Declined
	}
	return nil
}

// ParsePersistedGlobalState decodes the caller's opaque string. An empty
// string is the default state.
func ParsePersistedGlobalState(s string) (PersistedGlobalState, error) {
	if s == "" {
		return PersistedGlobalState{}, nil
	}
	var p PersistedGlobalState
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return PersistedGlobalState{}, err
	}
	return p, nil
}

// String serialises the state into the caller-facing envelope.
func (p PersistedGlobalState) String() string {
	b, err := json.Marshal(p)
	if err != nil {
		return `{"schema_version":"V2","declined":null}`
	}
	return string(b)
}

// CollSyncIDs pairs the global sync id with a collection's sync id.
type CollSyncIDs struct {
	Global Guid
	Coll   Guid
}

// StoreSyncAssociation says how a local store relates to the server. The
// zero value (Connected == nil) means disconnected.
type StoreSyncAssociation struct {
	Connected *CollSyncIDs
}

// Disconnected is the association of a store that has never synced, or
// whose sync ids were discarded.
func Disconnected() StoreSyncAssociation {
	return StoreSyncAssociation{}
}

// ConnectedTo associates a store with the given sync ids.
func ConnectedTo(ids CollSyncIDs) StoreSyncAssociation {
	return StoreSyncAssociation{Connected: &ids}
}

// IsConnected reports whether the store has sync ids.
func (a StoreSyncAssociation) IsConnected() bool {
	return a.Connected != nil
}
