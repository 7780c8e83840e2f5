// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// MetaGlobalEngine is the per-engine entry of meta/global.
type MetaGlobalEngine struct {
	Version int  `json:"version"`
	SyncID  Guid `json:"syncID"`
}

// MetaGlobalRecord is the decoded payload of storage/meta/global.
//
// Every known engine that is not declined has exactly one entry in Engines;
// Declined and Engines are disjoint.
type MetaGlobalRecord struct {
	SyncID         Guid                        `json:"syncID"`
	StorageVersion int                         `json:"storageVersion"`
	Engines        map[string]MetaGlobalEngine `json:"engines"`
	Declined       []string                    `json:"declined"`
}

// Clone returns a deep copy so callers can mutate the result freely.
func (m MetaGlobalRecord) Clone() MetaGlobalRecord {
	out := m
	out.Engines = make(map[string]MetaGlobalEngine, len(m.Engines))
	for k, v := range m.Engines {
		out.Engines[k] = v
	}
	out.Declined = append([]string(nil), m.Declined...)
	return out
}

// IsDeclined reports whether name is listed in Declined.
func (m MetaGlobalRecord) IsDeclined(name string) bool {
	for _, d := range m.Declined {
		if d == name {
			return true
		}
	}
	return false
}

// CryptoKeysRecord is the cleartext form of storage/crypto/keys.
type CryptoKeysRecord struct {
	ID          Guid                 `json:"id"`
	Collection  string               `json:"collection"`
	Default     [2]string            `json:"default"`
	Collections map[string][2]string `json:"collections"`
}
