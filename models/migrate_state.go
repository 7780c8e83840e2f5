package models

import (
	"encoding/json"
)

type v1GlobalState struct {
	SchemaVersion string `json:"schema_version"`
	Global        *struct {
		Payload string `json:"payload"`
	} `json:"global"`
	EngineStateChanges []json.RawMessage `json:"engine_state_changes"`
}

// ExtractV1State reads the legacy "V1" global state a store may still have
// saved and returns the sync ids the store should keep for collection, plus
// the declined list as a new persisted state. Either result may be nil;
// anything unreadable yields (nil, nil).
//
// Sync ids are dropped when the old state had a pending reset that covers
// collection.
func ExtractV1State(state *string, collection string) (*CollSyncIDs, *PersistedGlobalState) {
	if state == nil {
		return nil, nil
	}
	var v1 v1GlobalState
	if err := json.Unmarshal([]byte(*state), &v1); err != nil {
		return nil, nil
	}
	if v1.SchemaVersion != "V1" || v1.Global == nil {
		return nil, nil
	}
	var mg MetaGlobalRecord
	if err := json.Unmarshal([]byte(v1.Global.Payload), &mg); err != nil {
		return nil, nil
	}
	pgs := &PersistedGlobalState{}
	pgs.SetDeclined(mg.Declined)

	for _, raw := range v1.EngineStateChanges {
		if pendingResetCovers(raw, collection) {
			return nil, pgs
		}
	}

	engine, ok := mg.Engines[collection]
	if !ok {
		return nil, pgs
	}
	return &CollSyncIDs{Global: mg.SyncID, Coll: engine.SyncID}, pgs
}

func pendingResetCovers(raw json.RawMessage, collection string) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "ResetAll"
	}
	var obj struct {
		Reset          *string   `json:"Reset"`
		ResetAllExcept *[]string `json:"ResetAllExcept"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	if obj.Reset != nil && *obj.Reset == collection {
		return true
	}
	if obj.ResetAllExcept != nil {
		for _, except := range *obj.ResetAllExcept {
			if except == collection {
				return false
			}
		}
		return true
	}
	return false
}
