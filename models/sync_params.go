// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// SyncReason says why a sync was started. User and EnabledChange syncs
// ignore the server's soft backoff.
type SyncReason int

const (
	ReasonScheduled SyncReason = iota
	ReasonUser
	ReasonPreSleep
	ReasonStartup
	ReasonEnabledChange
)

func (r SyncReason) String() string {
	switch r {
	case ReasonScheduled:
		return "scheduled"
	case ReasonUser:
		return "user"
	case ReasonPreSleep:
		return "pre_sleep"
	case ReasonStartup:
		return "startup"
	case ReasonEnabledChange:
		return "enabled_change"
	default:
		return "unknown"
	}
}

// SyncParams is everything the sync manager needs for one sync.
type SyncParams struct {
	Reason SyncReason

	// EnginesToSync lists engine names; ignored when SyncAllEngines is set.
	EnginesToSync  []string
	SyncAllEngines bool

	// EnginesToChangeState maps engine names to the user's wish to enable
	// (true) or decline (false) them.
	EnginesToChangeState map[string]bool

	// PersistedState is the opaque string returned by the previous sync.
	PersistedState string

	AccountKeyID   string
	AccessToken    string
	SyncKey        string
	TokenserverURL string

	FxaDeviceID string
	DeviceName  string
	DeviceType  DeviceType
}

// SyncResultReport is what the sync manager hands back to its caller.
type SyncResultReport struct {
	Status ServiceStatus `json:"status"`

	// Results maps each engine to an empty string on success, or the error
	// message on failure.
	Results map[string]string `json:"results"`

	HaveDeclined bool     `json:"have_declined"`
	Declined     []string `json:"declined"`

	// NextSyncAllowedAt is in milliseconds since the epoch.
	NextSyncAllowedAt *int64 `json:"next_sync_allowed_at,omitempty"`

	// PersistedState must be saved by the caller and passed back next time,
	// even when Status is an error.
	PersistedState string `json:"persisted_state"`

	TelemetryJSON *string `json:"telemetry_json,omitempty"`
}
