// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"net/url"
)

var knownDeviceTypes = map[string]struct{}{
	"desktop": {}, "mobile": {}, "tablet": {}, "vr": {}, "tv": {},
}

// validate checks the source-independent invariants of the merged
// [StructuredConfig]: durations must not be negative.
func (cfg *StructuredConfig) validate() error {
	if cfg.Adapter.RequestTimeout < 0 || cfg.Workers.SyncInterval < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	return nil
}

func (cfg *ClientConfig) validate() error {
	a := cfg.Account
	if a.TokenserverURL == "" || a.AccessToken == "" || a.SyncKey == "" || a.KeyID == "" {
		return ErrInvalidAccountConfigs
	}
	if u, err := url.Parse(a.TokenserverURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: tokenserver url %q", ErrInvalidAccountConfigs, a.TokenserverURL)
	}

	if cfg.Device.ID == "" {
		return ErrInvalidDeviceConfigs
	}
	if _, ok := knownDeviceTypes[cfg.Device.Type]; !ok {
		return fmt.Errorf("%w: device type %q", ErrInvalidDeviceConfigs, cfg.Device.Type)
	}

	if cfg.Storage.HistoryDSN == "" || cfg.Storage.StateFile == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.RequestTimeout == 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval == 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}
