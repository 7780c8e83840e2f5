// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// envPrefix is prepended to every environment variable name.
const envPrefix = "SYNC15_"

// StructuredConfig is the top-level configuration container for the sync
// client. It is populated by merging values from command-line flags,
// environment variables, an optional JSON or YAML file and built-in
// defaults.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env:       direct environment variable name for scalar fields.
//   - json/yaml: key names used in the config file.
type StructuredConfig struct {
	// Account holds the credentials obtained from the Firefox Accounts
	// login flow.
	Account Account `envPrefix:"ACCOUNT_" json:"account" yaml:"account"`

	// Device describes this client in the clients collection.
	Device Device `envPrefix:"DEVICE_" json:"device" yaml:"device"`

	// Storage holds the local persistence settings.
	Storage Storage `envPrefix:"STORAGE_" json:"storage" yaml:"storage"`

	// Adapter holds the outbound HTTP settings. File decoding goes through
	// fileConfig because of the duration fields.
	Adapter Adapter `envPrefix:"ADAPTER_" json:"-" yaml:"-"`

	// Workers holds configuration for the background sync job.
	Workers Workers `envPrefix:"WORKERS_" json:"-" yaml:"-"`

	// Engines selects the engines to sync.
	Engines Engines `envPrefix:"ENGINES_" json:"engines" yaml:"engines"`

	// Log configures the log output.
	Log Log `envPrefix:"LOG_" json:"log" yaml:"log"`

	// Metrics configures the Prometheus endpoint of the run command.
	Metrics Metrics `envPrefix:"METRICS_" json:"metrics" yaml:"metrics"`

	// FilePath is the optional path to a JSON or YAML configuration file.
	// Populated via the SYNC15_CONFIG environment variable or the --config
	// flag.
	FilePath string `env:"CONFIG" json:"-" yaml:"-"`
}

// Account holds the account credentials.
type Account struct {
	// TokenserverURL is the token server base URL. The "/1.0/sync/1.5"
	// suffix is appended when missing.
	// Env: SYNC15_ACCOUNT_TOKENSERVER_URL
	TokenserverURL string `env:"TOKENSERVER_URL" json:"tokenserver_url" yaml:"tokenserver_url"`

	// KeyID is sent to the token server in the X-KeyID header.
	// Env: SYNC15_ACCOUNT_KEY_ID
	KeyID string `env:"KEY_ID" json:"key_id" yaml:"key_id"`

	// AccessToken is the OAuth access token with the sync scope.
	// Env: SYNC15_ACCOUNT_ACCESS_TOKEN
	AccessToken string `env:"ACCESS_TOKEN" json:"access_token" yaml:"access_token"`

	// SyncKey is kSync in unpadded URL-safe base64.
	// Env: SYNC15_ACCOUNT_SYNC_KEY
	SyncKey string `env:"SYNC_KEY" json:"sync_key" yaml:"sync_key"`
}

// Device identifies the local device.
type Device struct {
	// ID is the Firefox Accounts device id, also used as the client record id.
	// Env: SYNC15_DEVICE_ID
	ID string `env:"ID" json:"id" yaml:"id"`

	// Name is the human readable device name.
	// Env: SYNC15_DEVICE_NAME
	Name string `env:"NAME" json:"name" yaml:"name"`

	// Type is one of desktop, mobile, tablet, vr or tv.
	// Env: SYNC15_DEVICE_TYPE
	Type string `env:"TYPE" json:"type" yaml:"type"`
}

// Storage groups the local persistence settings.
type Storage struct {
	// HistoryDSN is the SQLite data source of the history store.
	// Env: SYNC15_STORAGE_HISTORY_DSN
	HistoryDSN string `env:"HISTORY_DSN" json:"history_dsn" yaml:"history_dsn"`

	// StateFile is where the persisted global state is kept between runs.
	// Env: SYNC15_STORAGE_STATE_FILE
	StateFile string `env:"STATE_FILE" json:"state_file" yaml:"state_file"`
}

// Adapter holds outbound HTTP settings.
type Adapter struct {
	// RequestTimeout bounds every token server and storage request
	// (e.g. "30s", "1m").
	// Env: SYNC15_ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// SyncInterval is the period of the scheduled sync job.
	// Env: SYNC15_WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
}

// Engines selects what gets synced.
type Engines struct {
	// Enabled lists engine names. Empty means every registered engine.
	// Env: SYNC15_ENGINES_ENABLED (comma separated)
	Enabled []string `env:"ENABLED" envSeparator:"," json:"enabled" yaml:"enabled"`
}

// Log configures logging.
type Log struct {
	// File is the rotated log file. Empty logs to stdout.
	// Env: SYNC15_LOG_FILE
	File string `env:"FILE" json:"file" yaml:"file"`
}

// Metrics configures the metrics endpoint.
type Metrics struct {
	// Addr is the listen address of /metrics. Empty disables it.
	// Env: SYNC15_METRICS_ADDR
	Addr string `env:"ADDR" json:"addr" yaml:"addr"`
}

// GetStructuredConfig loads, merges, and validates the configuration from
// all available sources in the following priority order (earlier sources
// win for non-zero fields):
//  1. Command-line flags (flags may be nil)
//  2. Environment variables
//  3. JSON or YAML file (path resolved from sources 1 and 2)
//  4. Built-in defaults
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig(flags *StructuredConfig) (*StructuredConfig, error) {
	return newConfigBuilder().
		withFlags(flags).
		withEnv().
		withFile().
		withDefaults().
		build()
}
