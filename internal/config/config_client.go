package config

import (
	"fmt"
	"time"
)

// ClientAccount holds the account credentials used to build the storage
// client.
type ClientAccount struct {
	TokenserverURL string
	KeyID          string
	AccessToken    string
	SyncKey        string
}

// ClientDevice describes the local device.
type ClientDevice struct {
	ID   string
	Name string
	Type string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// HistoryDSN is the SQLite connection string of the history store.
	HistoryDSN string
	// StateFile keeps the persisted global state between runs.
	StateFile string
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often the scheduled sync runs.
	SyncInterval time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	Account ClientAccount
	Device  ClientDevice
	Adapter ClientAdapter
	Storage ClientStorage
	Workers ClientWorkers
	// Engines lists the engines to sync; empty means all.
	Engines []string
	// LogFile is the rotated log file path; empty logs to stdout.
	LogFile string

	// MetricsAddr is where /metrics is served; empty disables it.
	MetricsAddr string
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps the fields into
// the client view, and validates the resulting [ClientConfig].
func GetClientConfig(flags *StructuredConfig) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := NewClientConfig(cfg)
	return clientCfg, clientCfg.validate()
}

// NewClientConfig maps a structured config onto the client view without
// validating it.
func NewClientConfig(cfg *StructuredConfig) *ClientConfig {
	return &ClientConfig{
		Account: ClientAccount{
			TokenserverURL: cfg.Account.TokenserverURL,
			KeyID:          cfg.Account.KeyID,
			AccessToken:    cfg.Account.AccessToken,
			SyncKey:        cfg.Account.SyncKey,
		},
		Device: ClientDevice{
			ID:   cfg.Device.ID,
			Name: cfg.Device.Name,
			Type: cfg.Device.Type,
		},
		Adapter: ClientAdapter{RequestTimeout: cfg.Adapter.RequestTimeout},
		Storage: ClientStorage{
			HistoryDSN: cfg.Storage.HistoryDSN,
			StateFile:  cfg.Storage.StateFile,
		},
		Workers:     ClientWorkers{SyncInterval: cfg.Workers.SyncInterval},
		Engines:     append([]string(nil), cfg.Engines.Enabled...),
		LogFile:     cfg.Log.File,
		MetricsAddr: cfg.Metrics.Addr,
	}
}
