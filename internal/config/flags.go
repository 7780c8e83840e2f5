package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers the configuration flags on fs and returns the config
// they fill in. The result is only meaningful after fs has been parsed,
// which cobra does before running a command.
//
// Flags:
//
//	-c/--config           JSON or YAML config file path
//	--tokenserver-url     token server base URL
//	--key-id              X-KeyID value
//	--access-token        OAuth access token
//	--sync-key            kSync (base64url)
//	--device-id           FxA device id
//	--device-name         device name
//	--device-type         desktop, mobile, tablet, vr or tv
//	--history-db          history SQLite DSN
//	--state-file          persisted state file
//	--request-timeout     request timeout (e.g., "30s", "1m")
//	--sync-interval       scheduled sync period (e.g., "10m")
//	--engines             comma separated engine names
//	--log-file            rotated log file
//	--metrics-addr        listen address of /metrics
func BindFlags(fs *pflag.FlagSet) *StructuredConfig {
	cfg := &StructuredConfig{}

	fs.StringVarP(&cfg.FilePath, "config", "c", "", "JSON or YAML config file path")
	fs.StringVar(&cfg.Account.TokenserverURL, "tokenserver-url", "", "Token server base URL")
	fs.StringVar(&cfg.Account.KeyID, "key-id", "", "Key id sent as X-KeyID")
	fs.StringVar(&cfg.Account.AccessToken, "access-token", "", "OAuth access token")
	fs.StringVar(&cfg.Account.SyncKey, "sync-key", "", "kSync, base64url without padding")
	fs.StringVar(&cfg.Device.ID, "device-id", "", "FxA device id")
	fs.StringVar(&cfg.Device.Name, "device-name", "", "Device name")
	fs.StringVar(&cfg.Device.Type, "device-type", "", "Device type")
	fs.StringVar(&cfg.Storage.HistoryDSN, "history-db", "", "History SQLite DSN")
	fs.StringVar(&cfg.Storage.StateFile, "state-file", "", "Persisted state file")
	fs.DurationVar(&cfg.Adapter.RequestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&cfg.Workers.SyncInterval, "sync-interval", 0, "Scheduled sync period (e.g., 10m)")
	fs.StringSliceVar(&cfg.Engines.Enabled, "engines", nil, "Engines to sync")
	fs.StringVar(&cfg.Log.File, "log-file", "", "Log file path")
	fs.StringVar(&cfg.Metrics.Addr, "metrics-addr", "", "Listen address of /metrics")

	return cfg
}
