package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func writeTempConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func validStructuredConfig() *StructuredConfig {
	return &StructuredConfig{
		Account: Account{
			TokenserverURL: "https://token.example.com",
			KeyID:          "1234-abcd",
			AccessToken:    "access",
			SyncKey:        "ksync",
		},
		Device:  Device{ID: "device-1", Name: "laptop", Type: "desktop"},
		Storage: Storage{HistoryDSN: "file:history.db", StateFile: "state.json"},
		Adapter: Adapter{RequestTimeout: time.Second},
		Workers: Workers{SyncInterval: time.Minute},
	}
}

// ── builder ───────────────────────────────────────────────────────────────────

func TestNewConfigBuilder_InitialState(t *testing.T) {
	b := newConfigBuilder()
	require.NotNil(t, b)
	assert.NoError(t, b.err)
	assert.Empty(t, b.configs)
}

func TestBuild_PropagatesBuilderError(t *testing.T) {
	b := newConfigBuilder()
	b.err = assert.AnError

	cfg, err := b.build()
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, assert.AnError)
}

// TestBuild_FirstSourceWins verifies that a field set by an earlier config is
// not replaced by a later one, while unset fields are filled in.
func TestBuild_FirstSourceWins(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{Device: Device{Name: "from-flags"}},
		&StructuredConfig{Device: Device{Name: "from-env", Type: "mobile"}},
	)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "from-flags", cfg.Device.Name)
	assert.Equal(t, "mobile", cfg.Device.Type)
}

func TestBuild_NegativeDuration(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{Adapter: Adapter{RequestTimeout: -time.Second}})

	_, err := b.build()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWithDefaults_FillsGaps(t *testing.T) {
	cfg, err := newConfigBuilder().
		withFlags(&StructuredConfig{Workers: Workers{SyncInterval: time.Hour}}).
		withDefaults().
		build()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Workers.SyncInterval)
	assert.Equal(t, defaultRequestTimeout, cfg.Adapter.RequestTimeout)
	assert.Equal(t, defaultDeviceType, cfg.Device.Type)
	assert.Equal(t, defaultDeviceName, cfg.Device.Name)
}

func TestWithFile_MissingFileIsError(t *testing.T) {
	b := newConfigBuilder().
		withFlags(&StructuredConfig{FilePath: filepath.Join(t.TempDir(), "nope.json")}).
		withFile()
	assert.Error(t, b.err)
}

// ── env ───────────────────────────────────────────────────────────────────────

func TestParseEnv_AllFields(t *testing.T) {
	t.Setenv("SYNC15_CONFIG", "/etc/sync15.yaml")
	t.Setenv("SYNC15_ACCOUNT_TOKENSERVER_URL", "https://token.example.com")
	t.Setenv("SYNC15_ACCOUNT_KEY_ID", "kid")
	t.Setenv("SYNC15_ACCOUNT_ACCESS_TOKEN", "at")
	t.Setenv("SYNC15_ACCOUNT_SYNC_KEY", "sk")
	t.Setenv("SYNC15_DEVICE_ID", "dev")
	t.Setenv("SYNC15_DEVICE_NAME", "Laptop")
	t.Setenv("SYNC15_DEVICE_TYPE", "tablet")
	t.Setenv("SYNC15_STORAGE_HISTORY_DSN", "file:h.db")
	t.Setenv("SYNC15_STORAGE_STATE_FILE", "/tmp/state")
	t.Setenv("SYNC15_ADAPTER_REQUEST_TIMEOUT", "15s")
	t.Setenv("SYNC15_WORKERS_SYNC_INTERVAL", "5m")
	t.Setenv("SYNC15_ENGINES_ENABLED", "history,clients")
	t.Setenv("SYNC15_LOG_FILE", "/tmp/sync.log")
	t.Setenv("SYNC15_METRICS_ADDR", ":9100")

	cfg := &StructuredConfig{}
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "/etc/sync15.yaml", cfg.FilePath)
	assert.Equal(t, "https://token.example.com", cfg.Account.TokenserverURL)
	assert.Equal(t, "kid", cfg.Account.KeyID)
	assert.Equal(t, "at", cfg.Account.AccessToken)
	assert.Equal(t, "sk", cfg.Account.SyncKey)
	assert.Equal(t, Device{ID: "dev", Name: "Laptop", Type: "tablet"}, cfg.Device)
	assert.Equal(t, "file:h.db", cfg.Storage.HistoryDSN)
	assert.Equal(t, "/tmp/state", cfg.Storage.StateFile)
	assert.Equal(t, 15*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Workers.SyncInterval)
	assert.Equal(t, []string{"history", "clients"}, cfg.Engines.Enabled)
	assert.Equal(t, "/tmp/sync.log", cfg.Log.File)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestParseEnv_BadDuration(t *testing.T) {
	t.Setenv("SYNC15_ADAPTER_REQUEST_TIMEOUT", "soon")
	assert.Error(t, parseEnv(&StructuredConfig{}))
}

// ── file ──────────────────────────────────────────────────────────────────────

func TestParseFile_JSON(t *testing.T) {
	p := writeTempConfig(t, "config.json", `{
		"account": {"tokenserver_url": "https://t.example.com", "key_id": "k", "access_token": "a", "sync_key": "s"},
		"device": {"id": "d", "name": "n", "type": "mobile"},
		"storage": {"history_dsn": "file:x.db", "state_file": "s.json"},
		"adapter": {"request_timeout": "20s"},
		"workers": {"sync_interval": "1h"},
		"engines": {"enabled": ["history"]},
		"log": {"file": "l.log"}
	}`)

	cfg, err := parseFile(p)
	require.NoError(t, err)

	assert.Equal(t, "https://t.example.com", cfg.Account.TokenserverURL)
	assert.Equal(t, "mobile", cfg.Device.Type)
	assert.Equal(t, "file:x.db", cfg.Storage.HistoryDSN)
	assert.Equal(t, 20*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, time.Hour, cfg.Workers.SyncInterval)
	assert.Equal(t, []string{"history"}, cfg.Engines.Enabled)
	assert.Equal(t, "l.log", cfg.Log.File)
	assert.Empty(t, cfg.FilePath)
}

func TestParseFile_YAML(t *testing.T) {
	p := writeTempConfig(t, "config.yaml", `
account:
  tokenserver_url: https://t.example.com
  key_id: k
  access_token: a
  sync_key: s
device:
  id: d
  type: vr
storage:
  history_dsn: file:y.db
  state_file: state.json
adapter:
  request_timeout: 45s
workers:
  sync_interval: 2m
engines:
  enabled: [history, clients]
`)

	cfg, err := parseFile(p)
	require.NoError(t, err)

	assert.Equal(t, "k", cfg.Account.KeyID)
	assert.Equal(t, "vr", cfg.Device.Type)
	assert.Equal(t, "file:y.db", cfg.Storage.HistoryDSN)
	assert.Equal(t, 45*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Workers.SyncInterval)
	assert.Equal(t, []string{"history", "clients"}, cfg.Engines.Enabled)
}

func TestParseFile_InvalidJSON(t *testing.T) {
	p := writeTempConfig(t, "config.json", `{"adapter": {"request_timeout": true}}`)
	_, err := parseFile(p)
	assert.Error(t, err)
}

func TestDuration_JSONNumber(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, Duration(time.Second), d)

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"1s"`, string(out))
}

// ── flags ─────────────────────────────────────────────────────────────────────

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := BindFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"-c", "cfg.yaml",
		"--tokenserver-url", "https://t.example.com",
		"--device-type", "tv",
		"--request-timeout", "3s",
		"--engines", "history,clients",
	}))

	assert.Equal(t, "cfg.yaml", cfg.FilePath)
	assert.Equal(t, "https://t.example.com", cfg.Account.TokenserverURL)
	assert.Equal(t, "tv", cfg.Device.Type)
	assert.Equal(t, 3*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, []string{"history", "clients"}, cfg.Engines.Enabled)
}

// ── client view ───────────────────────────────────────────────────────────────

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *StructuredConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(*StructuredConfig) {}},
		{name: "missing access token", mutate: func(c *StructuredConfig) { c.Account.AccessToken = "" }, wantErr: ErrInvalidAccountConfigs},
		{name: "relative tokenserver url", mutate: func(c *StructuredConfig) { c.Account.TokenserverURL = "token" }, wantErr: ErrInvalidAccountConfigs},
		{name: "missing device id", mutate: func(c *StructuredConfig) { c.Device.ID = "" }, wantErr: ErrInvalidDeviceConfigs},
		{name: "unknown device type", mutate: func(c *StructuredConfig) { c.Device.Type = "fridge" }, wantErr: ErrInvalidDeviceConfigs},
		{name: "missing state file", mutate: func(c *StructuredConfig) { c.Storage.StateFile = "" }, wantErr: ErrInvalidStorageConfigs},
		{name: "zero timeout", mutate: func(c *StructuredConfig) { c.Adapter.RequestTimeout = 0 }, wantErr: ErrInvalidAdapterConfigs},
		{name: "zero interval", mutate: func(c *StructuredConfig) { c.Workers.SyncInterval = 0 }, wantErr: ErrInvalidWorkerConfigs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := validStructuredConfig()
			tt.mutate(sc)
			err := NewClientConfig(sc).validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetClientConfig_FromFlagsAndDefaults(t *testing.T) {
	flags := validStructuredConfig()
	flags.Adapter.RequestTimeout = 0
	flags.Device.Type = ""

	cfg, err := GetClientConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, defaultRequestTimeout, cfg.Adapter.RequestTimeout)
	assert.Equal(t, "desktop", cfg.Device.Type)
	assert.Equal(t, "device-1", cfg.Device.ID)
}
