package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MKhiriev/go-sync15/internal/config"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/metrics"
	"github.com/MKhiriev/go-sync15/internal/service"
	"github.com/MKhiriev/go-sync15/internal/store"
	"github.com/MKhiriev/go-sync15/internal/workers"
	"github.com/MKhiriev/go-sync15/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App owns the local stores and the sync manager of one device.
type App struct {
	cfg      *config.ClientConfig
	db       *store.DB
	history  *store.HistoryStore
	state    *store.FileStateStore
	manager  *service.SyncManager
	registry *prometheus.Registry
	log      *logger.Logger
}

// NewApp opens the history database and registers it with a new sync
// manager. Close releases the database.
func NewApp(ctx context.Context, cfg *config.ClientConfig, log *logger.Logger) (*App, error) {
	db, err := store.NewConnectSQLite(ctx, cfg.Storage.HistoryDSN, log)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	history := store.NewHistoryStore(db, log)
	manager := service.NewSyncManager(service.SyncEnv{
		NewClient: service.NewStorageClientFactory(cfg.Adapter, m, log),
		Metrics:   m,
		Log:       log,
	})
	if err = manager.SetStore(models.HistoryCollection, history); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register history store: %w", err)
	}

	return &App{
		cfg:      cfg,
		db:       db,
		history:  history,
		state:    store.NewFileStateStore(cfg.Storage.StateFile),
		manager:  manager,
		registry: registry,
		log:      log,
	}, nil
}

func (a *App) params() models.SyncParams {
	deviceType, _ := models.ParseDeviceType(a.cfg.Device.Type)
	return models.SyncParams{
		EnginesToSync:  a.cfg.Engines,
		SyncAllEngines: len(a.cfg.Engines) == 0,
		AccountKeyID:   a.cfg.Account.KeyID,
		AccessToken:    a.cfg.Account.AccessToken,
		SyncKey:        a.cfg.Account.SyncKey,
		TokenserverURL: a.cfg.Account.TokenserverURL,
		FxaDeviceID:    a.cfg.Device.ID,
		DeviceName:     a.cfg.Device.Name,
		DeviceType:     deviceType,
	}
}

func (a *App) newJob() *service.SyncJob {
	return service.NewSyncJob(a.manager, a.state, a.params(), a.cfg.Workers.SyncInterval, a.log)
}

// restoreV1State seeds an empty state file from the global state an older
// history database kept in its meta table.
func (a *App) restoreV1State(ctx context.Context) error {
	current, err := a.state.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted state: %w", err)
	}
	if current != "" {
		return nil
	}
	migrated, err := a.history.MigrateV1GlobalState(ctx)
	if err != nil {
		return fmt.Errorf("migrate v1 global state: %w", err)
	}
	if migrated == "" {
		return nil
	}
	a.log.Info().Str("func", "App.restoreV1State").Msg("restored global state from history database")
	return a.state.Save(ctx, migrated)
}

// Sync runs one user-requested sync and saves the resulting state.
func (a *App) Sync(ctx context.Context) (*models.SyncResultReport, error) {
	if err := a.restoreV1State(ctx); err != nil {
		return nil, err
	}
	return a.newJob().RunOnce(ctx, models.ReasonUser)
}

// Run syncs at startup and then on every tick until ctx is done. When a
// metrics address is configured /metrics is served alongside.
func (a *App) Run(ctx context.Context) error {
	if err := a.restoreV1State(ctx); err != nil {
		return err
	}

	jobs := []workers.Worker{a.newJob()}
	if a.cfg.MetricsAddr != "" {
		jobs = append(jobs, newMetricsServer(a.cfg.MetricsAddr, a.MetricsHandler(), a.log))
	}
	w := workers.NewWorkers(jobs...)

	a.log.Info().Dur("interval", a.cfg.Workers.SyncInterval).Msg("scheduled sync started")
	w.Start(ctx)
	<-ctx.Done()
	w.Stop()
	a.log.Info().Msg("scheduled sync stopped")
	return nil
}

// WipeEngine deletes all local data of engine.
func (a *App) WipeEngine(ctx context.Context, engine string) error {
	return a.manager.Wipe(ctx, engine)
}

// ResetEngine forgets the sync metadata of engine so the next sync starts
// over.
func (a *App) ResetEngine(ctx context.Context, engine string) error {
	return a.manager.Reset(ctx, engine)
}

// MetricsHandler serves the metrics of this app in the Prometheus text
// format.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

func (a *App) Close() error {
	return a.db.Close()
}
