package cmd

import (
	"fmt"

	"media-reconciler/core/config"
	"media-reconciler/core/database"
	"media-reconciler/core/logger"
	"media-reconciler/core/metrics"
	"media-reconciler/core/storage"
	"media-reconciler/feature/integrity"
	"media-reconciler/feature/media"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// deps bundles what every command builds from the configuration.
type deps struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	conn    *gorm.DB
	metrics *metrics.Metrics
}

// loadDeps loads configuration and the logger. The known-media database
// is optional: a failed connection or schema check leaves db nil. conn
// keeps any successful connection for the integrity checks.
func loadDeps() (*deps, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	d := &deps{cfg: cfg, log: logg}
	if cfg.Metrics.Enabled {
		d.metrics = metrics.New()
	}

	conn, err := database.Connect(cfg.Database)
	if err != nil {
		logg.Warn("Optional database connection failed", zap.Error(err))
		return d, nil
	}
	d.conn = conn

	repo := media.NewRepository(conn)
	if cfg.Database.Driver == "sqlite" {
		err = repo.Migrate()
	} else {
		err = repo.CheckSchema()
	}
	if err != nil {
		logg.Warn("Known-media table unusable, page exclusions disabled", zap.Error(err))
		return d, nil
	}

	d.db = conn
	logg.Info("Connected to known-media database", zap.String("driver", cfg.Database.Driver))
	return d, nil
}

func (d *deps) repository() *media.Repository {
	return media.NewRepository(d.db)
}

// service builds the media service. A nil doer uses the network.
func (d *deps) service(doer media.Doer) *media.Service {
	fetcher := media.NewAPIFetcher(d.cfg.Media, doer)
	return media.NewService(d.cfg.Media, fetcher, d.repository(), d.metrics, d.log)
}

// store returns the fixture archive store, or an error when it is disabled.
func (d *deps) store() (storage.Client, error) {
	if !d.cfg.Storage.Enabled {
		return nil, fmt.Errorf("object storage is disabled (set STORAGE_ENABLED=true)")
	}
	return storage.NewClient(d.cfg.Storage)
}

// integrity builds the health check service. Storage is checked only when
// enabled.
func (d *deps) integrity() *integrity.Service {
	var client storage.Client
	if d.cfg.Storage.Enabled {
		c, err := storage.NewClient(d.cfg.Storage)
		if err != nil {
			d.log.Warn("Storage client unavailable", zap.Error(err))
		} else {
			client = c
		}
	}
	return integrity.NewService(client, d.cfg.Storage, d.conn, media.NewAPIFetcher(d.cfg.Media, nil), d.log)
}
