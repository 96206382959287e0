package main

import (
	"context"
	"fmt"

	"github.com/St1cky1/tasklist/internal/config"
	"github.com/St1cky1/tasklist/internal/infrastructure/client"
	"github.com/St1cky1/tasklist/internal/repository"
	"github.com/St1cky1/tasklist/migrations"
	log "github.com/sirupsen/logrus"
)

// storage is the task repository picked by storage.driver plus the hooks
// the server needs around it.
type storage struct {
	repo   repository.ITaskRepository
	health func(ctx context.Context) error
	close  func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	logger := log.WithField("driver", cfg.Storage.Driver)

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("tasks are kept in memory and lost on exit")
		return &storage{
			repo:  repository.NewMemoryTaskRepository(),
			close: func() {},
		}, nil

	case config.DriverSQLite:
		db, err := client.NewSQLiteClient(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo := repository.NewGormTaskRepository(db.DB)
		if cfg.Storage.AutoMigrate {
			if err := repo.AutoMigrate(); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		logger.WithField("path", cfg.Storage.SQLitePath).Info("sqlite storage ready")
		return &storage{
			repo:   repo,
			health: db.HealthCheck,
			close: func() {
				if err := db.Close(); err != nil {
					log.WithError(err).Warn("failed to close sqlite")
				}
			},
		}, nil

	case config.DriverPostgres:
		if cfg.Storage.AutoMigrate {
			if err := migrations.Run(cfg.Postgres.URL(), migrations.Up); err != nil {
				return nil, err
			}
		}
		pg, err := client.NewPostgresClient(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		logger.WithField("host", cfg.Postgres.Host).Info("postgres storage ready")
		return &storage{
			repo:   repository.NewTaskRepository(pg.Pool),
			health: pg.HealthCheck,
			close:  pg.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
