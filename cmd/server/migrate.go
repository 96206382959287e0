package main

import (
	"fmt"

	"github.com/St1cky1/tasklist/internal/config"
	"github.com/St1cky1/tasklist/internal/infrastructure/client"
	"github.com/St1cky1/tasklist/internal/repository"
	"github.com/St1cky1/tasklist/migrations"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func (a *app) newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{migrations.Up, migrations.Down},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := migrations.Up
			if len(args) == 1 {
				direction = args[0]
			}
			return a.migrate(direction)
		},
	}
}

func (a *app) migrate(direction string) error {
	cfg := a.cfg
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return migrations.Run(cfg.Postgres.URL(), direction)

	case config.DriverSQLite:
		if direction != migrations.Up {
			return fmt.Errorf("sqlite schema only supports %q", migrations.Up)
		}
		db, err := client.NewSQLiteClient(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := repository.NewGormTaskRepository(db.DB).AutoMigrate(); err != nil {
			return err
		}
		log.WithField("path", cfg.Storage.SQLitePath).Info("sqlite schema up to date")
		return nil
	}

	return fmt.Errorf("storage driver %q has no schema", cfg.Storage.Driver)
}
