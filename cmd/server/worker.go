package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/St1cky1/tasklist/internal/infrastructure/client"
	"github.com/St1cky1/tasklist/internal/repository"
	"github.com/St1cky1/tasklist/internal/worker"
	"github.com/St1cky1/tasklist/migrations"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func (a *app) newAuditWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audit-worker",
		Short: "Persist audit messages from RabbitMQ into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAuditWorker(cmd.Context())
		},
	}
}

func (a *app) runAuditWorker(ctx context.Context) error {
	cfg := a.cfg
	if cfg.RabbitMQ.URL == "" {
		return errors.New("rabbitmq.url is required (TASKLIST_RABBITMQ_URL)")
	}

	if cfg.Storage.AutoMigrate {
		if err := migrations.Run(cfg.Postgres.URL(), migrations.Up); err != nil {
			return err
		}
	}
	pg, err := client.NewPostgresClient(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	if err := channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	w := worker.NewAuditWorker(channel, cfg.RabbitMQ.Queue, repository.NewTaskAuditRepository(pg.Pool))

	workerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Start(workerCtx)
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"audit-worker": func(ctx context.Context) error {
			cancel()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})

	select {
	case err := <-done:
		// broker went away before any signal
		cancel()
		return err
	case code := <-wait:
		log.WithField("code", code).Info("audit worker exited")
		return shutdownError(code)
	}
}
