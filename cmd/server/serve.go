package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/St1cky1/tasklist/internal/api"
	grpcapi "github.com/St1cky1/tasklist/internal/api/grpc"
	"github.com/St1cky1/tasklist/internal/infrastructure/auth"
	"github.com/St1cky1/tasklist/internal/infrastructure/client"
	"github.com/St1cky1/tasklist/internal/usecase"
	"github.com/St1cky1/tasklist/internal/validation"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func (a *app) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the task API over HTTP and gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	if cfg.Auth.Secret == "" {
		return errors.New("auth.secret is required (TASKLIST_AUTH_SECRET)")
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	opts := []usecase.Option{}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := client.NewRabbitMQClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, usecase.WithAuditPublisher(publisher))
		log.WithField("queue", publisher.QueueName()).Info("audit feed enabled")
	} else {
		log.Info("audit feed disabled: rabbitmq.url is empty")
	}

	taskService := usecase.NewTaskService(store.repo, opts...)
	validator := validation.New(nil)
	tokens := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	httpLis, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTP.Addr, err)
	}
	httpServer := &http.Server{
		Handler:           api.NewRouter(taskService, validator, tokens, store.health),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", httpLis.Addr().String()).Info("HTTP server listening")
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server stopped")
		}
	}()

	operations := map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	}

	if cfg.GRPC.Enabled {
		grpcLis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			_ = httpServer.Close()
			return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
		}
		grpcServer := grpcapi.NewGRPCServer(taskService, validator, tokens)
		go func() {
			if err := grpcServer.Serve(grpcLis); err != nil {
				log.WithError(err).Error("gRPC server stopped")
			}
		}()
		operations["grpc"] = grpcServer.Stop
	}

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, operations)
	exitCode := <-wait
	log.WithField("code", exitCode).Info("tasklist stopped")
	return shutdownError(exitCode)
}

// shutdownError turns a graceful-shutdown exit code into the command's
// error, leaving deferred cleanup and the process exit to the caller.
func shutdownError(exitCode int) error {
	if exitCode == 0 {
		return nil
	}
	return fmt.Errorf("shutdown finished with exit code %d", exitCode)
}
