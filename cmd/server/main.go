package main

import (
	"fmt"
	"os"

	"github.com/St1cky1/tasklist/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Error("tasklist failed")
		os.Exit(1)
	}
}

type app struct {
	configFile string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "tasklist",
		Short:         "Per-user task list service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(nil, a.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := config.SetupLogger(cfg.Logger, cmd.ErrOrStderr()); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file path (yaml)")
	cmd.AddCommand(
		a.newServeCommand(),
		a.newMigrateCommand(),
		a.newAuditWorkerCommand(),
		a.newTokenCommand(),
	)
	return cmd
}
