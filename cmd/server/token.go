package main

import (
	"errors"
	"fmt"

	"github.com/St1cky1/tasklist/internal/infrastructure/auth"
	"github.com/spf13/cobra"
)

func (a *app) newTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint an access token for a user, for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Auth.Secret == "" {
				return errors.New("auth.secret is required (TASKLIST_AUTH_SECRET)")
			}
			tokens := auth.NewJWTManager(a.cfg.Auth.Secret, a.cfg.Auth.Issuer, a.cfg.Auth.TokenTTL)
			token, err := tokens.GenerateAccessToken(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}
