package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwarvesf/paywatch/internal/handler/middleware"
	"github.com/dwarvesf/paywatch/internal/utils/config"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Mint an operator API token signed with ADMIN_JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")

			appConfig, err := config.Load()
			if err != nil {
				return err
			}

			token, err := middleware.GenerateToken(args[0], appConfig.Admin.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")

	return cmd
}
