package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/medsafe-api/internal/config"
	"github.com/jwalitptl/medsafe-api/internal/repository/postgres"
	"github.com/jwalitptl/medsafe-api/migrations"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the medsafe database schema",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml (defaults to the usual search paths)")

	rootCmd.AddCommand(upCmd(&configPath))
	rootCmd.AddCommand(statusCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func connect(ctx context.Context, configPath string) (*sqlx.DB, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	log.Logger = *logger.NewLogger(cfg.Log.ToLoggerConfig()).Zerolog()
	return postgres.NewDB(ctx, cfg.Database)
}

func upCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			db, err := connect(ctx, *configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := migrations.NewMigrator(db, log.Logger).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", version)
			}
			return nil
		},
	}
}

func statusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := connect(ctx, *configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			statuses, err := migrations.NewMigrator(db, log.Logger).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.AppliedAt != nil {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", s.Version, state)
			}
			return nil
		},
	}
}
