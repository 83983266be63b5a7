package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"posd/pkg/db"
	"posd/services/admin"
	"posd/services/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		pretty  bool
	)

	root := &cobra.Command{
		Use:           "posd",
		Short:         "Point-of-sale administration service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				// Missing .env is fine outside local development.
				_ = godotenv.Load(envFile)
			}
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")

	root.AddCommand(newServeCmd(&pretty))
	root.AddCommand(newMigrateCmd(&pretty))
	root.AddCommand(newSeedCmd(&pretty))
	return root
}

func newLogger(pretty bool) zerolog.Logger {
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func newServeCmd(pretty *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*pretty)

			cfg, err := server.LoadConfig(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return server.Run(cmd.Context(), cfg, logger)
		},
	}
}

func newMigrateCmd(pretty *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*pretty)

			dsn := os.Getenv("DATABASE_URL")
			if dsn == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			pool, err := db.Open(ctx, dsn)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Msg("migrations applied")
			return nil
		},
	}
}

func newSeedCmd(pretty *bool) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a YAML catalog of places, tables and menus",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*pretty)

			dsn := os.Getenv("DATABASE_URL")
			if dsn == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer f.Close()

			catalog, err := admin.ParseCatalog(f)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			orm, err := db.OpenORM(ctx, dsn)
			if err != nil {
				return fmt.Errorf("open orm: %w", err)
			}
			defer func() {
				if err := db.CloseORM(orm); err != nil {
					logger.Warn().Err(err).Msg("close orm")
				}
			}()

			stats, err := admin.Seed(ctx, orm, catalog)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			logger.Info().
				Str("store_id", catalog.StoreID).
				Int("places", stats.Places).
				Int("tables", stats.Tables).
				Int("categories", stats.Categories).
				Int("menus", stats.Menus).
				Msg("catalog imported")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "catalog.yaml", "catalog file to import")
	return cmd
}
