// Command homely-import seeds Postgres from the JSON datasets so the API
// can load them with PROPERTIES_SOURCE=postgres.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yourorg/homely-api/internal/amenity"
	"github.com/yourorg/homely-api/internal/dataset"
	"github.com/yourorg/homely-api/internal/env"
	"github.com/yourorg/homely-api/internal/logger"
	"github.com/yourorg/homely-api/internal/store"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	dsn     string
	timeout time.Duration
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "homely-import",
		Short:        "Seed the Homely Postgres store from dataset files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.log = logger.New(env.Get("LOG_LEVEL", "info"))
			if opts.dsn == "" {
				return fmt.Errorf("--dsn or PG_DSN is required")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", os.Getenv("PG_DSN"), "Postgres connection string")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall deadline")

	root.AddCommand(newMigrateCmd(opts), newPropertiesCmd(opts), newAmenitiesCmd(opts))
	return root
}

// withStore opens, pings and migrates the store, then runs fn.
func withStore(cmd *cobra.Command, opts *options, fn func(ctx context.Context, st *store.Store) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	st, err := store.Open(opts.dsn)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return fn(ctx, st)
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(context.Context, *store.Store) error {
				opts.log.Info("schema up to date")
				return nil
			})
		},
	}
}

func newPropertiesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "properties <file-or-url>",
		Short: "Replace the properties table with a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(ctx context.Context, st *store.Store) error {
				raw, err := dataset.NewFetcher(0).Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				props, err := dataset.DecodeProperties(raw)
				if err != nil {
					return err
				}
				if err := st.ImportProperties(ctx, props); err != nil {
					return fmt.Errorf("import properties: %w", err)
				}
				opts.log.Info("properties imported", slog.Int("count", len(props)), slog.String("source", args[0]))
				return nil
			})
		},
	}
}

func newAmenitiesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "amenities <category> <file-or-url>",
		Short: "Replace one amenity category with a dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := amenity.ParseCategory(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, opts, func(ctx context.Context, st *store.Store) error {
				raw, err := dataset.NewFetcher(0).Fetch(ctx, args[1])
				if err != nil {
					return err
				}
				list, err := dataset.DecodeAmenities(raw)
				if err != nil {
					return err
				}
				if err := st.ImportAmenities(ctx, c, list); err != nil {
					return fmt.Errorf("import %s: %w", c.Key(), err)
				}
				opts.log.Info("amenities imported", slog.String("category", c.Key()), slog.Int("count", len(list)))
				return nil
			})
		},
	}
}
