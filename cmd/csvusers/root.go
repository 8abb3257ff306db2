package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvusers/internal/config"
	"github.com/JonMunkholm/csvusers/internal/core"
	"github.com/JonMunkholm/csvusers/internal/database"
	"github.com/JonMunkholm/csvusers/internal/logging"
	"github.com/JonMunkholm/csvusers/internal/migrations"
)

// app holds what the subcommands share. The pool is opened on first use
// so that convert works without a database.
type app struct {
	configFile string
	cfg        *config.Config
	pool       *pgxpool.Pool

	// closers run in reverse order when the command finishes.
	closers []func()
}

// run executes the command line in args and releases a's resources even
// when the command fails. It returns the process exit code.
func run(a *app, args []string, stdout, stderr io.Writer) int {
	defer a.close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "csvusers",
		Short:        "Load users from CSV into PostgreSQL and report their age distribution",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file (default $CONFIG_FILE)")

	cmd.AddCommand(
		convertCmd(a),
		processCmd(a),
		reportCmd(a),
		exportCmd(a),
		resetCmd(a),
	)
	return cmd
}

func (a *app) init(logOut io.Writer) error {
	_ = godotenv.Load()

	path := a.configFile
	if path == "" {
		path = os.Getenv(config.FileEnvVar)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// Keep stdout for command output.
	logging.SetupWriter(logOut, cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// service opens the pool, applies migrations and builds a core.Service.
func (a *app) service(ctx context.Context) (*core.Service, error) {
	if a.pool == nil {
		pool, err := database.NewPool(ctx, &a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", a.cfg.Database.DatabaseName(), err)
		}
		a.pool = pool
		a.closers = append(a.closers, func() {
			pool.Close()
			slog.Debug("database pool closed")
		})
		if err := migrations.ApplyPool(ctx, pool); err != nil {
			return nil, err
		}
	}
	return core.NewService(a.pool, a.cfg)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
