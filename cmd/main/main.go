package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"alias-service/internal/config"
	"alias-service/internal/store/postgres"
)

type app struct {
	cfg    config.Config
	logger zerolog.Logger
}

func (a *app) openDB(ctx context.Context) (*sqlx.DB, error) {
	return postgres.Open(ctx, postgres.ConnConfig{
		DSN:          a.cfg.DatabaseURL,
		MaxOpenConns: a.cfg.DBMaxOpenConns,
		Attempts:     a.cfg.DBConnectAttempts,
	}, a.logger)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:           "alias-service",
		Short:         "Cross-store product alias resolution",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.cfg = config.Load()
			if logLevel != "" {
				a.cfg.LogLevel = logLevel
			}
			a.logger = config.SetupLogger(a.cfg)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(newRunCmd(a), newImportCmd(a), newMigrateCmd(a), newServeCmd(a))
	return root
}

func main() {
	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		runtime.GOMAXPROCS(runtime.NumCPU())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Error().Err(err).Msg("alias-service failed")
		stop()
		os.Exit(1)
	}
}
