package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	serverhttp "alias-service/server/http"
	"alias-service/server/http/handlers"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve /health, /metrics and POST /alias/preview",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// база опциональна: без неё /health не проверяет БД
			var pinger handlers.Pinger
			if a.cfg.DatabaseURL != "" {
				db, err := a.openDB(ctx)
				if err != nil {
					return err
				}
				defer db.Close()
				pinger = db
			}

			r := serverhttp.NewRouter(a.cfg, a.logger, pinger)
			srv := &http.Server{
				Addr:              a.cfg.Addr(),
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}
			a.logger.Info().Str("addr", a.cfg.Addr()).Msg("server starting")

			errc := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errc <- err
				}
				close(errc)
			}()

			// graceful shutdown
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			a.logger.Info().Msg("server shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
			a.logger.Info().Msg("bye")
			return nil
		},
	}
}
