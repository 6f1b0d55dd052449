package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/1F47E/grid9/internal/api"
	"github.com/1F47E/grid9/internal/logging"
	"github.com/1F47E/grid9/pkg/index"
)

func (a *app) serveCmd() *cobra.Command {
	var addr, indexFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the grid9 HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			logger := logging.GetLoggerFromContext(a.ctx)

			opts := api.Options{
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				Nearby:         a.cfg.Nearby,
			}
			if indexFile != "" {
				idx := index.NewCodeIndexWithPartitions(a.cfg.Index.Partitions)
				if err := idx.LoadFromFile(indexFile); err != nil {
					return err
				}
				logger.Info().Str("file", indexFile).Int64("entries", idx.Count()).Msg("index loaded")
				opts.Index = idx
			}

			ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.New(ctx, opts),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", addr).Msg("starting http server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&indexFile, "index", "", "Load a saved index and enable the /api/v0/index routes")
	return cmd
}
