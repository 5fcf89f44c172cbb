package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sponge-spot/internal/api"
	"github.com/sells-group/sponge-spot/internal/scorer"
	"github.com/sells-group/sponge-spot/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the map API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		data, err := loadDataset(ctx, cfg)
		if err != nil {
			return err
		}

		sessions := session.NewManager(data, sessionOptions(cfg), cfg.Session.IdleTTL)
		proxy, cache := tileProxy(cfg)
		metrics := api.NewMetrics(sessions, cache)

		defaults := cfg.Filter.Criteria()
		server := api.NewServer(api.Options{
			Map: api.MapView{
				CenterLat:   cfg.Map.CenterLat,
				CenterLon:   cfg.Map.CenterLon,
				Zoom:        cfg.Map.Zoom,
				TileURL:     cfg.Map.TileURL,
				Attribution: cfg.Map.Attribution,
			},
			Defaults:    &defaults,
			Scorer:      scorer.New(cfg.Scorer),
			CORSOrigins: cfg.Server.CORSOrigins,
		}, data, sessions, proxy, metrics)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           server.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			zap.L().Info("starting server",
				zap.Int("port", cfg.Server.Port),
				zap.Int("locations", data.Len()),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			sessions.Run(gctx, cfg.Session.SweepInterval)
			return nil
		})

		// Graceful shutdown
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "server shutdown")
			}
			return nil
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
