package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"MacroLens/internal/api"
	"MacroLens/internal/model"
	"MacroLens/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the watchlist scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			a := newApp(cfg, logger)
			defer a.Close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	logger := a.logger
	logger.Info("MacroLens starting", zap.Any("sources", a.registry.Sources()))

	watchlist := make([]model.SeriesRequest, 0, len(a.cfg.Watchlist))
	for _, w := range a.cfg.Watchlist {
		req, err := w.Request()
		if err != nil {
			return err
		}
		watchlist = append(watchlist, req)
	}
	sched := scheduler.NewScheduler(ctx, a.resolver, watchlist, a.cfg.Schedule.Concurrency, logger)
	if a.disk != nil {
		sched.GC = a.disk
	}
	if err := sched.RegisterAll(a.cfg.Schedule.WarmCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if a.cfg.Schedule.RunOnStart {
		logger.Info("RUN_ON_START enabled, warming watchlist now")
		go sched.RunNow()
	}

	if a.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(a.resolver, a.recorder, a.registry.Sources(), a.cfg.Server.MaxBatch, logger)
	if av, ok := a.alphaVantage(); ok {
		handler.Overviews = av
	}
	if dm, ok := a.dataMapper(); ok {
		handler.Snapshots = dm
	}
	srv := &http.Server{
		Addr:         a.cfg.Server.Listen,
		Handler:      api.NewRouter(handler, logger),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("MacroLens stopped")
	return nil
}
