package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"garden/internal/activity"
	"garden/internal/assist"
	"garden/internal/auth"
	"garden/internal/handlers"
	"garden/internal/moderation"
	"garden/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if cfg.Store.Seed {
		hash, err := auth.HashPassword(cfg.Admin.Password)
		if err != nil {
			return err
		}
		if err := store.Seed(ctx, st, cfg.Admin.Email, hash); err != nil {
			return err
		}
	}

	var capability assist.Capability
	if cfg.AI.APIKey != "" {
		gen, err := assist.NewGeminiGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return err
		}
		capability = assist.NewService(gen)
	} else {
		logger.Warn("no AI credential configured; /api/ai will report errors")
	}

	sessions := auth.NewManager(st, auth.LogMailer{Log: logger.Named("mail")}, cfg.SessionTTL(), logger.Named("auth"))
	h := handlers.New(st,
		sessions,
		moderation.New(st, logger.Named("moderation")),
		activity.NewTracker(st, logger.Named("activity")),
		assist.NewHandler(capability, logger.Named("assist")),
		logger.Named("http"))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
