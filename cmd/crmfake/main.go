package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/config"
	"github.com/johnwards/crmproxy/internal/crmfake"
	"github.com/johnwards/crmproxy/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "crmfake:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFakeCRM()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := crmfake.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	s := crmfake.NewServer(db,
		crmfake.WithAuthToken(cfg.AuthToken),
		crmfake.WithLogger(log),
	)
	srv := &http.Server{Addr: cfg.Addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		log.Info("shutting down crmfake")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	log.Info("starting crmfake", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath), zap.Bool("auth", cfg.AuthToken != ""))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
