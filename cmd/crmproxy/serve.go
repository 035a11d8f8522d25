package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/config"
	"github.com/johnwards/crmproxy/internal/gateway"
	"github.com/johnwards/crmproxy/internal/hubspot"
	"github.com/johnwards/crmproxy/internal/insight"
	"github.com/johnwards/crmproxy/internal/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway (default command)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	crm := hubspot.New(cfg.HubSpotBaseURL, cfg.HubSpotToken,
		hubspot.WithTimeout(cfg.UpstreamTimeout),
		hubspot.WithLogger(log.Named("hubspot")),
	)

	gen, err := insight.NewGemini(ctx, insight.GeminiConfig{
		APIKey:  cfg.GeminiToken,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: gateway.New(gateway.Deps{
			CRM:      crm,
			Insights: insight.NewService(gen, log.Named("insight")),
			Logger:   log,
			Assets:   staticAssets(cfg.StaticDir, log),
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting crmproxy", zap.String("addr", cfg.Addr), zap.String("model", gen.Model()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// staticAssets returns the front end directory, or nil when it is missing.
func staticAssets(dir string, log *zap.Logger) fs.FS {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Info("static assets disabled", zap.String("dir", dir))
		return nil
	}
	return os.DirFS(dir)
}
