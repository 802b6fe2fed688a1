package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jordanhubbard/astrohub/internal/app"
	"github.com/jordanhubbard/astrohub/internal/telegram"
	"github.com/jordanhubbard/astrohub/internal/tracing"
)

// version is set at build time via -ldflags.
var version = "dev"

// runHealthCheck performs an HTTP health check against the given address.
// addr should be in the form ":port" or "host:port".
func runHealthCheck(addr string) error {
	resp, err := http.Get(fmt.Sprintf("http://localhost%s/healthz", addr))
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func main() {
	// Built-in health check mode for Docker HEALTHCHECK (distroless has no curl).
	if len(os.Args) > 1 && os.Args[1] == "-healthcheck" {
		addr := os.Getenv("ASTROHUB_LISTEN_ADDR")
		if addr == "" {
			addr = ":8080"
		}
		if err := runHealthCheck(addr); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	log.Printf("astrohub version %s", version)
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := run(cfg); err != nil {
		slog.Error("astrohub stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:  cfg.OTelEnabled,
		Endpoint: cfg.OTelEndpoint,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	// Long polling holds a request open for up to 60s.
	tg, err := telegram.New(cfg.BotToken, &http.Client{Timeout: 75 * time.Second})
	if err != nil {
		return err
	}

	srv, err := app.NewServer(cfg, tg)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// SIGHUP: hot-reload configuration without restarting.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("admin API listening", slog.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error { return tg.Run(gctx, srv.Dispatcher()) })
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-reload:
				slog.Info("SIGHUP received, reloading configuration")
				newCfg, err := app.LoadConfig()
				if err != nil {
					slog.Warn("config reload failed, keeping current config", slog.String("error", err.Error()))
					continue
				}
				srv.Reload(newCfg)
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down (draining in-flight requests)")
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})

	runErr := g.Wait()

	// Queued chat events drain before the store closes.
	if err := srv.Close(); err != nil {
		slog.Warn("server close error", slog.String("error", err.Error()))
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(sctx); err != nil {
		slog.Warn("tracing shutdown error", slog.String("error", err.Error()))
	}
	slog.Info("shutdown complete")
	return runErr
}
