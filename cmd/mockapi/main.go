// Command mockapi serves an in-memory copy of the feed API for local
// development of the clients.
//
// The auth mode comes from FEED_AUTH_MODE (or --mode), so the stub speaks
// the same dialect the client is configured for. Bearer mode needs
// MOCKAPI_JWT_SECRET; generate one with:
//
//	MOCKAPI_JWT_SECRET=$(openssl rand -hex 32)
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/config"
	"github.com/sakif/feedclient/internal/mockapi"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides MOCKAPI_ADDR)")
	modeFlag := flag.String("mode", "", "auth mode: bearer or username (overrides FEED_AUTH_MODE)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *addr != "" {
		cfg.MockAddr = *addr
	}
	if *modeFlag != "" {
		if cfg.AuthMode, err = auth.ParseMode(*modeFlag); err != nil {
			logger.Error("invalid --mode", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	srv, err := mockapi.New(mockapi.Config{
		Addr:      cfg.MockAddr,
		Mode:      cfg.AuthMode,
		JWTSecret: cfg.MockJWTSecret,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until Ctrl+C or SIGTERM, then drains in-flight requests.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
