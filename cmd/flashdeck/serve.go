package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/clock"
	"github.com/sakif/flashdeck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Migrate the database, then serve the API until SIGINT or SIGTERM.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAuth(); err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("version", Version),
		slog.String("driver", cfg.Database.Driver),
		slog.String("log_level", cfg.Log.Level),
	)

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close error", slog.String("error", err.Error()))
		}
	}()

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL))
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, server.Deps{
		Store:     store,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(cfg.Auth.BcryptCost),
		Clock:     clock.System{},
		Logger:    logger,
	})
	return srv.Run(ctx)
}
