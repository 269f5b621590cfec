package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trentd187/golf-scorekeeper/internal/auth"
	"github.com/trentd187/golf-scorekeeper/internal/database"
	"github.com/trentd187/golf-scorekeeper/internal/live"
	"github.com/trentd187/golf-scorekeeper/internal/server"
)

// shutdownTimeout is how long in-flight requests get to finish after SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

const portFlag = "port"

var serveFlags = map[string]cobraflags.Flag{
	portFlag: &cobraflags.StringFlag{
		Name:  portFlag,
		Value: "",
		Usage: "Port to listen on (overrides PORT)",
	},
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load configuration from environment variables (and optionally a .env file).
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port := serveFlags[portFlag].GetString(); port != "" {
		cfg.Port = port
	}

	// Connect to the PostgreSQL database.
	// We keep the returned *gorm.DB; it's shared by middleware and handlers.
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	// Run any pending SQL migrations so the schema matches this binary.
	// Turn this off (MIGRATE_ON_START=false) when migrations are run as a separate deploy step.
	if cfg.MigrateOnStart {
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	// ctx is cancelled on Ctrl-C or when the platform stops the container.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The Hub manages all live WebSocket connections of players watching a
	// tournament. "go hub.Run(ctx)" runs it in the background until shutdown.
	hub := live.NewHub()
	go hub.Run(ctx)

	app := server.New(server.Deps{
		Config:     cfg,
		DB:         db,
		Auth:       auth.NewService(db, cfg.JWTSecret, cfg.TokenTTL),
		Hub:        hub,
		RequestLog: true,
	})

	listenErr := make(chan error, 1)
	go func() {
		// ":" + cfg.Port produces a string like ":8080", listening on all network interfaces.
		log.WithFields(log.Fields{"port": cfg.Port, "env": cfg.Env}).Info("Starting server")
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
