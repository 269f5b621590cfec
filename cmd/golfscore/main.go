// cmd/golfscore/main.go
// This is the entry point for the Golf Scorekeeper binary.
// The "cmd/golfscore" directory follows a common Go convention: the cmd/ folder holds executable
// binaries, and internal/ holds reusable packages that are not meant to be imported by other projects.
//
// The binary is a small cobra CLI:
//
//	golfscore serve                 run the HTTP API
//	golfscore migrate up            apply pending migrations
//	golfscore migrate down [steps]  roll back (one step by default)
//	golfscore migrate status        print the current schema version
//	golfscore promote <email>       make a user an admin
package main

import (
	"context"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trentd187/golf-scorekeeper/internal/config"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "golfscore",
		Short: "Golf Scorekeeper API server and admin tools",
		// Errors are logged once by main; cobra would print them a second time.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newPromoteCommand())
	return root
}

// loadConfig reads and validates the configuration, then configures logrus
// from it. Every subcommand starts here.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging uses human-readable text logs in development and JSON
// everywhere else, where logs are shipped to an aggregator.
func setupLogging(cfg *config.Config) {
	if cfg.IsDevelopment() {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
