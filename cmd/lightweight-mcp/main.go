package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/claude/lightweight/internal/config"
	"github.com/claude/lightweight/internal/logging"
	lwmcp "github.com/claude/lightweight/internal/mcp"
	"github.com/claude/lightweight/internal/sessions"
	"github.com/claude/lightweight/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	serverURL := flag.String("server", "", "LightWeight server URL for remote mode (e.g. http://lightweight.tail1234.ts.net)")
	restMinutes := flag.Float64("rest", 0, "default session rest gap in minutes (remote mode; local mode reads the config)")
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	log := logging.New(os.Stderr, "info", "text")

	if *restMinutes != 0 && !sessions.ValidMinutes(*restMinutes) {
		fmt.Fprintf(os.Stderr, "-rest must be a positive, finite number of minutes\n")
		os.Exit(2)
	}

	var ds lwmcp.DataSource
	restThreshold := sessions.Minutes(*restMinutes)

	if *serverURL != "" {
		ds = lwmcp.NewHTTPClient(*serverURL)
		log.Info("remote mode", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		if err := storage.RunMigrations(cfg.Database.Driver, cfg.Database.MigrationURL()); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(context.Background(), cfg.Database.Driver, cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ds = db
		if *restMinutes == 0 {
			restThreshold = sessions.Minutes(cfg.Sessions.RestThresholdMinutes)
		}
	}

	s := lwmcp.New(ds, Version, restThreshold, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
