package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/lightweight/internal/config"
	"github.com/claude/lightweight/internal/ingest/alpha"
	"github.com/claude/lightweight/internal/live"
	"github.com/claude/lightweight/internal/logging"
	lwmcp "github.com/claude/lightweight/internal/mcp"
	"github.com/claude/lightweight/internal/metrics"
	"github.com/claude/lightweight/internal/server"
	"github.com/claude/lightweight/internal/sessions"
	"github.com/claude/lightweight/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser := logging.Setup(logging.Params{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer logCloser.Close()
	log.Info("LightWeight starting", "version", Version, "driver", cfg.Database.Driver)

	if err := storage.RunMigrations(cfg.Database.Driver, cfg.Database.MigrationURL()); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()
	db, err := storage.New(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	restThreshold := sessions.Minutes(cfg.Sessions.RestThresholdMinutes)
	opts := server.Options{
		RestThreshold: restThreshold,
		CORSOrigin:    cfg.Server.CORSOrigin,
	}
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		opts.Metrics = metrics.NewManager(metrics.Namespace, metrics.Subsystem, reg)
		opts.Gatherer = reg
	}

	broker := live.NewBroker(log, opts.Metrics)
	db.SetPublisher(broker)

	mcpSrv := lwmcp.New(db, Version, restThreshold, log)
	opts.MCP = mcpserver.NewStreamableHTTPServer(mcpSrv)

	srv := server.New(db, broker, alpha.NewProvider(db, log), log, opts)

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
			Logf:     func(format string, args ...any) { log.Debug(fmt.Sprintf(format, args...)) },
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetIdentity(func(ctx context.Context, remoteAddr string) (server.UserInfo, error) {
			who, err := lc.WhoIs(ctx, remoteAddr)
			if err != nil {
				return server.UserInfo{}, err
			}
			return server.UserInfo{
				Login:       who.UserProfile.LoginName,
				DisplayName: who.UserProfile.DisplayName,
			}, nil
		})

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	// Live streams only end once their channels close.
	broker.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
