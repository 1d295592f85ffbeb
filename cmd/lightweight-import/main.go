package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/lightweight/internal/config"
	"github.com/claude/lightweight/internal/importer"
	"github.com/claude/lightweight/internal/ingest/alpha"
	"github.com/claude/lightweight/internal/logging"
	"github.com/claude/lightweight/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	serverURL := flag.String("server", "", "LightWeight server URL; when set, exports are sent over HTTP instead of written locally")
	exportPath := flag.String("path", "", "Alpha Progression .csv export or a directory of them (required)")
	dryRun := flag.Bool("dry-run", false, "parse and count without storing anything")
	stateDir := flag.String("state-dir", "", "directory for the import state database (default ~/.lightweight-import)")
	verbose := flag.Bool("v", false, "debug logging")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("lightweight-import", Version)
		return
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	log := logging.New(os.Stdout, level, "text")

	if *exportPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: lightweight-import [-config config.yaml | -server URL] -path <export.csv|dir> [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		log.Info("DRY RUN mode: nothing will be stored")
	}

	state, err := openState(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	var sink importer.Sink
	switch {
	case *dryRun:
	case *serverURL != "":
		log.Info("remote mode", "server", *serverURL)
		sink = importer.NewClient(*serverURL)
	default:
		db, err := openLocal(ctx, *configPath, log)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		sink = alpha.NewProvider(db, log)
	}

	imp := importer.New(sink, state, log, *dryRun)
	stats, err := imp.Import(ctx, *exportPath)
	printStats(log, stats)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	if stats.FilesErrored > 0 {
		os.Exit(1)
	}
	log.Info("import complete")
}

func openState(dir string) (*importer.StateDB, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}
		dir = filepath.Join(home, ".lightweight-import")
	}
	return importer.OpenStateDB(dir)
}

func openLocal(ctx context.Context, configPath string, log *slog.Logger) (*storage.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := storage.RunMigrations(cfg.Database.Driver, cfg.Database.MigrationURL()); err != nil {
		return nil, err
	}
	log.Info("migrations applied")

	db, err := storage.New(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	log.Info("database connected", "driver", cfg.Database.Driver)
	return db, nil
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"sessions", stats.SessionsParsed,
		"exercises_created", stats.ExercisesCreated,
		"sets_received", stats.SetsReceived,
		"sets_inserted", stats.SetsInserted,
		"sets_skipped", stats.SetsSkipped,
		"warmups_skipped", stats.WarmupsSkipped,
	)
}
