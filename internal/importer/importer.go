// Package importer feeds Alpha Progression CSV files from disk into a store,
// either locally or through a running server.
package importer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/lightweight/internal/ingest"
	"github.com/claude/lightweight/internal/ingest/alpha"
)

// Sink stores one export. *alpha.Provider and *Client satisfy it.
type Sink interface {
	Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error)
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	ingest.Result
}

// Importer walks a file or directory of exports.
type Importer struct {
	sink   Sink
	state  *StateDB
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. state may be nil to re-read every file.
// In dry-run mode sink may be nil; files are parsed and counted only.
func New(sink Sink, state *StateDB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{sink: sink, state: state, log: log, dryRun: dryRun}
}

// Import processes path, which is a single .csv file or a directory searched
// recursively for .csv files. A file that fails is counted and logged; the
// walk continues.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	files, err := FindExports(path)
	if err != nil {
		return &imp.stats, err
	}
	imp.log.Info("exports found", "path", path, "files", len(files))

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		imp.importFile(ctx, f)
	}
	return &imp.stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		imp.fail(path, err)
		return
	}

	var hash string
	if imp.state != nil {
		hash, err = HashFile(path)
		if err != nil {
			imp.fail(path, err)
			return
		}
		done, err := imp.state.IsImported(path, info.Size(), hash)
		if err != nil {
			imp.fail(path, err)
			return
		}
		if done {
			imp.log.Debug("unchanged, skipping", "file", path)
			imp.stats.FilesSkipped++
			return
		}
	}

	f, err := os.Open(path)
	if err != nil {
		imp.fail(path, err)
		return
	}
	defer f.Close()

	var result *ingest.Result
	if imp.dryRun {
		sessions, perr := alpha.Parse(f)
		if perr != nil {
			imp.fail(path, perr)
			return
		}
		result = alpha.Summarize(sessions)
	} else {
		result, err = imp.sink.Ingest(ctx, f)
		if err != nil {
			imp.fail(path, err)
			return
		}
		if imp.state != nil {
			if err := imp.state.MarkImported(path, info.Size(), hash); err != nil {
				imp.log.Warn("recording import state failed", "file", path, "error", err)
			}
		}
	}

	imp.stats.FilesProcessed++
	imp.stats.Add(result)
	imp.log.Info("file imported",
		"file", filepath.Base(path),
		"sessions", result.SessionsParsed,
		"sets_received", result.SetsReceived,
		"sets_inserted", result.SetsInserted,
	)
}

func (imp *Importer) fail(path string, err error) {
	imp.stats.FilesErrored++
	imp.log.Warn("import failed", "file", path, "error", err)
}

// FindExports returns path itself when it is a file, or every .csv file below
// it in lexical order when it is a directory.
func FindExports(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".csv") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}
