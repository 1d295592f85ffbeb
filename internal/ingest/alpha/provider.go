package alpha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/lightweight/internal/ingest"
	"github.com/claude/lightweight/internal/models"
	"github.com/claude/lightweight/internal/storage"
)

// SetSpacing separates consecutive working sets of one exercise in a session.
// Exports carry only the session start, so sets are laid out from there.
const SetSpacing = time.Minute

// ErrMalformed wraps errors caused by the export itself rather than by
// storing it.
var ErrMalformed = errors.New("malformed export")

// Store is the subset of storage.DB the importer needs.
type Store interface {
	FindExerciseByName(ctx context.Context, name string) (*models.Exercise, error)
	CreateExercise(ctx context.Context, name, notes string) (*models.Exercise, error)
	ImportSets(ctx context.Context, sets []models.Set) (int, error)
}

// Provider stores Alpha Progression exports.
type Provider struct {
	db  Store
	log *slog.Logger
}

// NewProvider creates a new Alpha Progression import provider.
func NewProvider(db Store, log *slog.Logger) *Provider {
	return &Provider{db: db, log: log}
}

// Ingest parses an export and stores its working sets. Exercises are matched
// by name and created when missing. Re-importing the same export inserts
// nothing new.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing CSV: %w", ErrMalformed, err)
	}

	result := Summarize(sessions)
	ids := make(map[string]string)
	var sets []models.Set

	for _, s := range sessions {
		for _, ex := range s.Exercises {
			id, created, err := p.resolveExercise(ctx, ids, ex.Name)
			if err != nil {
				return nil, err
			}
			if created {
				result.ExercisesCreated++
			}
			sets = append(sets, ToSets(id, s.Start, ex)...)
		}
	}

	if len(sets) > 0 {
		inserted, err := p.db.ImportSets(ctx, sets)
		if err != nil {
			return nil, fmt.Errorf("inserting sets: %w", err)
		}
		result.SetsInserted = inserted
		result.SetsSkipped = len(sets) - inserted
	}

	p.log.Info("alpha import complete",
		"sessions", result.SessionsParsed,
		"exercises_created", result.ExercisesCreated,
		"sets_inserted", result.SetsInserted,
		"sets_skipped", result.SetsSkipped,
	)
	return result, nil
}

// Summarize counts what an import of sessions would receive, without storing.
func Summarize(sessions []Session) *ingest.Result {
	result := &ingest.Result{SessionsParsed: len(sessions)}
	for _, s := range sessions {
		for _, ex := range s.Exercises {
			working := len(ex.WorkingSets())
			result.SetsReceived += working
			result.WarmupsSkipped += len(ex.Sets) - working
		}
	}
	return result
}

// ToSets converts an exercise's working sets. Set i is placed at
// start + i*SetSpacing.
func ToSets(exerciseID string, start time.Time, ex Exercise) []models.Set {
	working := ex.WorkingSets()
	out := make([]models.Set, 0, len(working))
	for i, s := range working {
		out = append(out, models.Set{
			ExerciseID:  exerciseID,
			PerformedAt: start.Add(time.Duration(i) * SetSpacing),
			Weight:      s.Weight,
			Reps:        s.Reps,
			RPE:         s.RPE(),
		})
	}
	return out
}

func (p *Provider) resolveExercise(ctx context.Context, cache map[string]string, name string) (string, bool, error) {
	if id, ok := cache[name]; ok {
		return id, false, nil
	}

	existing, err := p.db.FindExerciseByName(ctx, name)
	if err == nil {
		cache[name] = existing.ID
		return existing.ID, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", false, fmt.Errorf("looking up exercise %q: %w", name, err)
	}

	created, err := p.db.CreateExercise(ctx, name, "")
	if err != nil {
		return "", false, fmt.Errorf("creating exercise %q: %w", name, err)
	}
	p.log.Debug("exercise created by import", "name", name, "id", created.ID)
	cache[name] = created.ID
	return created.ID, true, nil
}
