package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/claude/lightweight/internal/models"
	"github.com/claude/lightweight/internal/sessions"
	"github.com/google/uuid"
)

const setColumns = `id, exercise_id, performed_at_ms, weight, reps, rpe`

// ListSets returns an exercise's sets, most recent first. A limit <= 0
// returns all of them.
func (db *DB) ListSets(ctx context.Context, exerciseID string, limit int) ([]models.Set, error) {
	query := `SELECT ` + setColumns + `
		FROM sets
		WHERE exercise_id = ?
		ORDER BY performed_at_ms DESC, id DESC`
	args := []any{exerciseID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.SQL.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	var result []models.Set
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// GetSet retrieves a single set by ID.
func (db *DB) GetSet(ctx context.Context, id string) (*models.Set, error) {
	return db.getSet(ctx, db.SQL, id)
}

func (db *DB) getSet(ctx context.Context, q querier, id string) (*models.Set, error) {
	row := q.QueryRowContext(ctx, db.rebind(`SELECT `+setColumns+` FROM sets WHERE id = ?`), id)
	s, err := scanSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("set %s: %w", id, ErrNotFound)
	}
	return s, err
}

// LogSet validates and stores a new set for an existing exercise.
func (db *DB) LogSet(ctx context.Context, s models.Set) (*models.Set, error) {
	if err := normalizeSet(&s); err != nil {
		return nil, err
	}
	s.ID = uuid.NewString()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.getExercise(ctx, tx, s.ExerciseID); err != nil {
			return err
		}
		return db.insertSet(ctx, tx, s)
	})
	if err != nil {
		return nil, err
	}

	db.publish(models.EntitySet, models.OpCreated, s.ID, s.ExerciseID)
	return &s, nil
}

// UpdateSet replaces the values of an existing set. The set stays attached to
// its exercise; ExerciseID on the argument is ignored.
func (db *DB) UpdateSet(ctx context.Context, s models.Set) (*models.Set, error) {
	if err := normalizeSet(&s); err != nil {
		return nil, err
	}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := db.getSet(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		s.ExerciseID = existing.ExerciseID

		_, err = tx.ExecContext(ctx, db.rebind(
			`UPDATE sets SET performed_at_ms = ?, weight = ?, reps = ?, rpe = ? WHERE id = ?`),
			s.PerformedAt.UnixMilli(), s.Weight, s.Reps, nullableRPE(s.RPE), s.ID)
		if err != nil {
			return fmt.Errorf("updating set %s: %w", s.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.publish(models.EntitySet, models.OpUpdated, s.ID, s.ExerciseID)
	return &s, nil
}

// DeleteSet removes a single set.
func (db *DB) DeleteSet(ctx context.Context, id string) error {
	var exerciseID string
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := db.getSet(ctx, tx, id)
		if err != nil {
			return err
		}
		exerciseID = existing.ExerciseID
		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM sets WHERE id = ?`), id); err != nil {
			return fmt.Errorf("deleting set %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.publish(models.EntitySet, models.OpDeleted, id, exerciseID)
	return nil
}

// ImportSets inserts sets in one transaction, skipping any set whose exercise
// already has a set at the same instant. Returns the number inserted.
func (db *DB) ImportSets(ctx context.Context, sets []models.Set) (int, error) {
	var inserted []models.Set
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		for _, s := range sets {
			if err := normalizeSet(&s); err != nil {
				return err
			}

			var exists int
			err := tx.QueryRowContext(ctx, db.rebind(
				`SELECT COUNT(*) FROM sets WHERE exercise_id = ? AND performed_at_ms = ?`),
				s.ExerciseID, s.PerformedAt.UnixMilli()).Scan(&exists)
			if err != nil {
				return fmt.Errorf("checking existing set: %w", err)
			}
			if exists > 0 {
				continue
			}

			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			if err := db.insertSet(ctx, tx, s); err != nil {
				return err
			}
			inserted = append(inserted, s)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, s := range inserted {
		db.publish(models.EntitySet, models.OpCreated, s.ID, s.ExerciseID)
	}
	return len(inserted), nil
}

// ExerciseSessions returns an exercise's set history grouped into sessions,
// most recent session first. A restThreshold <= 0 means
// sessions.DefaultRestThreshold. limit caps the number of sessions; <= 0 means all.
func (db *DB) ExerciseSessions(ctx context.Context, exerciseID string, restThreshold time.Duration, limit int) ([]models.SessionGroup, error) {
	if restThreshold <= 0 {
		restThreshold = sessions.DefaultRestThreshold
	}
	if _, err := db.GetExercise(ctx, exerciseID); err != nil {
		return nil, err
	}

	sets, err := db.ListSets(ctx, exerciseID, 0)
	if err != nil {
		return nil, err
	}

	groups := sessions.Group(sets, restThreshold)
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

func (db *DB) insertSet(ctx context.Context, q querier, s models.Set) error {
	_, err := q.ExecContext(ctx, db.rebind(
		`INSERT INTO sets (`+setColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		s.ID, s.ExerciseID, s.PerformedAt.UnixMilli(), s.Weight, s.Reps, nullableRPE(s.RPE))
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSet(row rowScanner) (*models.Set, error) {
	var (
		s  models.Set
		ms int64
		rp sql.NullFloat64
	)
	if err := row.Scan(&s.ID, &s.ExerciseID, &ms, &s.Weight, &s.Reps, &rp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning set: %w", err)
	}
	s.PerformedAt = time.UnixMilli(ms).UTC()
	if rp.Valid {
		v := rp.Float64
		s.RPE = &v
	}
	return &s, nil
}

// normalizeSet validates values and fills defaults. Times are stored with
// millisecond precision.
func normalizeSet(s *models.Set) error {
	if math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0) || s.Weight < 0 {
		return fmt.Errorf("weight must be a non-negative number: %w", ErrInvalidSet)
	}
	if s.Reps < 0 {
		return fmt.Errorf("reps must not be negative: %w", ErrInvalidSet)
	}
	if s.RPE != nil {
		r := *s.RPE
		if math.IsNaN(r) || r < 0 || r > models.MaxRPE {
			return fmt.Errorf("rpe must be between 0 and %g: %w", models.MaxRPE, ErrInvalidSet)
		}
	}
	if s.PerformedAt.IsZero() {
		s.PerformedAt = time.Now()
	}
	s.PerformedAt = s.PerformedAt.Truncate(time.Millisecond).UTC()
	return nil
}

func nullableRPE(rpe *float64) any {
	if rpe == nil {
		return nil
	}
	return *rpe
}
