package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/claude/lightweight/internal/models"
	"github.com/claude/lightweight/internal/ordering"
	"github.com/google/uuid"
)

// ListExercises returns all exercises in display order.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	return db.listExercises(ctx, db.SQL)
}

func (db *DB) listExercises(ctx context.Context, q querier) ([]models.Exercise, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, notes, order_number
		 FROM exercises
		 ORDER BY order_number ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.Notes, &e.OrderNumber); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetExercise retrieves a single exercise by ID.
func (db *DB) GetExercise(ctx context.Context, id string) (*models.Exercise, error) {
	return db.getExercise(ctx, db.SQL, id)
}

func (db *DB) getExercise(ctx context.Context, q querier, id string) (*models.Exercise, error) {
	var e models.Exercise
	err := q.QueryRowContext(ctx, db.rebind(
		`SELECT id, name, notes, order_number FROM exercises WHERE id = ?`), id,
	).Scan(&e.ID, &e.Name, &e.Notes, &e.OrderNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exercise %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise: %w", err)
	}
	return &e, nil
}

// FindExerciseByName looks an exercise up by its exact name.
func (db *DB) FindExerciseByName(ctx context.Context, name string) (*models.Exercise, error) {
	return db.findExerciseByName(ctx, db.SQL, strings.TrimSpace(name))
}

func (db *DB) findExerciseByName(ctx context.Context, q querier, name string) (*models.Exercise, error) {
	var e models.Exercise
	err := q.QueryRowContext(ctx, db.rebind(
		`SELECT id, name, notes, order_number FROM exercises WHERE name = ?`), name,
	).Scan(&e.ID, &e.Name, &e.Notes, &e.OrderNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exercise %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise by name: %w", err)
	}
	return &e, nil
}

// CreateExercise adds an exercise at the head of the display order.
func (db *DB) CreateExercise(ctx context.Context, name, notes string) (*models.Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	e := models.Exercise{ID: uuid.NewString(), Name: name, Notes: notes}
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := db.ensureNameFree(ctx, tx, name, ""); err != nil {
			return err
		}

		current, err := db.listExercises(ctx, tx)
		if err != nil {
			return err
		}
		e.OrderNumber = ordering.HeadOrder(current)

		return db.insertExercise(ctx, tx, e)
	})
	if err != nil {
		return nil, err
	}

	db.publish(models.EntityExercise, models.OpCreated, e.ID, e.ID)
	return &e, nil
}

// UpdateExercise renames an exercise and replaces its notes. The returned bool
// reports whether anything was written; identical values are a successful no-op.
func (db *DB) UpdateExercise(ctx context.Context, id, name, notes string) (*models.Exercise, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, ErrEmptyName
	}

	var updated *models.Exercise
	changed := false
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := db.getExercise(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing.Name == name && existing.Notes == notes {
			updated = existing
			return nil
		}
		if existing.Name != name {
			if err := db.ensureNameFree(ctx, tx, name, id); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, db.rebind(
			`UPDATE exercises SET name = ?, notes = ? WHERE id = ?`), name, notes, id)
		if isUniqueViolation(err) {
			return fmt.Errorf("%q: %w", name, ErrDuplicateName)
		}
		if err != nil {
			return fmt.Errorf("updating exercise %s: %w", id, err)
		}
		existing.Name = name
		existing.Notes = notes
		updated = existing
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		db.publish(models.EntityExercise, models.OpUpdated, id, id)
	}
	return updated, changed, nil
}

// DeleteExercise removes an exercise together with all of its sets.
func (db *DB) DeleteExercise(ctx context.Context, id string) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM sets WHERE exercise_id = ?`), id); err != nil {
			return fmt.Errorf("deleting sets of exercise %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM exercises WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("deleting exercise %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("exercise %s: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.publish(models.EntityExercise, models.OpDeleted, id, id)
	return nil
}

// MoveExercise moves the exercise at display index source to destination and
// renumbers the whole collection 0..N-1. It returns the written assignments,
// or none when the move is a no-op.
func (db *DB) MoveExercise(ctx context.Context, source, destination int) ([]ordering.Assignment, error) {
	var assignments []ordering.Assignment
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := db.listExercises(ctx, tx)
		if err != nil {
			return err
		}

		assignments = ordering.Move(current, source, destination)
		for _, a := range assignments {
			_, err := tx.ExecContext(ctx, db.rebind(
				`UPDATE exercises SET order_number = ? WHERE id = ?`), a.Order, a.ID)
			if err != nil {
				return fmt.Errorf("updating order of exercise %s: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(assignments) > 0 {
		db.publish(models.EntityExercise, models.OpReordered, "", "")
	}
	return assignments, nil
}

// insertExercise writes e. A concurrent writer can claim the name after
// ensureNameFree passed, so the unique index is the final word.
func (db *DB) insertExercise(ctx context.Context, q querier, e models.Exercise) error {
	_, err := q.ExecContext(ctx, db.rebind(
		`INSERT INTO exercises (id, name, notes, order_number) VALUES (?, ?, ?, ?)`),
		e.ID, e.Name, e.Notes, e.OrderNumber)
	if isUniqueViolation(err) {
		return fmt.Errorf("%q: %w", e.Name, ErrDuplicateName)
	}
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

// ensureNameFree fails with ErrDuplicateName when an exercise other than
// exceptID already uses name.
func (db *DB) ensureNameFree(ctx context.Context, q querier, name, exceptID string) error {
	other, err := db.findExerciseByName(ctx, q, name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if other.ID != exceptID {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	return nil
}
