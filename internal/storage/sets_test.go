package storage

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/claude/lightweight/internal/models"
)

func ptr(f float64) *float64 { return &f }

var base = time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

// TestLogSetRoundTrip stores a set and reads it back unchanged.
func TestLogSetRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ex, _ := db.CreateExercise(ctx, "Squat", "")

	in := models.Set{ExerciseID: ex.ID, PerformedAt: base, Weight: 102.5, Reps: 5, RPE: ptr(8.5)}
	created, err := db.LogSet(ctx, in)
	if err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	if created.ID == "" {
		t.Fatal("LogSet returned empty ID")
	}

	got, err := db.GetSet(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSet: %v", err)
	}
	if !got.PerformedAt.Equal(base) || got.Weight != 102.5 || got.Reps != 5 {
		t.Errorf("got %+v", got)
	}
	if got.RPE == nil || *got.RPE != 8.5 {
		t.Errorf("RPE = %v, want 8.5", got.RPE)
	}

	unrated, _ := db.LogSet(ctx, models.Set{ExerciseID: ex.ID, PerformedAt: base.Add(time.Minute), Weight: 100, Reps: 5})
	got, _ = db.GetSet(ctx, unrated.ID)
	if got.RPE != nil {
		t.Errorf("unrated RPE = %v, want nil", *got.RPE)
	}
}

// TestLogSetValidation rejects out-of-range values and unknown exercises.
func TestLogSetValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ex, _ := db.CreateExercise(ctx, "Squat", "")

	tests := []struct {
		name    string
		set     models.Set
		wantErr error
	}{
		{"negative weight", models.Set{ExerciseID: ex.ID, Weight: -1, Reps: 5}, ErrInvalidSet},
		{"nan weight", models.Set{ExerciseID: ex.ID, Weight: math.NaN(), Reps: 5}, ErrInvalidSet},
		{"negative reps", models.Set{ExerciseID: ex.ID, Weight: 20, Reps: -1}, ErrInvalidSet},
		{"rpe above scale", models.Set{ExerciseID: ex.ID, Weight: 20, Reps: 5, RPE: ptr(10.5)}, ErrInvalidSet},
		{"negative rpe", models.Set{ExerciseID: ex.ID, Weight: 20, Reps: 5, RPE: ptr(-0.5)}, ErrInvalidSet},
		{"unknown exercise", models.Set{ExerciseID: "missing", Weight: 20, Reps: 5}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.LogSet(ctx, tt.set)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LogSet error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestLogSetDefaultsTime fills a zero timestamp with the current time.
func TestLogSetDefaultsTime(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ex, _ := db.CreateExercise(ctx, "Squat", "")

	before := time.Now().Add(-time.Second)
	s, err := db.LogSet(ctx, models.Set{ExerciseID: ex.ID, Weight: 60, Reps: 10})
	if err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	if s.PerformedAt.Before(before) || s.PerformedAt.After(time.Now().Add(time.Second)) {
		t.Errorf("PerformedAt = %v, want about now", s.PerformedAt)
	}
}

// TestListSetsOrderAndLimit returns newest first and honours the limit.
func TestListSetsOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ex, _ := db.CreateExercise(ctx, "Row", "")

	for i := 0; i < 4; i++ {
		if _, err := db.LogSet(ctx, models.Set{ExerciseID: ex.ID, PerformedAt: base.Add(time.Duration(i) * time.Minute), Weight: 50, Reps: i + 1}); err != nil {
			t.Fatalf("LogSet: %v", err)
		}
	}

	all, err := db.ListSets(ctx, ex.ID, 0)
	if err != nil {
		t.Fatalf("ListSets: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].PerformedAt.After(all[i-1].PerformedAt) {
			t.Errorf("sets not descending at %d", i)
		}
	}
	if all[0].Reps != 4 {
		t.Errorf("newest reps = %d, want 4", all[0].Reps)
	}

	two, _ := db.ListSets(ctx, ex.ID, 2)
	if len(two) != 2 || two[0].Reps != 4 || two[1].Reps != 3 {
		t.Errorf("limited = %+v", two)
	}
}

// TestUpdateAndDeleteSet edits a set in place and removes it.
func TestUpdateAndDeleteSet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ex, _ := db.CreateExercise(ctx, "Curl", "")
	s, _ := db.LogSet(ctx, models.Set{ExerciseID: ex.ID, PerformedAt: base, Weight: 12, Reps: 10, RPE: ptr(7)})

	updated, err := db.UpdateSet(ctx, models.Set{ID: s.ID, PerformedAt: base, Weight: 14, Reps: 8})
	if err != nil {
		t.Fatalf("UpdateSet: %v", err)
	}
	if updated.ExerciseID != ex.ID {
		t.Errorf("ExerciseID = %q, want %q", updated.ExerciseID, ex.ID)
	}

	got, _ := db.GetSet(ctx, s.ID)
	if got.Weight != 14 || got.Reps != 8 || got.RPE != nil {
		t.Errorf("after update = %+v", got)
	}

	if _, err := db.UpdateSet(ctx, models.Set{ID: "missing", Weight: 1, Reps: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}

	if err := db.DeleteSet(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSet: %v", err)
	}
	if err := db.DeleteSet(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

// TestImportSetsIdempotent skips sets already stored at the same instant.
func TestImportSetsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ex, _ := db.CreateExercise(ctx, "Squat", "")

	batch := []models.Set{
		{ExerciseID: ex.ID, PerformedAt: base, Weight: 100, Reps: 5},
		{ExerciseID: ex.ID, PerformedAt: base.Add(time.Minute), Weight: 100, Reps: 5},
	}

	n, err := db.ImportSets(ctx, batch)
	if err != nil || n != 2 {
		t.Fatalf("first import = %d, %v; want 2", n, err)
	}
	n, err = db.ImportSets(ctx, batch)
	if err != nil || n != 0 {
		t.Fatalf("second import = %d, %v; want 0", n, err)
	}

	all, _ := db.ListSets(ctx, ex.ID, 0)
	if len(all) != 2 {
		t.Errorf("stored = %d, want 2", len(all))
	}
}

// TestExerciseSessions groups stored history by rest interval.
func TestExerciseSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ex, _ := db.CreateExercise(ctx, "Bench", "")

	offsets := []time.Duration{0, 3 * time.Minute, 6 * time.Minute, 48 * time.Hour, 48*time.Hour + 2*time.Minute}
	for _, off := range offsets {
		if _, err := db.LogSet(ctx, models.Set{ExerciseID: ex.ID, PerformedAt: base.Add(off), Weight: 80, Reps: 5}); err != nil {
			t.Fatalf("LogSet: %v", err)
		}
	}

	groups, err := db.ExerciseSessions(ctx, ex.ID, 15*time.Minute, 0)
	if err != nil {
		t.Fatalf("ExerciseSessions: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if len(groups[0].Sets) != 2 || len(groups[1].Sets) != 3 {
		t.Errorf("group sizes = %d, %d; want 2, 3", len(groups[0].Sets), len(groups[1].Sets))
	}

	limited, _ := db.ExerciseSessions(ctx, ex.ID, 15*time.Minute, 1)
	if len(limited) != 1 {
		t.Errorf("limited groups = %d, want 1", len(limited))
	}

	if _, err := db.ExerciseSessions(ctx, "missing", 15*time.Minute, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing exercise = %v, want ErrNotFound", err)
	}

	// A zero threshold falls back to the default gap rather than splitting
	// every set apart.
	defaulted, err := db.ExerciseSessions(ctx, ex.ID, 0, 0)
	if err != nil {
		t.Fatalf("ExerciseSessions(0): %v", err)
	}
	if len(defaulted) != 2 {
		t.Errorf("zero-threshold groups = %d, want 2", len(defaulted))
	}
}

// TestSetChangesPublished verifies every set write notifies the publisher.
func TestSetChangesPublished(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ex, _ := db.CreateExercise(ctx, "Dip", "")
	pub := &recordingPublisher{}
	db.SetPublisher(pub)

	s, _ := db.LogSet(ctx, models.Set{ExerciseID: ex.ID, PerformedAt: base, Weight: 0, Reps: 12})
	db.UpdateSet(ctx, models.Set{ID: s.ID, PerformedAt: base, Weight: 10, Reps: 10})
	db.DeleteSet(ctx, s.ID)

	changes := pub.all()
	wantOps := []string{models.OpCreated, models.OpUpdated, models.OpDeleted}
	if len(changes) != len(wantOps) {
		t.Fatalf("changes = %d, want %d", len(changes), len(wantOps))
	}
	for i, c := range changes {
		if c.Entity != models.EntitySet || c.Op != wantOps[i] || c.ExerciseID != ex.ID {
			t.Errorf("change %d = %+v", i, c)
		}
	}
}
