package mcp

import (
	"context"
	"time"

	"github.com/claude/lightweight/internal/models"
	"github.com/claude/lightweight/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	GetExercise(ctx context.Context, id string) (*models.Exercise, error)
	FindExerciseByName(ctx context.Context, name string) (*models.Exercise, error)
	CreateExercise(ctx context.Context, name, notes string) (*models.Exercise, error)
	// ExerciseSessions groups an exercise's sets. A zero restThreshold
	// selects the source's own default.
	ExerciseSessions(ctx context.Context, exerciseID string, restThreshold time.Duration, limit int) ([]models.SessionGroup, error)
	LogSet(ctx context.Context, s models.Set) (*models.Set, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
