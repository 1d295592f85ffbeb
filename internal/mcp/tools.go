package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/claude/lightweight/internal/models"
	"github.com/claude/lightweight/internal/sessions"
	"github.com/claude/lightweight/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

const defaultSessionLimit = 10

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List all exercises in display order with their IDs and notes."),
)

var toolGetSessions = mcp.NewTool("get_sessions",
	mcp.WithDescription("Get the training history of one exercise grouped into sessions, most recent first. Sets closer together than the rest gap belong to the same session. Each session carries set count, total reps, volume, top weight and average RPE."),
	mcp.WithString("exercise_id", mcp.Description("Exercise ID. Either exercise_id or exercise is required.")),
	mcp.WithString("exercise", mcp.Description("Exact exercise name, e.g. 'Bench Press'")),
	mcp.WithNumber("rest_minutes", mcp.Description("Rest gap in minutes that ends a session. Defaults to the server setting.")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return. Defaults to 10; 0 returns all.")),
)

var toolLogSet = mcp.NewTool("log_set",
	mcp.WithDescription("Record a performed set for an exercise."),
	mcp.WithString("exercise_id", mcp.Description("Exercise ID. Either exercise_id or exercise is required.")),
	mcp.WithString("exercise", mcp.Description("Exact exercise name")),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight moved, 0 for bodyweight")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Repetitions performed")),
	mcp.WithNumber("rpe", mcp.Description("Rate of perceived exertion, 0 to 10")),
	mcp.WithString("performed_at", mcp.Description("When the set was performed (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolCreateExercise = mcp.NewTool("create_exercise",
	mcp.WithDescription("Create a new exercise. It is placed at the top of the list."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Exercise name, unique")),
	mcp.WithString("notes", mcp.Description("Free-form notes")),
)

// --- Tool handlers ---

func (h *handlers) listExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if exercises == nil {
		exercises = []models.Exercise{}
	}

	result, err := mcp.NewToolResultJSON(exercises)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

type sessionResult struct {
	Summary models.SessionSummary `json:"summary"`
	Sets    []models.Set          `json:"sets"`
}

func (h *handlers) getSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ex, errResult := h.resolveExercise(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	threshold := h.restThreshold
	if m := req.GetFloat("rest_minutes", 0); m != 0 {
		if !sessions.ValidMinutes(m) {
			return mcp.NewToolResultError("rest_minutes must be a positive, finite number"), nil
		}
		threshold = sessions.Minutes(m)
	}
	limit := req.GetInt("limit", defaultSessionLimit)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	groups, err := h.ds.ExerciseSessions(ctx, ex.ID, threshold, limit)
	if err != nil {
		h.log.Error("mcp get_sessions", "exercise", ex.ID, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	out := make([]sessionResult, 0, len(groups))
	for _, g := range groups {
		out = append(out, sessionResult{Summary: g.Summary(), Sets: g.Sets})
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"exercise": ex,
		"sessions": out,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) logSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ex, errResult := h.resolveExercise(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError("weight parameter is required"), nil
	}
	reps, err := req.RequireInt("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}

	set := models.Set{ExerciseID: ex.ID, Weight: weight, Reps: reps}
	if _, ok := req.GetArguments()["rpe"]; ok {
		rpe := req.GetFloat("rpe", 0)
		set.RPE = &rpe
	}
	if s := req.GetString("performed_at", ""); s != "" {
		set.PerformedAt, err = parseFlexTime(s)
		if err != nil {
			return mcp.NewToolResultError("invalid performed_at: " + err.Error()), nil
		}
	}

	created, err := h.ds.LogSet(ctx, set)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidSet) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		h.log.Error("mcp log_set", "exercise", ex.ID, "error", err)
		return mcp.NewToolResultError("log failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(created)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) createExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	ex, err := h.ds.CreateExercise(ctx, name, req.GetString("notes", ""))
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateName) || errors.Is(err, storage.ErrEmptyName) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		h.log.Error("mcp create_exercise", "error", err)
		return mcp.NewToolResultError("create failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(ex)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// resolveExercise looks up the exercise named by exercise_id or exercise.
// A non-nil result is the error to hand back to the caller.
func (h *handlers) resolveExercise(ctx context.Context, req mcp.CallToolRequest) (*models.Exercise, *mcp.CallToolResult) {
	id := req.GetString("exercise_id", "")
	name := req.GetString("exercise", "")

	var ex *models.Exercise
	var err error
	switch {
	case id != "":
		ex, err = h.ds.GetExercise(ctx, id)
	case name != "":
		ex, err = h.ds.FindExerciseByName(ctx, name)
	default:
		return nil, mcp.NewToolResultError("exercise_id or exercise parameter is required")
	}

	if errors.Is(err, storage.ErrNotFound) {
		return nil, mcp.NewToolResultError("exercise not found")
	}
	if err != nil {
		h.log.Error("mcp resolve exercise", "id", id, "name", name, "error", err)
		return nil, mcp.NewToolResultError("query failed: " + err.Error())
	}
	return ex, nil
}
