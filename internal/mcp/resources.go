package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/lightweight/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

type catalogEntry struct {
	models.Exercise
	LastSession *models.SessionSummary `json:"last_session,omitempty"`
}

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return nil, err
	}

	catalog := make([]catalogEntry, 0, len(exercises))
	for _, ex := range exercises {
		entry := catalogEntry{Exercise: ex}
		groups, err := h.ds.ExerciseSessions(ctx, ex.ID, h.restThreshold, 1)
		if err != nil {
			h.log.Warn("exercise_catalog: session query failed", "exercise", ex.ID, "error", err)
		} else if len(groups) > 0 {
			sum := groups[0].Summary()
			entry.LastSession = &sum
		}
		catalog = append(catalog, entry)
	}

	data, err := json.Marshal(catalog)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
