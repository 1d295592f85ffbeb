package server

import (
	"net/http"
	"strconv"

	"github.com/claude/lightweight/internal/models"
	"github.com/claude/lightweight/internal/ordering"
	"github.com/claude/lightweight/internal/sessions"
	"github.com/go-chi/chi/v5"
)

type exerciseRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

type reorderRequest struct {
	Source      int  `json:"source"`
	Destination *int `json:"destination"`
}

type sessionResponse struct {
	Summary models.SessionSummary `json:"summary"`
	Sets    []models.Set          `json:"sets"`
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		e, err := s.db.FindExerciseByName(r.Context(), name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, []models.Exercise{*e})
		return
	}

	exercises, err := s.db.ListExercises(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if exercises == nil {
		exercises = []models.Exercise{}
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := s.db.CreateExercise(r.Context(), req.Name, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.CounterExercisesCreated.Inc()
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	e, err := s.db.GetExercise(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, changed, err := s.db.UpdateExercise(r.Context(), chi.URLParam(r, "id"), req.Name, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Changed", strconv.FormatBool(changed))
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteExercise(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderExercises(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dest := ordering.NoDestination
	if req.Destination != nil {
		dest = *req.Destination
	}

	assignments, err := s.db.MoveExercise(r.Context(), req.Source, dest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if assignments == nil {
		assignments = []ordering.Assignment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	threshold := s.restThreshold
	if v := r.URL.Query().Get("rest"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil || !sessions.ValidMinutes(m) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rest must be a positive, finite number of minutes"})
			return
		}
		threshold = sessions.Minutes(m)
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	groups, err := s.db.ExerciseSessions(r.Context(), chi.URLParam(r, "id"), threshold, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]sessionResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, sessionResponse{Summary: g.Summary(), Sets: g.Sets})
	}
	writeJSON(w, http.StatusOK, resp)
}
