package server

import (
	"net/http"
	"time"

	"github.com/claude/lightweight/internal/models"
	"github.com/go-chi/chi/v5"
)

type setRequest struct {
	PerformedAt *time.Time `json:"performed_at"`
	Weight      float64    `json:"weight"`
	Reps        int        `json:"reps"`
	RPE         *float64   `json:"rpe"`
}

func (req setRequest) toSet() models.Set {
	s := models.Set{Weight: req.Weight, Reps: req.Reps, RPE: req.RPE}
	if req.PerformedAt != nil {
		s.PerformedAt = *req.PerformedAt
	}
	return s
}

func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.db.GetExercise(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	sets, err := s.db.ListSets(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sets == nil {
		sets = []models.Set{}
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	set := req.toSet()
	set.ExerciseID = chi.URLParam(r, "id")

	created, err := s.db.LogSet(r.Context(), set)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.CounterSetsLogged.Inc()
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSet(w http.ResponseWriter, r *http.Request) {
	set, err := s.db.GetSet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	set := req.toSet()
	set.ID = chi.URLParam(r, "id")

	updated, err := s.db.UpdateSet(r.Context(), set)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteSet(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
