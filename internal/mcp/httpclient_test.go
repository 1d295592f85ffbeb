package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/lightweight/internal/models"
	"github.com/claude/lightweight/internal/storage"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestListExercises parses the flat exercise array.
func TestListExercises(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, []models.Exercise{
				{ID: "a", Name: "Squat", OrderNumber: -1},
				{ID: "b", Name: "Bench", OrderNumber: 0},
			})
		},
	})
	defer ts.Close()

	exercises, err := NewHTTPClient(ts.URL).ListExercises(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(exercises) != 2 || exercises[0].Name != "Squat" {
		t.Errorf("exercises = %+v", exercises)
	}
}

// TestFindExerciseByName sends the name filter and maps 404 to ErrNotFound.
func TestFindExerciseByName(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("name") != "Bench Press" {
				writeTestJSON(t, w, http.StatusNotFound, map[string]string{"error": "not found"})
				return
			}
			writeTestJSON(t, w, http.StatusOK, []models.Exercise{{ID: "bp", Name: "Bench Press"}})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	ex, err := client.FindExerciseByName(context.Background(), "Bench Press")
	if err != nil {
		t.Fatal(err)
	}
	if ex.ID != "bp" {
		t.Errorf("id = %q, want bp", ex.ID)
	}

	_, err = client.FindExerciseByName(context.Background(), "Curl")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestExerciseSessions passes the rest gap in minutes and keeps the sets of each group.
func TestExerciseSessions(t *testing.T) {
	base := time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC)
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/ex1/sessions": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("rest"); got != "7.5" {
				t.Errorf("rest=%q, want 7.5", got)
			}
			if got := r.URL.Query().Get("limit"); got != "3" {
				t.Errorf("limit=%q, want 3", got)
			}
			writeTestJSON(t, w, http.StatusOK, []map[string]any{
				{
					"summary": map[string]any{"set_count": 2},
					"sets": []models.Set{
						{ID: "s2", ExerciseID: "ex1", PerformedAt: base.Add(3 * time.Minute), Weight: 100, Reps: 5},
						{ID: "s1", ExerciseID: "ex1", PerformedAt: base, Weight: 100, Reps: 5},
					},
				},
			})
		},
	})
	defer ts.Close()

	groups, err := NewHTTPClient(ts.URL).ExerciseSessions(context.Background(), "ex1", 7*time.Minute+30*time.Second, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Sets) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if !groups[0].Start().Equal(base) {
		t.Errorf("start = %v, want %v", groups[0].Start(), base)
	}
}

// TestExerciseSessionsServerDefault leaves out rest for a zero threshold so
// the server's configured gap applies.
func TestExerciseSessionsServerDefault(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/ex1/sessions": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Has("rest") {
				t.Errorf("rest=%q sent, want it absent", r.URL.Query().Get("rest"))
			}
			writeTestJSON(t, w, http.StatusOK, []map[string]any{})
		},
	})
	defer ts.Close()

	groups, err := NewHTTPClient(ts.URL).ExerciseSessions(context.Background(), "ex1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 0 {
		t.Errorf("groups = %+v, want none", groups)
	}
}

// TestLogSetSendsBody posts the set and maps 400 to ErrInvalidSet.
func TestLogSetSendsBody(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/ex1/sets": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			var in map[string]any
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				t.Fatal(err)
			}
			if in["rpe"] == 12.0 {
				writeTestJSON(t, w, http.StatusBadRequest, map[string]string{"error": "rpe must be between 0 and 10"})
				return
			}
			if in["weight"] != 80.0 || in["reps"] != 6.0 || in["rpe"] != 8.0 {
				t.Errorf("body = %v", in)
			}
			writeTestJSON(t, w, http.StatusCreated, models.Set{ID: "new", ExerciseID: "ex1", Weight: 80, Reps: 6})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	rpe := 8.0
	set, err := client.LogSet(context.Background(), models.Set{ExerciseID: "ex1", Weight: 80, Reps: 6, RPE: &rpe})
	if err != nil {
		t.Fatal(err)
	}
	if set.ID != "new" {
		t.Errorf("id = %q, want new", set.ID)
	}

	bad := 12.0
	_, err = client.LogSet(context.Background(), models.Set{ExerciseID: "ex1", Weight: 80, Reps: 6, RPE: &bad})
	if !errors.Is(err, storage.ErrInvalidSet) {
		t.Errorf("err = %v, want ErrInvalidSet", err)
	}
}

// TestCreateExerciseConflict maps 409 to ErrDuplicateName.
func TestCreateExerciseConflict(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusConflict, map[string]string{"error": "exercise already exists"})
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).CreateExercise(context.Background(), "Squat", "")
	if !errors.Is(err, storage.ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
}

// TestServerError surfaces unexpected statuses with the response body.
func TestServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).ListExercises(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
