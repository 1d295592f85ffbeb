package models

import "time"

// Entity names carried by a Change.
const (
	EntityExercise = "exercise"
	EntitySet      = "set"
)

// Operations carried by a Change.
const (
	OpCreated   = "created"
	OpUpdated   = "updated"
	OpDeleted   = "deleted"
	OpReordered = "reordered"
)

// Change describes a committed write, delivered to live subscribers.
// ID is empty for collection-wide changes such as a reorder.
type Change struct {
	Entity     string    `json:"entity"`
	Op         string    `json:"op"`
	ID         string    `json:"id,omitempty"`
	ExerciseID string    `json:"exercise_id,omitempty"`
	At         time.Time `json:"at"`
}
