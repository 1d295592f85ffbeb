package models

import "time"

// MaxRPE is the top of the effort rating scale.
const MaxRPE = 10.0

// Set is one recorded performance of an exercise.
type Set struct {
	ID          string    `json:"id"`
	ExerciseID  string    `json:"exercise_id"`
	PerformedAt time.Time `json:"performed_at"`
	Weight      float64   `json:"weight"`
	Reps        int       `json:"reps"`
	RPE         *float64  `json:"rpe,omitempty"`
}

// Volume returns weight × reps.
func (s Set) Volume() float64 {
	return s.Weight * float64(s.Reps)
}
