package ingest

// Result holds the outcome of an import.
type Result struct {
	SessionsParsed   int `json:"sessions_parsed"`
	ExercisesCreated int `json:"exercises_created"`
	SetsReceived     int `json:"sets_received"`
	SetsInserted     int `json:"sets_inserted"`
	SetsSkipped      int `json:"sets_skipped"`
	WarmupsSkipped   int `json:"warmups_skipped"`

	Message string `json:"message,omitempty"`
}

// Add accumulates another result into r.
func (r *Result) Add(o *Result) {
	if o == nil {
		return
	}
	r.SessionsParsed += o.SessionsParsed
	r.ExercisesCreated += o.ExercisesCreated
	r.SetsReceived += o.SetsReceived
	r.SetsInserted += o.SetsInserted
	r.SetsSkipped += o.SetsSkipped
	r.WarmupsSkipped += o.WarmupsSkipped
}
