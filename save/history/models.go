package history

import (
	"encoding/json"
	"time"
)

// Run states.
const (
	StateRunning   = "running"
	StateCompleted = "completed"
	StateError     = "error"
)

// SavedFile is one image written during a run.
type SavedFile struct {
	Module   string    `json:"module"`
	ImageSet int       `json:"image_set"`
	Path     string    `json:"path"`
	Location string    `json:"location,omitempty"` // sink location when not a local path
	SavedAt  time.Time `json:"saved_at"`
}

// Statistics counts what happened to each save attempt.
type Statistics struct {
	ImageSets int `json:"image_sets"`
	Saved     int `json:"saved"`
	Skipped   int `json:"skipped"` // declined overwrites
	Failed    int `json:"failed"`
}

// RunHistory is the record of one pipeline run.
type RunHistory struct {
	RunID       string      `json:"run_id"`
	ConfigHash  string      `json:"config_hash"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	State       string      `json:"state"`
	Statistics  Statistics  `json:"statistics"`
	SavedFiles  []SavedFile `json:"saved_files"`
	Error       string      `json:"error,omitempty"`
}

// ActivityEntry is a single run-level event.
type ActivityEntry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"` // run_started, run_completed, run_failed
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
}

// ActivityHistory is the rolling list of activity entries.
type ActivityHistory struct {
	Entries []ActivityEntry `json:"entries"`
}

// ToJSON converts RunHistory to JSON bytes.
func (r *RunHistory) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON creates RunHistory from JSON bytes.
func (r *RunHistory) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}

// ToJSON converts ActivityHistory to JSON bytes.
func (a *ActivityHistory) ToJSON() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// FromJSON creates ActivityHistory from JSON bytes.
func (a *ActivityHistory) FromJSON(data []byte) error {
	return json.Unmarshal(data, a)
}
