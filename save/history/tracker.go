// Package history records pipeline runs as JSON files: one file per run
// plus a rolling activity log.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sv4u/saveimages/save/logging"
)

const maxActivityEntries = 1000

// Tracker manages history for pipeline runs.
type Tracker struct {
	historyPath  string
	retention    int
	activityPath string
	logger       *logging.Logger

	currentRun   *RunHistory
	currentRunMu sync.RWMutex

	activityHistory *ActivityHistory
	activityMu      sync.RWMutex
}

// NewTracker creates a tracker storing runs under historyPath. A retention
// of 0 keeps every run.
func NewTracker(historyPath string, retention int, logger *logging.Logger) (*Tracker, error) {
	if retention < 0 {
		return nil, fmt.Errorf("retention must not be negative, got %d", retention)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if err := os.MkdirAll(historyPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	t := &Tracker{
		historyPath:     historyPath,
		retention:       retention,
		activityPath:    filepath.Join(historyPath, "activity.json"),
		logger:          logger,
		activityHistory: &ActivityHistory{Entries: make([]ActivityEntry, 0)},
	}
	if err := t.loadActivityHistory(); err != nil {
		logger.Warnf("failed to load activity history: %v", err)
	}
	return t, nil
}

// StartRun starts tracking a new run and returns its id.
func (t *Tracker) StartRun(configHash string) string {
	runID := uuid.NewString()

	t.currentRunMu.Lock()
	t.currentRun = &RunHistory{
		RunID:      runID,
		ConfigHash: configHash,
		StartedAt:  time.Now(),
		State:      StateRunning,
		SavedFiles: make([]SavedFile, 0),
	}
	t.currentRunMu.Unlock()

	t.addActivity("run_started", fmt.Sprintf("Run started (run_id: %s)", runID), map[string]string{
		"run_id":      runID,
		"config_hash": configHash,
	})
	return runID
}

// RecordImageSet counts a processed image set.
func (t *Tracker) RecordImageSet() {
	t.update(func(r *RunHistory) { r.Statistics.ImageSets++ })
}

// RecordSaved records a written file.
func (t *Tracker) RecordSaved(f SavedFile) {
	if f.SavedAt.IsZero() {
		f.SavedAt = time.Now()
	}
	t.update(func(r *RunHistory) {
		r.Statistics.Saved++
		r.SavedFiles = append(r.SavedFiles, f)
	})
}

// RecordSkipped counts a save skipped because an overwrite was declined.
func (t *Tracker) RecordSkipped() {
	t.update(func(r *RunHistory) { r.Statistics.Skipped++ })
}

// RecordFailed counts a failed save.
func (t *Tracker) RecordFailed() {
	t.update(func(r *RunHistory) { r.Statistics.Failed++ })
}

func (t *Tracker) update(fn func(*RunHistory)) {
	t.currentRunMu.Lock()
	defer t.currentRunMu.Unlock()
	if t.currentRun != nil {
		fn(t.currentRun)
	}
}

// StopRun finishes the current run and writes it to disk. A non-nil runErr
// marks the run as failed.
func (t *Tracker) StopRun(runErr error) error {
	t.currentRunMu.Lock()
	defer t.currentRunMu.Unlock()

	if t.currentRun == nil {
		return nil
	}

	now := time.Now()
	run := t.currentRun
	run.CompletedAt = &now
	run.State = StateCompleted
	if runErr != nil {
		run.State = StateError
		run.Error = runErr.Error()
	}

	saveErr := t.saveRunHistory(run)
	if saveErr != nil {
		t.logger.ErrorWithOperation("history", "failed to save run history", saveErr)
	}

	activityType := "run_completed"
	if run.State == StateError {
		activityType = "run_failed"
	}
	t.addActivity(activityType, fmt.Sprintf("Run %s (run_id: %s)", run.State, run.RunID), map[string]string{
		"run_id":  run.RunID,
		"saved":   fmt.Sprint(run.Statistics.Saved),
		"skipped": fmt.Sprint(run.Statistics.Skipped),
		"failed":  fmt.Sprint(run.Statistics.Failed),
	})

	if t.retention > 0 {
		if err := t.cleanupOldRuns(); err != nil {
			t.logger.Warnf("failed to cleanup old runs: %v", err)
		}
	}

	t.currentRun = nil
	return saveErr
}

// GetCurrentRun returns a copy of the run in progress, or nil.
func (t *Tracker) GetCurrentRun() *RunHistory {
	t.currentRunMu.RLock()
	defer t.currentRunMu.RUnlock()
	if t.currentRun == nil {
		return nil
	}
	runCopy := *t.currentRun
	runCopy.SavedFiles = append([]SavedFile(nil), t.currentRun.SavedFiles...)
	return &runCopy
}

// GetRunHistory loads a specific run by ID.
func (t *Tracker) GetRunHistory(runID string) (*RunHistory, error) {
	data, err := os.ReadFile(t.runPath(runID))
	if err != nil {
		return nil, err
	}
	var run RunHistory
	if err := run.FromJSON(data); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all run IDs, newest first.
func (t *Tracker) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(t.historyPath)
	if err != nil {
		return nil, err
	}

	type runInfo struct {
		id        string
		startedAt time.Time
	}
	var runs []runInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "run_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, "run_"), ".json")
		run, err := t.GetRunHistory(id)
		if err != nil {
			continue
		}
		runs = append(runs, runInfo{id: id, startedAt: run.StartedAt})
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].startedAt.After(runs[j].startedAt)
	})
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.id
	}
	return ids, nil
}

// GetActivityHistory returns the most recent limit entries (all when
// limit <= 0).
func (t *Tracker) GetActivityHistory(limit int) *ActivityHistory {
	t.activityMu.RLock()
	defer t.activityMu.RUnlock()

	entries := t.activityHistory.Entries
	if limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}
	return &ActivityHistory{Entries: append([]ActivityEntry(nil), entries...)}
}

func (t *Tracker) addActivity(activityType, message string, details map[string]string) {
	entry := ActivityEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      activityType,
		Message:   message,
		Details:   details,
	}

	t.activityMu.Lock()
	t.activityHistory.Entries = append(t.activityHistory.Entries, entry)
	if len(t.activityHistory.Entries) > maxActivityEntries {
		t.activityHistory.Entries = t.activityHistory.Entries[len(t.activityHistory.Entries)-maxActivityEntries:]
	}
	t.activityMu.Unlock()

	if err := t.saveActivityHistory(); err != nil {
		t.logger.Warnf("failed to save activity history: %v", err)
	}
}

func (t *Tracker) runPath(runID string) string {
	return filepath.Join(t.historyPath, fmt.Sprintf("run_%s.json", runID))
}

func (t *Tracker) saveRunHistory(run *RunHistory) error {
	data, err := run.ToJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(t.runPath(run.RunID), data, 0644)
}

func (t *Tracker) loadActivityHistory() error {
	data, err := os.ReadFile(t.activityPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var history ActivityHistory
	if err := history.FromJSON(data); err != nil {
		return err
	}

	t.activityMu.Lock()
	t.activityHistory = &history
	t.activityMu.Unlock()
	return nil
}

func (t *Tracker) saveActivityHistory() error {
	t.activityMu.RLock()
	data, err := t.activityHistory.ToJSON()
	t.activityMu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(t.activityPath, data, 0644)
}

// cleanupOldRuns removes the oldest runs beyond the retention limit.
func (t *Tracker) cleanupOldRuns() error {
	runIDs, err := t.ListRuns()
	if err != nil {
		return err
	}
	if len(runIDs) <= t.retention {
		return nil
	}
	for _, id := range runIDs[t.retention:] {
		if err := os.Remove(t.runPath(id)); err != nil && !os.IsNotExist(err) {
			t.logger.Warnf("failed to remove run %s: %v", id, err)
		}
	}
	return nil
}
