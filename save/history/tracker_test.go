package history

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestTracker(t *testing.T, retention int) (*Tracker, string) {
	t.Helper()
	historyPath := filepath.Join(t.TempDir(), "history")
	tracker, err := NewTracker(historyPath, retention, nil)
	if err != nil {
		t.Fatalf("NewTracker() failed: %v", err)
	}
	return tracker, historyPath
}

func TestNewTracker(t *testing.T) {
	_, historyPath := newTestTracker(t, 10)
	if _, err := os.Stat(historyPath); os.IsNotExist(err) {
		t.Error("History directory was not created")
	}

	if _, err := NewTracker(historyPath, -1, nil); err == nil {
		t.Error("negative retention should fail")
	}
}

func TestTracker_RunLifecycle(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)

	runID := tracker.StartRun("abc123")
	if runID == "" {
		t.Fatal("StartRun() returned empty id")
	}
	current := tracker.GetCurrentRun()
	if current == nil || current.State != StateRunning || current.ConfigHash != "abc123" {
		t.Fatalf("unexpected current run: %+v", current)
	}

	tracker.RecordImageSet()
	tracker.RecordSaved(SavedFile{Module: "SaveImages_1", ImageSet: 1, Path: "/out/a.png"})
	tracker.RecordSkipped()
	tracker.RecordFailed()

	if err := tracker.StopRun(nil); err != nil {
		t.Fatalf("StopRun() failed: %v", err)
	}
	if tracker.GetCurrentRun() != nil {
		t.Error("current run should be cleared")
	}

	run, err := tracker.GetRunHistory(runID)
	if err != nil {
		t.Fatalf("GetRunHistory() failed: %v", err)
	}
	if run.State != StateCompleted {
		t.Errorf("State = %s", run.State)
	}
	want := Statistics{ImageSets: 1, Saved: 1, Skipped: 1, Failed: 1}
	if run.Statistics != want {
		t.Errorf("Statistics = %+v, want %+v", run.Statistics, want)
	}
	if len(run.SavedFiles) != 1 || run.SavedFiles[0].Path != "/out/a.png" || run.SavedFiles[0].SavedAt.IsZero() {
		t.Errorf("SavedFiles = %+v", run.SavedFiles)
	}
	if run.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
}

func TestTracker_StopRunWithError(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)
	runID := tracker.StartRun("h")
	if err := tracker.StopRun(errors.New("disk full")); err != nil {
		t.Fatal(err)
	}
	run, err := tracker.GetRunHistory(runID)
	if err != nil {
		t.Fatal(err)
	}
	if run.State != StateError || run.Error != "disk full" {
		t.Errorf("run = %+v", run)
	}

	activity := tracker.GetActivityHistory(1)
	if len(activity.Entries) != 1 || activity.Entries[0].Type != "run_failed" {
		t.Errorf("last activity = %+v", activity.Entries)
	}
}

func TestTracker_StopRunWithoutStart(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)
	if err := tracker.StopRun(nil); err != nil {
		t.Errorf("StopRun() without a run should be a no-op, got %v", err)
	}
	// Records outside a run are ignored.
	tracker.RecordSaved(SavedFile{Path: "x"})
}

func TestTracker_Retention(t *testing.T) {
	tracker, _ := newTestTracker(t, 2)

	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, tracker.StartRun("h"))
		if err := tracker.StopRun(nil); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	runs, err := tracker.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() = %v, want 2 runs", runs)
	}
	if runs[0] != ids[3] || runs[1] != ids[2] {
		t.Errorf("ListRuns() = %v, want newest first %v", runs, []string{ids[3], ids[2]})
	}
}

func TestTracker_ActivityPersists(t *testing.T) {
	tracker, historyPath := newTestTracker(t, 0)
	tracker.StartRun("h")
	if err := tracker.StopRun(nil); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewTracker(historyPath, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	entries := reopened.GetActivityHistory(0).Entries
	if len(entries) != 2 {
		t.Fatalf("expected 2 activity entries, got %d", len(entries))
	}
	if entries[0].Type != "run_started" || entries[1].Type != "run_completed" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestTracker_ConcurrentRecords(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)
	tracker.StartRun("h")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tracker.RecordSaved(SavedFile{ImageSet: i})
			_ = tracker.GetCurrentRun()
		}(i)
	}
	wg.Wait()

	if got := tracker.GetCurrentRun().Statistics.Saved; got != 50 {
		t.Errorf("Saved = %d, want 50", got)
	}
}
