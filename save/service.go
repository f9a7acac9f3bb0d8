package save

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sv4u/saveimages/save/config"
)

// ServiceState represents the state of the pipeline service.
type ServiceState string

const (
	ServiceStateIdle    ServiceState = "idle"
	ServiceStateRunning ServiceState = "running"
	ServiceStateError   ServiceState = "error"
)

// Summary totals the results of a run.
type Summary struct {
	RunID     string
	ImageSets int
	Results   []Result
}

// Saved returns the number of files written.
func (s *Summary) Saved() int {
	n := 0
	for _, r := range s.Results {
		if r.Saved {
			n++
		}
	}
	return n
}

// Skipped returns the number of existing files that were kept.
func (s *Summary) Skipped() int {
	n := 0
	for _, r := range s.Results {
		if r.Skipped {
			n++
		}
	}
	return n
}

// Service runs every SaveImages module of a pipeline over groups of image
// sets. It owns the image set sequence counter.
type Service struct {
	config  *config.PipelineConfig
	opts    Options
	modules []*Module

	mu           sync.RWMutex
	state        ServiceState
	sequence     int
	runID        string
	errorMessage string
	summary      *Summary
	startedAt    *time.Time
	completedAt  *time.Time
}

// NewService creates a service for a validated pipeline configuration.
func NewService(cfg *config.PipelineConfig, opts Options) (*Service, error) {
	opts.Output = cfg.Output
	opts.setDefaults()

	modules := make([]*Module, 0, len(cfg.Modules))
	for _, settings := range cfg.Modules {
		m, err := NewModule(settings, opts)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return &Service{
		config:  cfg,
		opts:    opts,
		modules: modules,
		state:   ServiceStateIdle,
	}, nil
}

// Modules returns the configured modules in pipeline order.
func (s *Service) Modules() []*Module {
	return s.modules
}

// Run processes groups of image sets in order and records the run in
// history. It stops at the first save error.
func (s *Service) Run(ctx context.Context, configHash string, groups [][]*ImageSet) (*Summary, error) {
	if err := s.Start(configHash); err != nil {
		return nil, err
	}
	var runErr error
	for _, group := range groups {
		if runErr = s.runGroup(ctx, group); runErr != nil {
			break
		}
	}
	return s.Finish(runErr), runErr
}

func (s *Service) runGroup(ctx context.Context, group []*ImageSet) error {
	s.StartGroup()
	for _, set := range group {
		if err := s.ProcessImageSet(ctx, set); err != nil {
			return err
		}
	}
	return s.EndGroup(ctx)
}

// Start begins a run: every module is checked and a history record is
// opened.
func (s *Service) Start(configHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == ServiceStateRunning {
		return fmt.Errorf("service is already running")
	}
	for _, m := range s.modules {
		if err := m.PrepareRun(); err != nil {
			s.state = ServiceStateError
			s.errorMessage = err.Error()
			return err
		}
	}

	now := time.Now()
	s.state = ServiceStateRunning
	s.sequence = 0
	s.errorMessage = ""
	s.startedAt = &now
	s.completedAt = nil
	s.runID = ""
	if s.opts.Tracker != nil {
		s.runID = s.opts.Tracker.StartRun(configHash)
	}
	s.summary = &Summary{RunID: s.runID}
	s.opts.Logger.InfoFields("run", "run started",
		"run_id", s.runID, "config_hash", configHash, "modules", fmt.Sprint(len(s.modules)))
	return nil
}

// StartGroup resets the per-group state of every module.
func (s *Service) StartGroup() {
	s.mu.RLock()
	next := s.sequence + 1
	s.mu.RUnlock()
	s.opts.Logger.Debugf("group started at image set %d", next)
	for _, m := range s.modules {
		m.PrepareGroup()
	}
}

// ProcessImageSet assigns the next sequence number to set and runs every
// module on it.
func (s *Service) ProcessImageSet(ctx context.Context, set *ImageSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sequence, err := s.nextSequence()
	if err != nil {
		return err
	}
	if s.opts.Tracker != nil {
		s.opts.Tracker.RecordImageSet()
	}
	for _, m := range s.modules {
		res, err := m.Run(ctx, set, sequence)
		if err != nil {
			return err
		}
		s.addResult(res)
	}
	return nil
}

// EndGroup runs the end-of-group saves.
func (s *Service) EndGroup(ctx context.Context) error {
	for _, m := range s.modules {
		res, err := m.PostGroup(ctx)
		if err != nil {
			return err
		}
		s.addResult(res)
	}
	return nil
}

func (s *Service) nextSequence() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != ServiceStateRunning {
		return 0, fmt.Errorf("service is not running (current state: %s)", s.state)
	}
	s.sequence++
	s.summary.ImageSets++
	return s.sequence, nil
}

func (s *Service) addResult(res *Result) {
	if res == nil {
		return
	}
	s.mu.Lock()
	if s.summary != nil {
		s.summary.Results = append(s.summary.Results, *res)
	}
	s.mu.Unlock()
	if s.opts.OnResult != nil {
		s.opts.OnResult(*res)
	}
}

// Finish closes the run, records it in history and returns its summary.
// A non-nil runErr marks the run as failed.
func (s *Service) Finish(runErr error) *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.completedAt = &now
	s.state = ServiceStateIdle
	if runErr != nil {
		s.state = ServiceStateError
		s.errorMessage = runErr.Error()
	}
	if s.opts.Tracker != nil {
		if err := s.opts.Tracker.StopRun(runErr); err != nil {
			s.opts.Logger.ErrorWithOperation("run", "failed to record run history", err)
		}
	}
	if runErr != nil {
		s.opts.Logger.ErrorWithOperation("run", "run failed", runErr)
	} else {
		s.opts.Logger.InfoFields("run", "run completed", "run_id", s.runID)
	}

	summary := s.summary
	if summary == nil {
		summary = &Summary{RunID: s.runID}
	}
	s.summary = nil
	return summary
}

// RunID returns the history id of the current or last run.
func (s *Service) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// GetStatus returns the current service status.
func (s *Service) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := map[string]interface{}{
		"state":      s.state,
		"image_sets": s.sequence,
	}
	if s.runID != "" {
		status["run_id"] = s.runID
	}
	if s.errorMessage != "" {
		status["error"] = s.errorMessage
	}
	if s.startedAt != nil {
		status["started_at"] = s.startedAt.Unix()
	}
	if s.completedAt != nil {
		status["completed_at"] = s.completedAt.Unix()
	}
	return status
}
