// Package save drives SaveImages modules: for each image set it resolves
// an output path, prepares and encodes the pixels, and writes the result
// to a sink.
package save

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sv4u/saveimages/save/config"
	"github.com/sv4u/saveimages/save/encode"
	"github.com/sv4u/saveimages/save/history"
	"github.com/sv4u/saveimages/save/logging"
	"github.com/sv4u/saveimages/save/measurements"
	"github.com/sv4u/saveimages/save/naming"
	"github.com/sv4u/saveimages/save/sink"
)

// Options are the collaborators shared by the modules of a pipeline.
// Zero values get working defaults: the default encoders, a local sink,
// a confirmer that never overwrites, and a no-op logger.
type Options struct {
	Output    config.OutputSettings
	Encoders  *encode.Registry
	Sink      sink.Sink
	Confirmer OverwriteConfirmer
	Logger    *logging.Logger
	Tracker   *history.Tracker
	// OnResult is called by the Service after every save attempt.
	OnResult func(Result)
}

func (o *Options) setDefaults() {
	if o.Encoders == nil {
		o.Encoders = encode.Default()
	}
	if o.Sink == nil {
		o.Sink = sink.NewLocalSink()
	}
	if o.Confirmer == nil {
		o.Confirmer = NeverOverwrite
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
}

// Result describes one save attempt.
type Result struct {
	Module   string
	Path     string
	Location string
	Saved    bool
	Skipped  bool // an existing file was kept
}

type pendingSave struct {
	set      *ImageSet
	sequence int
}

// Module is one configured SaveImages module.
type Module struct {
	settings config.SaveSettings
	naming   naming.NamingConfig
	opts     Options
	exists   *existenceCache
	logger   *logging.Logger

	mu         sync.Mutex
	firstImage bool
	last       *pendingSave
}

// NewModule creates a module from validated settings.
func NewModule(settings config.SaveSettings, opts Options) (*Module, error) {
	opts.setDefaults()
	cache, err := newExistenceCache(opts.Sink, opts.Output.ExistenceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create existence cache: %w", err)
	}
	name := settings.Name
	if name == "" {
		name = "SaveImages"
	}
	return &Module{
		settings:   settings,
		naming:     settings.NamingConfig(),
		opts:       opts,
		exists:     cache,
		logger:     opts.Logger.With(name),
		firstImage: true,
	}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.settings.Name
}

// Settings returns a copy of the module settings.
func (m *Module) Settings() config.SaveSettings {
	return m.settings
}

// PrepareRun checks that the module can run at all.
func (m *Module) PrepareRun() error {
	switch m.settings.Subject {
	case config.SubjectMovie, config.SubjectFigure:
		return &SaveError{
			Module:   m.settings.Name,
			Original: fmt.Errorf("%w: %s", ErrSubjectNotSupported, m.settings.Subject),
		}
	}
	return nil
}

// PrepareGroup resets per-group state.
func (m *Module) PrepareGroup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.firstImage = true
	m.last = nil
}

// Run handles one image set according to the when-to-save setting.
// sequence is the 1-based image set counter owned by the caller.
func (m *Module) Run(ctx context.Context, set *ImageSet, sequence int) (*Result, error) {
	switch m.settings.WhenToSave {
	case config.SaveFirstCycle:
		m.mu.Lock()
		first := m.firstImage
		m.firstImage = false
		m.mu.Unlock()
		if !first {
			m.logger.DebugWithOperation("run", fmt.Sprintf("image set %d skipped: saved on the first cycle only", sequence))
			return nil, nil
		}
	case config.SaveLastCycle:
		m.mu.Lock()
		m.last = &pendingSave{set: set, sequence: sequence}
		m.mu.Unlock()
		m.logger.DebugWithOperation("run", fmt.Sprintf("image set %d deferred to the end of the group", sequence))
		return nil, nil
	}
	return m.SaveImage(ctx, set, sequence)
}

// PostGroup saves the last image set of the group when saving on the last
// cycle.
func (m *Module) PostGroup(ctx context.Context) (*Result, error) {
	if m.settings.WhenToSave != config.SaveLastCycle {
		return nil, nil
	}
	m.mu.Lock()
	last := m.last
	m.last = nil
	m.mu.Unlock()
	if last == nil {
		return nil, nil
	}
	return m.SaveImage(ctx, last.set, last.sequence)
}

// SaveImage writes the configured image of set.
func (m *Module) SaveImage(ctx context.Context, set *ImageSet, sequence int) (*Result, error) {
	number := set.Measurements.ImageSetNumber()
	fail := func(path string, err error) (*Result, error) {
		m.recordFailure()
		m.logger.ErrorFields("save_image", "failed to save image", err,
			"image_set", fmt.Sprint(number), "path", path)
		return nil, &SaveError{Module: m.settings.Name, ImageSet: number, Path: path, Original: err}
	}

	if err := m.PrepareRun(); err != nil {
		return nil, err
	}

	pixels, err := m.pixels(set)
	if err != nil {
		return fail("", err)
	}

	res, err := naming.Resolve(m.naming, m.runContext(set, sequence))
	if err != nil {
		return fail("", err)
	}
	path := res.Path()

	enc, contentType, err := m.opts.Encoders.Lookup(res.EncoderFormat)
	if err != nil {
		return fail(path, err)
	}

	if m.settings.ShouldCheckOverwrite() {
		exists, err := m.exists.exists(ctx, path)
		if err != nil {
			return fail(path, err)
		}
		if exists {
			ok, err := m.opts.Confirmer.ConfirmOverwrite(ctx, path)
			if err != nil {
				return fail(path, err)
			}
			if !ok {
				if m.opts.Tracker != nil {
					m.opts.Tracker.RecordSkipped()
				}
				m.logger.InfoFields("save_image", "kept existing file", "path", path)
				return &Result{Module: m.Name(), Path: path, Location: m.opts.Sink.Location(path), Skipped: true}, nil
			}
		}
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, pixels); err != nil {
		return fail(path, fmt.Errorf("failed to encode %s: %w", res.EncoderFormat, err))
	}
	if err := m.exists.write(ctx, path, contentType, buf.Bytes()); err != nil {
		return fail(path, err)
	}

	if m.settings.UpdateFileNames {
		measurements.RecordFile(set.Measurements, m.settings.ImageName, path)
	}

	location := m.opts.Sink.Location(path)
	if m.opts.Tracker != nil {
		m.opts.Tracker.RecordSaved(history.SavedFile{
			Module:   m.settings.Name,
			ImageSet: number,
			Path:     path,
			Location: location,
		})
	}
	m.logger.InfoFields("save_image", "saved image",
		"image_set", fmt.Sprint(number), "path", path, "format", res.EncoderFormat)
	return &Result{Module: m.Name(), Path: path, Location: location, Saved: true}, nil
}

// ResolvePath resolves the output path for set without saving anything.
func (m *Module) ResolvePath(set *ImageSet, sequence int) (*naming.Resolution, error) {
	return naming.Resolve(m.naming, m.runContext(set, sequence))
}

// CacheStats returns existence cache statistics.
func (m *Module) CacheStats() CacheStats {
	return m.exists.stats()
}

func (m *Module) recordFailure() {
	if m.opts.Tracker != nil {
		m.opts.Tracker.RecordFailed()
	}
}

// pixels returns the prepared image for the module's subject.
func (m *Module) pixels(set *ImageSet) (image.Image, error) {
	img, err := set.Get(m.settings.ImageName)
	if err != nil {
		return nil, err
	}
	if img.Pixels == nil {
		return nil, fmt.Errorf("image %q has no pixel data", m.settings.ImageName)
	}

	opts := encode.Options{
		Rescale:  m.settings.Rescale,
		BitDepth: m.settings.BitDepth,
		Colormap: m.settings.Colormap,
	}
	src := img.Pixels
	switch m.settings.Subject {
	case config.SubjectMask:
		src = img.Mask
		if src == nil {
			src = fullMask(img.Pixels)
		}
		opts = encode.Options{Binary: true}
	case config.SubjectCropping:
		src = img.CropMask
		if src == nil {
			src = fullMask(img.Pixels)
		}
		opts = encode.Options{Binary: true}
	}
	return encode.Prepare(src, opts)
}

// runContext gathers the resolver inputs for set. When subdirectories are
// created, the source directory is taken relative to the default input
// directory so the output mirrors the input tree.
func (m *Module) runContext(set *ImageSet, sequence int) naming.RunContext {
	base, dir := measurements.SourceFile(set.Measurements, m.settings.FileImageName)
	if m.naming.CreateSubdirectories && m.naming.PathMode != naming.PathWithImageDir {
		dir = relativeTo(m.opts.Output.DefaultInputDir, dir)
	}
	return naming.RunContext{
		DefaultOutputDirectory: m.opts.Output.DefaultOutputDir,
		DefaultInputDirectory:  m.opts.Output.DefaultInputDir,
		SequenceNumber:         sequence,
		Metadata:               set.Measurements.Metadata(),
		SourceFileBaseName:     base,
		SourceFilePath:         dir,
	}
}

// relativeTo returns path relative to root when path lies under root, and
// path unchanged otherwise.
func relativeTo(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	if rel == "." {
		return ""
	}
	return rel
}
