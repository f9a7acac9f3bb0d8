package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"syscall"

	"github.com/sv4u/saveimages/save"
	"github.com/sv4u/saveimages/save/config"
	"github.com/sv4u/saveimages/save/history"
	"github.com/sv4u/saveimages/save/logging"
	"github.com/sv4u/saveimages/save/preferences"
	"github.com/sv4u/saveimages/save/sink"
	"github.com/sv4u/saveimages/save/source"
)

// Exit codes shared by all commands.
const (
	ExitSuccess     = 0
	ExitConfigError = 1
	ExitInputError  = 2
	ExitSaveError   = 3
	ExitInterrupted = 4
)

// pipelineFlags are the flags shared by run and resolve.
type pipelineFlags struct {
	configPath    string
	envFile       string
	inputDir      string
	outputDir     string
	metadataRegex string
	groupBy       string
	recursive     bool
}

func (p *pipelineFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&p.configPath, "config", defaultConfigPath, "Path to configuration file")
	fs.StringVar(&p.envFile, "env", defaultEnvFile, "Path to .env file with default directories")
	fs.StringVar(&p.inputDir, "input", "", "Input image directory (default: default input directory)")
	fs.StringVar(&p.outputDir, "output", "", "Default output directory")
	fs.StringVar(&p.metadataRegex, "metadata-regex", "", "Regular expression whose named groups become image metadata")
	fs.StringVar(&p.groupBy, "group-by", "", "Metadata tag that splits image sets into groups")
	fs.BoolVar(&p.recursive, "recursive", false, "Scan input subdirectories")
}

// pipeline is a loaded configuration with its input files.
type pipeline struct {
	config *config.PipelineConfig
	hash   string
	groups [][]source.File
}

// files returns the number of input files.
func (p *pipeline) files() int {
	n := 0
	for _, g := range p.groups {
		n += len(g)
	}
	return n
}

// loadPipeline loads the configuration, applies preferences and flag
// overrides, and scans the input directory.
func loadPipeline(p *pipelineFlags, stderr io.Writer) (*pipeline, int) {
	cfg, err := config.LoadConfig(p.configPath)
	if err != nil {
		var cerr *config.ConfigError
		if errors.As(err, &cerr) {
			fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		}
		return nil, ExitConfigError
	}
	hash, err := config.Hash(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error computing config hash: %v\n", err)
		return nil, ExitConfigError
	}

	prefs, err := preferences.Load(p.envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading preferences: %v\n", err)
		return nil, ExitConfigError
	}
	if p.outputDir != "" {
		cfg.Output.DefaultOutputDir = p.outputDir
	}
	if p.inputDir != "" {
		cfg.Output.DefaultInputDir = p.inputDir
	}
	if err := prefs.Apply(cfg); err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return nil, ExitConfigError
	}
	if cfg.Output.DefaultInputDir == "" {
		fmt.Fprintf(stderr, "No input directory: pass --input or set %s\n", preferences.EnvDefaultInputDir)
		return nil, ExitInputError
	}

	var pattern *regexp.Regexp
	if p.metadataRegex != "" {
		if pattern, err = source.CompilePattern(p.metadataRegex); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return nil, ExitInputError
		}
	}
	files, err := source.Scan(cfg.Output.DefaultInputDir, source.Options{Recursive: p.recursive, Pattern: pattern})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, ExitInputError
	}
	if len(files) == 0 {
		fmt.Fprintf(stderr, "No images found in %s\n", cfg.Output.DefaultInputDir)
		return nil, ExitInputError
	}

	return &pipeline{config: cfg, hash: hash, groups: groupFiles(files, p.groupBy)}, ExitSuccess
}

// groupFiles splits files into groups by the value of tag, in order of
// first appearance. An empty tag yields a single group.
func groupFiles(files []source.File, tag string) [][]source.File {
	if tag == "" {
		return [][]source.File{files}
	}
	index := make(map[string]int)
	var groups [][]source.File
	for _, f := range files {
		key := f.Metadata[tag]
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], f)
	}
	return groups
}

// imageNames returns every image name the modules read, sorted.
func imageNames(cfg *config.PipelineConfig) []string {
	seen := make(map[string]bool)
	for _, m := range cfg.Modules {
		for _, name := range []string{m.ImageName, m.FileImageName} {
			if name != "" {
				seen[name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// imageSet builds the image set for file. Every image name the modules use
// refers to the same file. Pixels are decoded only when decode is set.
func imageSet(f source.File, number int, names []string, decode bool) (*save.ImageSet, error) {
	store := f.Measurements(number, names...)
	set := save.NewImageSet(store)
	if !decode {
		return set, nil
	}
	pixels, err := source.Decode(f.Path)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		set.Add(name, &save.Image{Pixels: pixels})
	}
	return set, nil
}

func openLogger(cfg *config.PipelineConfig, command, level string) (*logging.Logger, string, error) {
	minLevel, err := logging.ParseLevel(level)
	if err != nil {
		return nil, "", err
	}
	logPath := cfg.Output.LogPath
	if logPath == "" {
		_, runLog, err := CreateRunDir(command)
		if err != nil {
			return nil, "", err
		}
		logPath = runLog
	}
	logger, err := logging.NewLogger(logPath, "saveimages")
	if err != nil {
		return nil, "", err
	}
	logger.SetLevel(minLevel)
	return logger, logPath, nil
}

// runCommand runs the run subcommand and returns the exit code.
func runCommand(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var pf pipelineFlags
	pf.register(fs)
	overwrite := fs.String("overwrite", "ask", "What to do with existing files when overwrite checks are on: ask, always, never")
	logLevel := fs.String("log-level", "info", "Minimum log level: debug, info, warn, error")
	noTUI := fs.Bool("no-tui", false, "Print a plain summary instead of the progress view")
	if err := fs.Parse(args); err != nil {
		return ExitConfigError
	}

	confirmer, err := save.ParseOverwritePolicy(*overwrite, stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitConfigError
	}
	if _, err := logging.ParseLevel(*logLevel); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitConfigError
	}
	p, code := loadPipeline(&pf, stderr)
	if code != ExitSuccess {
		return code
	}
	cfg := p.config

	logger, logPath, err := openLogger(cfg, "run", *logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating log file: %v\n", err)
		return ExitSaveError
	}
	defer logger.Close()
	logger.Infof("found %d images in %s", p.files(), cfg.Output.DefaultInputDir)

	tracker, err := history.NewTracker(cfg.Output.HistoryPath, cfg.Output.HistoryRetention, logger.With("history"))
	if err != nil {
		fmt.Fprintf(stderr, "Error opening history: %v\n", err)
		return ExitSaveError
	}
	out, err := sink.New(cfg.Output)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating output sink: %v\n", err)
		return ExitConfigError
	}

	useTUI := WantTUI(*noTUI)
	opts := save.Options{
		Sink:      out,
		Confirmer: confirmer,
		Logger:    logger,
		Tracker:   tracker,
	}
	var progressCh chan runMsg
	if useTUI {
		progressCh = make(chan runMsg, 64)
		if *overwrite == "ask" {
			opts.Confirmer = tuiConfirmer{ch: progressCh}
		}
		opts.OnResult = func(r save.Result) {
			progressCh <- runMsg{Result: &r}
		}
	}

	svc, err := save.NewService(cfg, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitConfigError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := svc.Start(p.hash); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitConfigError
	}

	var (
		summary *save.Summary
		runErr  error
	)
	names := imageNames(cfg)
	if useTUI {
		logger.InfoWithOperation("run", "progress view enabled")
		go func() {
			err := processGroups(ctx, svc, p, names)
			progressCh <- runMsg{Summary: svc.Finish(err), Err: err}
			close(progressCh)
		}()
		summary, runErr = RunProgressTUI(logPath, p.files(), progressCh, cancel)
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.WarnWithOperation("run", runErr.Error())
		}
	} else {
		runErr = processGroups(ctx, svc, p, names)
		summary = svc.Finish(runErr)
	}

	fmt.Fprintf(stdout, "Run %s: %d image sets, %d saved, %d kept\n",
		summary.RunID, summary.ImageSets, summary.Saved(), summary.Skipped())
	logger.InfoWithOperation("run", fmt.Sprintf("%d saved, %d kept", summary.Saved(), summary.Skipped()))
	switch {
	case runErr == nil:
		return ExitSuccess
	case errors.Is(runErr, context.Canceled):
		fmt.Fprintln(stderr, "Interrupted")
		return ExitInterrupted
	default:
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return ExitSaveError
	}
}

func processGroups(ctx context.Context, svc *save.Service, p *pipeline, names []string) error {
	number := 0
	for _, group := range p.groups {
		svc.StartGroup()
		for _, f := range group {
			number++
			set, err := imageSet(f, number, names, true)
			if err != nil {
				return err
			}
			if err := svc.ProcessImageSet(ctx, set); err != nil {
				return err
			}
		}
		if err := svc.EndGroup(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resolveCommand prints the output path each module would write for each
// input file.
func resolveCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var pf pipelineFlags
	pf.register(fs)
	if err := fs.Parse(args); err != nil {
		return ExitConfigError
	}

	p, code := loadPipeline(&pf, stderr)
	if code != ExitSuccess {
		return code
	}
	svc, err := save.NewService(p.config, save.Options{})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitConfigError
	}

	names := imageNames(p.config)
	failed := false
	number := 0
	for _, group := range p.groups {
		for _, f := range group {
			number++
			set, err := imageSet(f, number, names, false)
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return ExitInputError
			}
			for _, m := range svc.Modules() {
				res, err := m.ResolvePath(set, number)
				if err != nil {
					failed = true
					fmt.Fprintf(stdout, "%s\t%s\terror: %v\n", m.Name(), filepath.Base(f.Path), err)
					continue
				}
				fmt.Fprintf(stdout, "%s\t%s\t%s\n", m.Name(), filepath.Base(f.Path), res.Path())
			}
		}
	}
	if failed {
		return ExitSaveError
	}
	return ExitSuccess
}

// migrateCommand loads a configuration, migrating legacy modules, and
// writes it back in current form.
func migrateCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	outPath := fs.String("out", "", "Write the migrated configuration here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return ExitConfigError
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return ExitConfigError
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitConfigError
	}
	if *outPath == "" {
		stdout.Write(data)
		return ExitSuccess
	}
	if err := os.WriteFile(*outPath, data, 0644); err != nil {
		fmt.Fprintf(stderr, "Error writing %s: %v\n", *outPath, err)
		return ExitSaveError
	}
	return ExitSuccess
}

// historyCommand lists recorded runs, newest first.
func historyCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var pf pipelineFlags
	fs.StringVar(&pf.configPath, "config", defaultConfigPath, "Path to configuration file")
	fs.StringVar(&pf.envFile, "env", defaultEnvFile, "Path to .env file with default directories")
	historyPath := fs.String("path", "", "History directory (default: from configuration)")
	limit := fs.Int("limit", 10, "Number of runs to show (0 for all)")
	if err := fs.Parse(args); err != nil {
		return ExitConfigError
	}

	path := *historyPath
	if path == "" {
		cfg, err := config.LoadConfig(pf.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Configuration error: %v\n", err)
			return ExitConfigError
		}
		prefs, err := preferences.Load(pf.envFile)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading preferences: %v\n", err)
			return ExitConfigError
		}
		if err := prefs.Apply(cfg); err != nil {
			fmt.Fprintf(stderr, "Configuration error: %v\n", err)
			return ExitConfigError
		}
		path = cfg.Output.HistoryPath
	}

	tracker, err := history.NewTracker(path, 0, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening history: %v\n", err)
		return ExitInputError
	}
	ids, err := tracker.ListRuns()
	if err != nil {
		fmt.Fprintf(stderr, "Error listing runs: %v\n", err)
		return ExitInputError
	}
	if *limit > 0 && len(ids) > *limit {
		ids = ids[:*limit]
	}
	for _, id := range ids {
		run, err := tracker.GetRunHistory(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\tsaved=%d kept=%d failed=%d\n",
			run.RunID, run.StartedAt.Format("2006-01-02 15:04:05"), run.State,
			run.Statistics.Saved, run.Statistics.Skipped, run.Statistics.Failed)
	}
	return ExitSuccess
}
