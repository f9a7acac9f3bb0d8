// Package preferences supplies the process-wide defaults the pipeline
// passes explicitly into every resolution: default input and output
// directories, and object store credentials.
package preferences

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sv4u/saveimages/save/config"
)

// Environment variables read by Load.
const (
	EnvDefaultOutputDir = "SAVEIMAGES_DEFAULT_OUTPUT_DIR"
	EnvDefaultInputDir  = "SAVEIMAGES_DEFAULT_INPUT_DIR"
	EnvLogPath          = "SAVEIMAGES_LOG_PATH"
	EnvHistoryPath      = "SAVEIMAGES_HISTORY_PATH"
	EnvS3Endpoint       = "SAVEIMAGES_S3_ENDPOINT"
	EnvS3Bucket         = "SAVEIMAGES_S3_BUCKET"
	EnvS3Region         = "SAVEIMAGES_S3_REGION"
	EnvS3AccessKey      = "SAVEIMAGES_S3_ACCESS_KEY"
	EnvS3SecretKey      = "SAVEIMAGES_S3_SECRET_KEY"
	EnvS3UseSSL         = "SAVEIMAGES_S3_USE_SSL"
)

// Preferences are the defaults that apply when a pipeline file leaves a
// value empty.
type Preferences struct {
	DefaultOutputDir string
	DefaultInputDir  string
	LogPath          string
	HistoryPath      string
	ObjectStore      config.ObjectStoreSettings
}

// Load reads .env files (missing files are ignored) and then the process
// environment. Variables already set in the environment win over .env.
func Load(envFiles ...string) (*Preferences, error) {
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds preferences from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Preferences, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	p := &Preferences{
		DefaultOutputDir: get(EnvDefaultOutputDir),
		DefaultInputDir:  get(EnvDefaultInputDir),
		LogPath:          get(EnvLogPath),
		HistoryPath:      get(EnvHistoryPath),
		ObjectStore: config.ObjectStoreSettings{
			Endpoint:  get(EnvS3Endpoint),
			Bucket:    get(EnvS3Bucket),
			Region:    get(EnvS3Region),
			AccessKey: get(EnvS3AccessKey),
			SecretKey: get(EnvS3SecretKey),
		},
	}
	if raw := get(EnvS3UseSSL); raw != "" {
		useSSL, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvS3UseSSL, err)
		}
		p.ObjectStore.UseSSL = useSSL
	}

	if p.DefaultOutputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		p.DefaultOutputDir = wd
	}
	return p, nil
}

// Apply fills empty output settings in cfg from p. Relative directories
// are made absolute.
func (p *Preferences) Apply(cfg *config.PipelineConfig) error {
	out := &cfg.Output
	if out.DefaultOutputDir == "" {
		out.DefaultOutputDir = p.DefaultOutputDir
	}
	if out.DefaultInputDir == "" {
		out.DefaultInputDir = p.DefaultInputDir
	}
	if out.LogPath == "" {
		out.LogPath = p.LogPath
	}
	if out.HistoryPath == "" {
		out.HistoryPath = p.HistoryPath
	}
	if out.HistoryPath == "" {
		out.HistoryPath = filepath.Join(out.DefaultOutputDir, ".saveimages", "history")
	}
	if !out.ObjectStore.Enabled() && p.ObjectStore.Enabled() {
		out.ObjectStore = p.ObjectStore
		out.SetDefaults()
	}

	for _, dir := range []*string{&out.DefaultOutputDir, &out.DefaultInputDir} {
		if *dir == "" || filepath.IsAbs(*dir) {
			continue
		}
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", *dir, err)
		}
		*dir = abs
	}
	return out.Validate()
}
