package preferences

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sv4u/saveimages/save/config"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup(t *testing.T) {
	p, err := FromLookup(lookupFrom(map[string]string{
		EnvDefaultOutputDir: " /data/out ",
		EnvDefaultInputDir:  "/data/in",
		EnvS3Endpoint:       "minio:9000",
		EnvS3Bucket:         "images",
		EnvS3AccessKey:      "key",
		EnvS3SecretKey:      "secret",
		EnvS3UseSSL:         "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/data/out", p.DefaultOutputDir)
	assert.Equal(t, "/data/in", p.DefaultInputDir)
	assert.True(t, p.ObjectStore.Enabled())
	assert.True(t, p.ObjectStore.UseSSL)
}

func TestFromLookup_DefaultsToWorkingDirectory(t *testing.T) {
	p, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, p.DefaultOutputDir)
}

func TestFromLookup_InvalidSSL(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{EnvS3UseSSL: "maybe"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvS3UseSSL)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(EnvDefaultInputDir+"=/from/dotenv\n"), 0644))
	t.Setenv(EnvDefaultOutputDir, "/from/env")
	// godotenv.Load never overrides variables that are already set.
	t.Setenv(EnvDefaultInputDir, "")
	require.NoError(t, os.Unsetenv(EnvDefaultInputDir))

	p, err := Load(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "/from/env", p.DefaultOutputDir)
	assert.Equal(t, "/from/dotenv", p.DefaultInputDir)
}

func TestApply(t *testing.T) {
	p := &Preferences{DefaultOutputDir: "/prefs/out", DefaultInputDir: "rel/in"}
	cfg := &config.PipelineConfig{Output: config.OutputSettings{HistoryPath: "/h"}}

	require.NoError(t, p.Apply(cfg))
	assert.Equal(t, "/prefs/out", cfg.Output.DefaultOutputDir)
	assert.True(t, filepath.IsAbs(cfg.Output.DefaultInputDir))
	assert.Equal(t, "/h", cfg.Output.HistoryPath)

	cfg = &config.PipelineConfig{Output: config.OutputSettings{DefaultOutputDir: "/cfg/out"}}
	require.NoError(t, p.Apply(cfg))
	assert.Equal(t, "/cfg/out", cfg.Output.DefaultOutputDir)
	assert.Equal(t, filepath.Join("/cfg/out", ".saveimages", "history"), cfg.Output.HistoryPath)
}

func TestApply_ObjectStoreFromPreferences(t *testing.T) {
	p := &Preferences{
		DefaultOutputDir: "/out",
		ObjectStore:      config.ObjectStoreSettings{Endpoint: "minio:9000", Bucket: "b", AccessKey: "k", SecretKey: "s"},
	}
	cfg := &config.PipelineConfig{}
	require.NoError(t, p.Apply(cfg))
	assert.Equal(t, "b", cfg.Output.ObjectStore.Bucket)
	assert.Equal(t, "us-east-1", cfg.Output.ObjectStore.Region)

	p.ObjectStore.SecretKey = ""
	cfg = &config.PipelineConfig{}
	assert.Error(t, p.Apply(cfg))
}
