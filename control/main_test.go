package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sv4u/saveimages/save/config"
	"github.com/sv4u/saveimages/save/source"
)

// setupWorkspace writes a config and two input images and points the log
// directory at a temp dir. It returns the config path, input and output dirs.
func setupWorkspace(t *testing.T, modules string) (configPath, inputDir, outputDir string) {
	t.Helper()
	dir := t.TempDir()
	inputDir = filepath.Join(dir, "in")
	outputDir = filepath.Join(dir, "out")
	t.Setenv("SAVEIMAGES_LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("SAVEIMAGES_NO_TUI", "1")

	for _, name := range []string{"A01_s1.png", "A02_s1.png"} {
		writeTestPNG(t, filepath.Join(inputDir, name))
	}

	configPath = filepath.Join(dir, "saveimages.yaml")
	content := "version: \"1.0\"\noutput:\n  history_path: " + filepath.Join(dir, "history") + "\nmodules:\n" + modules
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, inputDir, outputDir
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 90})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

const fromImageModule = `  - image_name: DNA
    file_name_suffix: _saved
    file_format: tif
`

func TestRunCommand(t *testing.T) {
	configPath, in, out := setupWorkspace(t, fromImageModule)
	var stdout, stderr bytes.Buffer
	args := []string{"--config", configPath, "--input", in, "--output", out, "--env", filepath.Join(in, "missing.env"), "--overwrite", "never"}

	code := runCommand(args, strings.NewReader(""), &stdout, &stderr)
	if code != ExitSuccess {
		t.Fatalf("runCommand() = %d, stderr: %s", code, stderr.String())
	}
	for _, name := range []string{"A01_s1_saved.tif", "A02_s1_saved.tif"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if !strings.Contains(stdout.String(), "2 saved") {
		t.Errorf("stdout = %q", stdout.String())
	}

	// A second run keeps the existing files.
	stdout.Reset()
	code = runCommand(args, strings.NewReader(""), &stdout, &stderr)
	if code != ExitSuccess {
		t.Fatalf("second runCommand() = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "0 saved, 2 kept") {
		t.Errorf("stdout = %q", stdout.String())
	}

	var hist bytes.Buffer
	if code := historyCommand([]string{"--path", filepath.Join(filepath.Dir(configPath), "history")}, &hist, &stderr); code != ExitSuccess {
		t.Fatalf("historyCommand() = %d", code)
	}
	if lines := strings.Count(hist.String(), "\n"); lines != 2 {
		t.Errorf("history lists %d runs, want 2:\n%s", lines, hist.String())
	}
}

func TestRunCommand_MetadataNames(t *testing.T) {
	modules := `  - image_name: DNA
    file_name_method: with_metadata
    single_file_name: '\g<well>_site\g<site>'
    file_format: png
    pathname_choice: custom_with_metadata
    pathname: './\g<well>'
`
	configPath, in, out := setupWorkspace(t, modules)
	var stdout, stderr bytes.Buffer
	code := runCommand([]string{
		"--config", configPath, "--input", in, "--output", out,
		"--metadata-regex", `^(?P<well>[A-H][0-9]{2})_s(?P<site>[0-9]+)`,
		"--env", filepath.Join(in, "missing.env"),
	}, strings.NewReader(""), &stdout, &stderr)
	if code != ExitSuccess {
		t.Fatalf("runCommand() = %d, stderr: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(out, "A02", "A02_site1.png")); err != nil {
		t.Errorf("expected metadata-named output: %v", err)
	}
}

func TestRunCommand_LogLevel(t *testing.T) {
	for _, tt := range []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"info", false},
	} {
		t.Run(tt.level, func(t *testing.T) {
			configPath, in, out := setupWorkspace(t, fromImageModule)
			var stdout, stderr bytes.Buffer
			code := runCommand([]string{"--config", configPath, "--input", in, "--output", out,
				"--env", filepath.Join(in, "missing.env"), "--log-level", tt.level}, nil, &stdout, &stderr)
			if code != ExitSuccess {
				t.Fatalf("runCommand() = %d, stderr: %s", code, stderr.String())
			}
			logs, _ := filepath.Glob(filepath.Join(filepath.Dir(configPath), "logs", "run_*", "run.log"))
			if len(logs) != 1 {
				t.Fatalf("expected one run log, got %v", logs)
			}
			data, err := os.ReadFile(logs[0])
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Contains(string(data), `"level":"DEBUG"`); got != tt.wantDebug {
				t.Errorf("debug entries present = %v, want %v", got, tt.wantDebug)
			}
			if !strings.Contains(string(data), "found 2 images") {
				t.Errorf("run log missing scan entry:\n%s", data)
			}
		})
	}
}

func TestRunCommand_ConfigErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runCommand([]string{"--config", filepath.Join(t.TempDir(), "nonexistent.yaml")}, nil, &stdout, &stderr)
	if code != ExitConfigError {
		t.Errorf("missing config = %d, want %d", code, ExitConfigError)
	}

	dir := t.TempDir()
	badConfig := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badConfig, []byte("invalid: yaml: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if code := runCommand([]string{"--config", badConfig}, nil, &stdout, &stderr); code != ExitConfigError {
		t.Errorf("invalid YAML = %d, want %d", code, ExitConfigError)
	}

	if code := runCommand([]string{"--overwrite", "sometimes"}, nil, &stdout, &stderr); code != ExitConfigError {
		t.Errorf("bad overwrite policy = %d, want %d", code, ExitConfigError)
	}
	if code := runCommand([]string{"--log-level", "loud"}, nil, &stdout, &stderr); code != ExitConfigError {
		t.Errorf("bad log level = %d, want %d", code, ExitConfigError)
	}
}

func TestRunCommand_NoImages(t *testing.T) {
	configPath, _, out := setupWorkspace(t, fromImageModule)
	var stdout, stderr bytes.Buffer
	code := runCommand([]string{"--config", configPath, "--input", t.TempDir(), "--output", out, "--env", "missing.env"}, nil, &stdout, &stderr)
	if code != ExitInputError {
		t.Errorf("runCommand(empty input) = %d, want %d", code, ExitInputError)
	}
}

func TestResolveCommand(t *testing.T) {
	modules := fromImageModule + `  - name: Sequential
    image_name: DNA
    file_name_method: sequential
    single_file_name: img
    file_format: jpg
`
	configPath, in, out := setupWorkspace(t, modules)
	var stdout, stderr bytes.Buffer
	code := resolveCommand([]string{"--config", configPath, "--input", in, "--output", out, "--env", "missing.env"}, &stdout, &stderr)
	if code != ExitSuccess {
		t.Fatalf("resolveCommand() = %d, stderr: %s", code, stderr.String())
	}
	got := stdout.String()
	for _, want := range []string{
		filepath.Join(out, "A01_s1_saved.tif"),
		filepath.Join(out, "img1.jpg"),
		filepath.Join(out, "img2.jpg"),
	} {
		if !strings.Contains(got, want) {
			t.Errorf("resolve output missing %s:\n%s", want, got)
		}
	}
	if entries, _ := os.ReadDir(out); len(entries) != 0 {
		t.Error("resolve must not write files")
	}
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "legacy.yaml")
	content := `version: "1.0"
modules:
  - name: Legacy
    legacy:
      revision: 1
      values: [Image, DNA, None, From image filename, DNA, OrigBlue, Do not use, png, Default output directory, ".", "8", "Yes", Every cycle, Last cycle, "No", gray, "No", "No"]
`
	if err := os.WriteFile(legacy, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	if code := migrateCommand([]string{"--config", legacy}, &stdout, &stderr); code != ExitSuccess {
		t.Fatalf("migrateCommand() = %d, stderr: %s", code, stderr.String())
	}
	cfg, err := config.Parse(stdout.Bytes())
	if err != nil {
		t.Fatalf("migrated config does not load: %v\n%s", err, stdout.String())
	}
	if cfg.Modules[0].Name != "Legacy" || cfg.Modules[0].ImageName != "DNA" || cfg.Modules[0].FileFormat != "png" {
		t.Errorf("migrated module = %+v", cfg.Modules[0])
	}
}

func TestGroupFiles(t *testing.T) {
	files := []source.File{
		{Path: "a", Metadata: map[string]string{"plate": "P1"}},
		{Path: "b", Metadata: map[string]string{"plate": "P2"}},
		{Path: "c", Metadata: map[string]string{"plate": "P1"}},
	}
	if groups := groupFiles(files, ""); len(groups) != 1 || len(groups[0]) != 3 {
		t.Errorf("ungrouped = %v", groups)
	}
	groups := groupFiles(files, "plate")
	if len(groups) != 2 || len(groups[0]) != 2 || groups[1][0].Path != "b" {
		t.Errorf("grouped = %v", groups)
	}
}

func TestPrintUsage(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	printUsage()

	_ = w.Close()
	os.Stderr = oldStderr

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	output := buf.String()

	expected := []string{
		"saveimages",
		"USAGE",
		"COMMANDS",
		"run",
		"resolve",
		"migrate",
		"history",
		"version",
		"EXAMPLES",
	}

	for _, exp := range expected {
		if !strings.Contains(output, exp) {
			t.Errorf("printUsage() output should contain %q, got: %s", exp, output)
		}
	}
}
