package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sv4u/saveimages/save/migrate"
)

// LegacySettings is a positional settings list saved by an older release.
type LegacySettings struct {
	Revision   int      `yaml:"revision"`
	FromMatlab bool     `yaml:"from_matlab"`
	Values     []string `yaml:"values"`
}

// moduleEntry is one element of the modules list: either inline settings
// or a legacy positional list.
type moduleEntry struct {
	SaveSettings `yaml:",inline"`
	Legacy       *LegacySettings `yaml:"legacy"`
}

type fileConfig struct {
	Version string         `yaml:"version"`
	Output  OutputSettings `yaml:"output"`
	Modules []moduleEntry  `yaml:"modules"`
}

// LoadConfig loads and validates configuration from a YAML file.
func LoadConfig(path string) (*PipelineConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Configuration file not found: %s", path),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Error reading configuration file: %v", err),
		}
	}
	return Parse(data)
}

// Parse parses and validates configuration bytes.
func Parse(data []byte) (*PipelineConfig, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Error parsing YAML file: %v", err),
		}
	}

	// YAML reads an unquoted 1.0 as a float
	version := fmt.Sprintf("%v", raw["version"])
	if version == "1" {
		version = CurrentVersion
	}
	if version != CurrentVersion {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Invalid version: %v. Expected %s", raw["version"], CurrentVersion),
		}
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Invalid configuration: %v", err),
		}
	}

	cfg := &PipelineConfig{
		Version: CurrentVersion,
		Output:  file.Output,
		Modules: make([]SaveSettings, 0, len(file.Modules)),
	}
	for i, entry := range file.Modules {
		settings, err := entry.settings()
		if err != nil {
			return nil, &ConfigError{
				Message: fmt.Sprintf("error converting modules[%d]: %v", i, err),
			}
		}
		cfg.Modules = append(cfg.Modules, settings)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (e moduleEntry) settings() (SaveSettings, error) {
	if e.Legacy == nil {
		return e.SaveSettings, nil
	}
	settings, err := FromLegacy(e.Legacy.Values, migrate.Version{
		Revision:   e.Legacy.Revision,
		FromMatlab: e.Legacy.FromMatlab,
	})
	if err != nil {
		return SaveSettings{}, err
	}
	settings.Name = e.Name
	return settings, nil
}

// Marshal renders cfg as YAML with every module in inline form.
func Marshal(cfg *PipelineConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}
