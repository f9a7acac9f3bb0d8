package config

import (
	"fmt"
	"strings"

	"github.com/sv4u/saveimages/save/naming"
)

// CurrentVersion is the only pipeline file version LoadConfig accepts.
const CurrentVersion = "1.0"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Subject is what a SaveImages module writes out.
type Subject string

const (
	SubjectImage    Subject = "image"
	SubjectMask     Subject = "mask"
	SubjectCropping Subject = "cropping"
	SubjectMovie    Subject = "movie"
	SubjectFigure   Subject = "figure"
)

// WhenToSave selects the cycle on which an image is written.
type WhenToSave string

const (
	SaveEveryCycle WhenToSave = "every_cycle"
	SaveFirstCycle WhenToSave = "first_cycle"
	SaveLastCycle  WhenToSave = "last_cycle"
)

// ColormapGray leaves grayscale output gray.
const ColormapGray = "gray"

var (
	validSubjects    = []Subject{SubjectImage, SubjectMask, SubjectCropping, SubjectMovie, SubjectFigure}
	validWhenToSave  = []WhenToSave{SaveEveryCycle, SaveFirstCycle, SaveLastCycle}
	validMovieSaving = []string{string(SaveLastCycle), "1", "2", "3", "4", "5", "10", "20"}
	validBitDepths   = []string{"8", "12", "16"}
	validColormaps   = []string{
		ColormapGray, "autumn", "bone", "cool", "copper", "flag", "hot", "hsv",
		"jet", "pink", "prism", "spring", "summer", "winter",
	}
)

// SaveSettings holds the settings of one SaveImages module.
type SaveSettings struct {
	Name string `yaml:"name"`

	Subject    Subject `yaml:"save"`
	ImageName  string  `yaml:"image_name"`
	FigureName string  `yaml:"figure_name"`

	// File naming
	FileNameMethod naming.Method `yaml:"file_name_method"`
	FileImageName  string        `yaml:"file_image_name"` // image whose file name is the prefix
	SingleFileName string        `yaml:"single_file_name"`
	FileNameSuffix string        `yaml:"file_name_suffix"`
	FileFormat     string        `yaml:"file_format"`

	// Location
	PathnameChoice       naming.PathMode `yaml:"pathname_choice"`
	MoviePathnameChoice  naming.PathMode `yaml:"movie_pathname_choice"`
	Pathname             string          `yaml:"pathname"`
	CreateSubdirectories bool            `yaml:"create_subdirectories"`

	// Pixel handling
	BitDepth string `yaml:"bit_depth"`
	Rescale  bool   `yaml:"rescale"`
	Colormap string `yaml:"colormap"`

	// Behaviour
	OverwriteCheck  *bool      `yaml:"overwrite_check"` // nil = true
	WhenToSave      WhenToSave `yaml:"when_to_save"`
	WhenToSaveMovie string     `yaml:"when_to_save_movie"`
	UpdateFileNames bool       `yaml:"update_file_names"`
}

// SetDefaults sets default values for SaveSettings.
func (s *SaveSettings) SetDefaults() {
	if s.Subject == "" {
		s.Subject = SubjectImage
	}
	if s.FileNameMethod == "" {
		s.FileNameMethod = naming.MethodFromImage
	}
	if s.FileImageName == "" && s.FileNameMethod == naming.MethodFromImage {
		s.FileImageName = s.ImageName
	}
	if s.SingleFileName == "" {
		s.SingleFileName = "OrigBlue"
	}
	if s.FileNameSuffix == "" {
		s.FileNameSuffix = naming.DoNotUse
	}
	if s.FileFormat == "" {
		s.FileFormat = naming.FormatBMP
	}
	if s.PathnameChoice == "" {
		s.PathnameChoice = naming.PathDefaultOutputDir
	}
	if s.MoviePathnameChoice == "" {
		s.MoviePathnameChoice = naming.PathDefaultOutputDir
	}
	if s.Pathname == "" {
		s.Pathname = "."
	}
	if s.BitDepth == "" {
		s.BitDepth = "8"
	}
	if s.Colormap == "" {
		s.Colormap = ColormapGray
	}
	if s.OverwriteCheck == nil {
		check := true
		s.OverwriteCheck = &check
	}
	if s.WhenToSave == "" {
		s.WhenToSave = SaveEveryCycle
	}
	if s.WhenToSaveMovie == "" {
		s.WhenToSaveMovie = string(SaveLastCycle)
	}
}

// Validate validates SaveSettings. SetDefaults must run first.
func (s *SaveSettings) Validate() error {
	s.ImageName = strings.TrimSpace(s.ImageName)
	if s.ImageName == "" && s.Subject != SubjectFigure {
		return s.errorf("image_name is required")
	}
	if s.Subject == SubjectFigure && strings.TrimSpace(s.FigureName) == "" {
		return s.errorf("figure_name is required when saving a figure")
	}
	if !contains(validSubjects, s.Subject) {
		return s.errorf("Invalid save: %s. Must be one of: image, mask, cropping, movie, figure", s.Subject)
	}
	if !s.FileNameMethod.Valid() {
		return s.errorf("Invalid file_name_method: %s. Must be one of: from_image, sequential, single_name, with_metadata", s.FileNameMethod)
	}
	if s.FileNameMethod == naming.MethodFromImage && strings.TrimSpace(s.FileImageName) == "" {
		return s.errorf("file_image_name is required when file names come from an image")
	}
	if !naming.KnownFormat(s.FileFormat) {
		return s.errorf("Invalid file_format: %s. Must be one of: %s", s.FileFormat, strings.Join(naming.Formats, ", "))
	}
	if !s.PathnameChoice.Valid() {
		return s.errorf("Invalid pathname_choice: %s", s.PathnameChoice)
	}
	if s.MoviePathnameChoice != naming.PathDefaultOutputDir && s.MoviePathnameChoice != naming.PathCustom {
		return s.errorf("Invalid movie_pathname_choice: %s. Must be one of: default_output, custom", s.MoviePathnameChoice)
	}
	if s.PathnameChoice == naming.PathWithImageDir && s.FileNameMethod != naming.MethodFromImage {
		return s.errorf("pathname_choice with_image requires file_name_method from_image")
	}
	if !contains(validBitDepths, s.BitDepth) {
		return s.errorf("Invalid bit_depth: %s. Must be one of: 8, 12, 16", s.BitDepth)
	}
	if !contains(validColormaps, s.Colormap) {
		return s.errorf("Invalid colormap: %s", s.Colormap)
	}
	if !contains(validWhenToSave, s.WhenToSave) {
		return s.errorf("Invalid when_to_save: %s. Must be one of: every_cycle, first_cycle, last_cycle", s.WhenToSave)
	}
	if !contains(validMovieSaving, s.WhenToSaveMovie) {
		return s.errorf("Invalid when_to_save_movie: %s", s.WhenToSaveMovie)
	}
	return nil
}

// NamingConfig projects the settings onto the resolver's configuration.
func (s *SaveSettings) NamingConfig() naming.NamingConfig {
	pathMode := s.PathnameChoice
	if s.Subject == SubjectMovie {
		pathMode = s.MoviePathnameChoice
	}
	return naming.NamingConfig{
		Method:               s.FileNameMethod,
		SingleNameTemplate:   s.SingleFileName,
		Suffix:               s.FileNameSuffix,
		Extension:            s.FileFormat,
		PathMode:             pathMode,
		CustomPathTemplate:   s.Pathname,
		CreateSubdirectories: s.CreateSubdirectories,
	}
}

// ShouldCheckOverwrite reports whether existing files need confirmation.
func (s *SaveSettings) ShouldCheckOverwrite() bool {
	return s.OverwriteCheck == nil || *s.OverwriteCheck
}

func (s *SaveSettings) errorf(format string, args ...interface{}) *ConfigError {
	name := s.Name
	if name == "" {
		name = "module"
	}
	return &ConfigError{Message: name + ": " + fmt.Sprintf(format, args...)}
}

// ObjectStoreSettings routes saved files to an S3-compatible bucket.
type ObjectStoreSettings struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether an object store is configured.
func (o *ObjectStoreSettings) Enabled() bool {
	return strings.TrimSpace(o.Endpoint) != ""
}

// OutputSettings holds run-wide output and bookkeeping settings.
type OutputSettings struct {
	DefaultOutputDir string `yaml:"default_output_dir"`
	DefaultInputDir  string `yaml:"default_input_dir"`

	LogPath          string `yaml:"log_path"`
	HistoryPath      string `yaml:"history_path"`
	HistoryRetention int    `yaml:"history_retention"` // 0 = unlimited

	ExistenceCacheSize int `yaml:"existence_cache_size"`

	ObjectStore ObjectStoreSettings `yaml:"object_store"`
}

// SetDefaults sets default values for OutputSettings. Paths left empty are
// filled by the caller from preferences.
func (o *OutputSettings) SetDefaults() {
	if o.HistoryRetention < 0 {
		o.HistoryRetention = 0
	}
	if o.ExistenceCacheSize <= 0 {
		o.ExistenceCacheSize = 4096
	}
	if o.ObjectStore.Enabled() && o.ObjectStore.Region == "" {
		o.ObjectStore.Region = "us-east-1"
	}
}

// Validate validates OutputSettings.
func (o *OutputSettings) Validate() error {
	if !o.ObjectStore.Enabled() {
		return nil
	}
	missing := []string{}
	if strings.TrimSpace(o.ObjectStore.Bucket) == "" {
		missing = append(missing, "bucket")
	}
	if strings.TrimSpace(o.ObjectStore.AccessKey) == "" {
		missing = append(missing, "access_key")
	}
	if strings.TrimSpace(o.ObjectStore.SecretKey) == "" {
		missing = append(missing, "secret_key")
	}
	if len(missing) > 0 {
		return &ConfigError{
			Message: fmt.Sprintf("Missing object store %s. Set output.object_store.%s", strings.Join(missing, " and "), missing[0]),
		}
	}
	return nil
}

// PipelineConfig represents the main configuration model.
type PipelineConfig struct {
	Version string         `yaml:"version"`
	Output  OutputSettings `yaml:"output"`
	Modules []SaveSettings `yaml:"modules"`
}

// Validate sets defaults and validates every section.
func (c *PipelineConfig) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid version: %s. Expected %s", c.Version, CurrentVersion),
		}
	}

	c.Output.SetDefaults()
	if err := c.Output.Validate(); err != nil {
		return err
	}

	if len(c.Modules) == 0 {
		return &ConfigError{Message: "at least one SaveImages module must be configured"}
	}
	seen := make(map[string]bool, len(c.Modules))
	for i := range c.Modules {
		m := &c.Modules[i]
		if m.Name == "" {
			m.Name = fmt.Sprintf("SaveImages_%d", i+1)
		}
		if seen[m.Name] {
			return &ConfigError{Message: fmt.Sprintf("duplicate module name: %s", m.Name)}
		}
		seen[m.Name] = true
		m.SetDefaults()
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
