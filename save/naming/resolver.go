package naming

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Prefixes recognised at the start of a custom path template.
const (
	outputDirPrefix = "." + string(filepath.Separator)
	inputDirPrefix  = "&" + string(filepath.Separator)
)

// Resolve builds the output directory and filename for one saved artifact.
// It is a pure function of its arguments and never touches the filesystem.
func Resolve(cfg NamingConfig, rc RunContext) (*Resolution, error) {
	if cfg.PathMode == PathWithImageDir && cfg.Method != MethodFromImage {
		return nil, &ResolveError{
			Kind:    ErrUnsupportedPathMode,
			Field:   "path_mode",
			Message: fmt.Sprintf("%q requires file names built from the image filename, got %q", cfg.PathMode.Label(), cfg.Method.Label()),
		}
	}

	encoderFormat, err := resolveFormat(cfg.Extension)
	if err != nil {
		return nil, err
	}

	base, err := baseName(cfg, rc)
	if err != nil {
		return nil, err
	}

	dir, err := directory(cfg, rc)
	if err != nil {
		return nil, err
	}

	// The image's own directory already is the source directory.
	if cfg.CreateSubdirectories && cfg.PathMode != PathWithImageDir &&
		cfg.Method.UsesSourceDirectory() && rc.SourceFilePath != "" {
		dir = joinPath(dir, rc.SourceFilePath)
	}

	return &Resolution{
		Dir:           dir,
		FileName:      base + "." + cfg.Extension,
		Extension:     cfg.Extension,
		EncoderFormat: encoderFormat,
	}, nil
}

// ResolvePath is Resolve reduced to the joined path.
func ResolvePath(cfg NamingConfig, rc RunContext) (string, error) {
	res, err := Resolve(cfg, rc)
	if err != nil {
		return "", err
	}
	return res.Path(), nil
}

func resolveFormat(ext string) (string, error) {
	if ext == "" {
		return "", missingField("extension", "an output file format must be chosen")
	}
	return EncoderFormat(ext)
}

func baseName(cfg NamingConfig, rc RunContext) (string, error) {
	switch cfg.Method {
	case MethodSingleName:
		if cfg.SingleNameTemplate == "" {
			return "", missingField("single_name_template", "single file name is empty")
		}
		return cfg.SingleNameTemplate, nil

	case MethodWithMetadata:
		if cfg.SingleNameTemplate == "" {
			return "", missingField("single_name_template", "metadata file name is empty")
		}
		return ApplyMetadata(cfg.SingleNameTemplate, rc.Metadata)

	case MethodSequential:
		if cfg.SingleNameTemplate == "" {
			return "", missingField("single_name_template", "sequential file prefix is empty")
		}
		if rc.SequenceNumber < 1 {
			return "", missingField("sequence_number", "sequence numbers start at 1")
		}
		return cfg.SingleNameTemplate + strconv.Itoa(rc.SequenceNumber), nil

	case MethodFromImage:
		if rc.SourceFileBaseName == "" {
			return "", missingField("source_file_base_name", "no file name recorded for the prefix image")
		}
		name := rc.SourceFileBaseName
		if cfg.HasSuffix() {
			name += cfg.Suffix
		}
		return name, nil
	}
	return "", &ResolveError{
		Kind:    ErrMissingRequiredField,
		Field:   "method",
		Message: fmt.Sprintf("unknown file name method %q", cfg.Method),
	}
}

func directory(cfg NamingConfig, rc RunContext) (string, error) {
	switch cfg.PathMode {
	case PathDefaultOutputDir:
		if rc.DefaultOutputDirectory == "" {
			return "", missingField("default_output_directory", "default output directory is not set")
		}
		return rc.DefaultOutputDirectory, nil

	case PathCustom:
		return customDirectory(cfg.CustomPathTemplate, rc, false)

	case PathCustomWithMetadata:
		return customDirectory(cfg.CustomPathTemplate, rc, true)

	case PathWithImageDir:
		if rc.SourceFilePath == "" {
			return "", missingField("source_file_path", "no directory recorded for the prefix image")
		}
		return rc.SourceFilePath, nil
	}
	return "", &ResolveError{
		Kind:    ErrMissingRequiredField,
		Field:   "path_mode",
		Message: fmt.Sprintf("unknown path mode %q", cfg.PathMode),
	}
}

// customDirectory expands the "./" and "&/" root prefixes of a custom path
// and, when withMetadata is set, substitutes metadata tags in the remainder.
// Tags are substituted before joining: the backslash of \g<tag> must not
// reach path cleaning.
func customDirectory(template string, rc RunContext, withMetadata bool) (string, error) {
	if template == "" {
		return "", missingField("custom_path_template", "custom directory is empty")
	}

	root, rest := "", template
	switch {
	case strings.HasPrefix(template, outputDirPrefix):
		if rc.DefaultOutputDirectory == "" {
			return "", missingField("default_output_directory", "default output directory is not set")
		}
		root, rest = rc.DefaultOutputDirectory, template[len(outputDirPrefix):]
	case strings.HasPrefix(template, inputDirPrefix):
		if rc.DefaultInputDirectory == "" {
			return "", missingField("default_input_directory", "default input directory is not set")
		}
		root, rest = rc.DefaultInputDirectory, template[len(inputDirPrefix):]
	}

	if withMetadata {
		var err error
		if rest, err = ApplyMetadata(rest, rc.Metadata); err != nil {
			return "", err
		}
	}
	if root == "" {
		return rest, nil
	}
	return joinPath(root, rest), nil
}

// joinPath joins path elements, treating every element after the first as
// relative even when it carries a leading separator.
func joinPath(dir string, elem string) string {
	return filepath.Join(dir, elem)
}
