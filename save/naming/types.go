// Package naming turns a module's naming settings and the current image
// set's context into the output path of a saved artifact.
package naming

import "fmt"

// DoNotUse is the reserved setting value meaning "intentionally unset".
const DoNotUse = "Do not use"

// Method selects how the base filename is constructed.
type Method string

const (
	MethodFromImage    Method = "from_image"
	MethodSequential   Method = "sequential"
	MethodSingleName   Method = "single_name"
	MethodWithMetadata Method = "with_metadata"
)

// PathMode selects the output directory.
type PathMode string

const (
	PathDefaultOutputDir   PathMode = "default_output"
	PathWithImageDir       PathMode = "with_image"
	PathCustom             PathMode = "custom"
	PathCustomWithMetadata PathMode = "custom_with_metadata"
)

// Labels used by the positional settings format.
var methodLabels = map[Method]string{
	MethodFromImage:    "From image filename",
	MethodSequential:   "Sequential numbers",
	MethodSingleName:   "Single name",
	MethodWithMetadata: "Name with metadata",
}

var pathModeLabels = map[PathMode]string{
	PathDefaultOutputDir:   "Default output directory",
	PathWithImageDir:       "Same directory as image",
	PathCustom:             "Custom",
	PathCustomWithMetadata: "Custom with metadata",
}

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	_, ok := methodLabels[m]
	return ok
}

// Label returns the human readable name stored in positional settings.
func (m Method) Label() string {
	return methodLabels[m]
}

// UsesSourceDirectory reports whether the method participates in the
// subdirectory merge.
func (m Method) UsesSourceDirectory() bool {
	switch m {
	case MethodFromImage, MethodSequential, MethodWithMetadata:
		return true
	case MethodSingleName:
		return false
	}
	return false
}

// Valid reports whether p is one of the known path modes.
func (p PathMode) Valid() bool {
	_, ok := pathModeLabels[p]
	return ok
}

// Label returns the human readable name stored in positional settings.
func (p PathMode) Label() string {
	return pathModeLabels[p]
}

// ParseMethod accepts either the canonical value or its label.
func ParseMethod(s string) (Method, error) {
	if m := Method(s); m.Valid() {
		return m, nil
	}
	for m, label := range methodLabels {
		if label == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown file name method: %q", s)
}

// ParsePathMode accepts either the canonical value or its label.
func ParsePathMode(s string) (PathMode, error) {
	if p := PathMode(s); p.Valid() {
		return p, nil
	}
	for p, label := range pathModeLabels {
		if label == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown path mode: %q", s)
}

// NamingConfig is the per-module naming configuration. It does not change
// during a run.
type NamingConfig struct {
	Method               Method
	SingleNameTemplate   string
	Suffix               string // DoNotUse or "" means no suffix
	Extension            string
	PathMode             PathMode
	CustomPathTemplate   string
	CreateSubdirectories bool
}

// HasSuffix reports whether a suffix should be appended for MethodFromImage.
func (c NamingConfig) HasSuffix() bool {
	return c.Suffix != "" && c.Suffix != DoNotUse
}

// RunContext is the per-cycle input to Resolve. The caller owns
// SequenceNumber and increments it once per image set.
type RunContext struct {
	DefaultOutputDirectory string
	DefaultInputDirectory  string
	SequenceNumber         int
	Metadata               map[string]string
	SourceFileBaseName     string
	SourceFilePath         string
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Dir           string
	FileName      string
	Extension     string // as configured, used on disk
	EncoderFormat string // canonical name handed to the encoder
}

// Path returns the full output path.
func (r *Resolution) Path() string {
	return joinPath(r.Dir, r.FileName)
}
