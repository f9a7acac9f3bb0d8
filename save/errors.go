package save

import (
	"errors"
	"fmt"
)

// ErrSubjectNotSupported is returned for save subjects that have no writer.
var ErrSubjectNotSupported = errors.New("save subject not supported")

// SaveError wraps a failure to save one image.
type SaveError struct {
	Module   string
	ImageSet int
	Path     string // empty when the failure happened before resolution
	Original error
}

func (e *SaveError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: image set %d: failed to save %s: %v", e.Module, e.ImageSet, e.Path, e.Original)
	}
	return fmt.Sprintf("%s: image set %d: %v", e.Module, e.ImageSet, e.Original)
}

func (e *SaveError) Unwrap() error {
	return e.Original
}
