package naming

import (
	"errors"
	"fmt"
)

// Error kinds returned by Resolve. Use errors.Is to test for them.
var (
	ErrMissingMetadataTag     = errors.New("missing metadata tag")
	ErrMissingRequiredField   = errors.New("missing required field")
	ErrUnsupportedPathMode    = errors.New("unsupported path mode")
	ErrUnknownExtensionFormat = errors.New("unknown extension format")
)

// ResolveError describes why a path could not be resolved. Field or Tag
// names the offending setting so the caller can show it to the user.
type ResolveError struct {
	Kind    error
	Field   string
	Tag     string
	Message string
}

func (e *ResolveError) Error() string {
	switch {
	case e.Tag != "":
		return fmt.Sprintf("%v %q: %s", e.Kind, e.Tag, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%v %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *ResolveError) Unwrap() error {
	return e.Kind
}

func missingField(field, message string) *ResolveError {
	return &ResolveError{Kind: ErrMissingRequiredField, Field: field, Message: message}
}

func missingTag(tag string) *ResolveError {
	return &ResolveError{
		Kind:    ErrMissingMetadataTag,
		Tag:     tag,
		Message: "no value recorded for this image set",
	}
}
