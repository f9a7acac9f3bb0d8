// Package encode writes images in the formats SaveImages can produce.
// Encoders are looked up by the canonical format name the resolver reports
// (jpeg, tiff), never by the on-disk extension.
package encode

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"sort"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// FormatError reports a format with no registered encoder.
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("no encoder for format %q", e.Format)
}

// Encoder writes img to w.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(w io.Writer, img image.Image) error

func (f EncoderFunc) Encode(w io.Writer, img image.Image) error { return f(w, img) }

// Registry maps canonical format names to encoders.
type Registry struct {
	mu       sync.RWMutex
	encoders map[string]Encoder
	types    map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{encoders: make(map[string]Encoder), types: make(map[string]string)}
}

// Default returns a registry with png, jpeg, gif, bmp and tiff encoders.
func Default() *Registry {
	r := NewRegistry()
	r.Register("png", "image/png", EncoderFunc(png.Encode))
	r.Register("jpeg", "image/jpeg", EncoderFunc(func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	}))
	r.Register("gif", "image/gif", EncoderFunc(func(w io.Writer, img image.Image) error {
		return gif.Encode(w, img, nil)
	}))
	r.Register("bmp", "image/bmp", EncoderFunc(bmp.Encode))
	r.Register("tiff", "image/tiff", EncoderFunc(func(w io.Writer, img image.Image) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}))
	return r
}

// Register adds or replaces the encoder for format.
func (r *Registry) Register(format, contentType string, enc Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[format] = enc
	r.types[format] = contentType
}

// Lookup returns the encoder and content type for format.
func (r *Registry) Lookup(format string) (Encoder, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enc, ok := r.encoders[format]
	if !ok {
		return nil, "", &FormatError{Format: format}
	}
	return enc, r.types[format], nil
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, 0, len(r.encoders))
	for f := range r.encoders {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}
