// Package source turns a directory of image files into image sets for the
// command-line pipeline. Each file is one image set; metadata comes from
// named groups of a regular expression matched against the file name.
package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/sv4u/saveimages/save/measurements"
)

// Extensions lists the file extensions Scan picks up.
var Extensions = []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tif", ".tiff"}

// File is one input image.
type File struct {
	Path     string
	Metadata map[string]string
}

// Options control Scan.
type Options struct {
	// Recursive descends into subdirectories.
	Recursive bool
	// Pattern is matched against the file name; its named groups become
	// metadata. Files that do not match are skipped when Pattern is set.
	Pattern *regexp.Regexp
}

// CompilePattern compiles a metadata pattern and checks that it has at
// least one named group.
func CompilePattern(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata pattern: %w", err)
	}
	for _, name := range re.SubexpNames() {
		if name != "" {
			return re, nil
		}
	}
	return nil, fmt.Errorf("metadata pattern %q has no named groups", expr)
}

// Scan lists the image files under dir in lexical path order.
func Scan(dir string, opts Options) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !supported(path) {
			return nil
		}
		md, ok := Match(opts.Pattern, d.Name())
		if !ok {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		files = append(files, File{Path: abs, Metadata: md})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Match extracts named-group metadata from name. A nil pattern matches
// everything with no metadata.
func Match(re *regexp.Regexp, name string) (map[string]string, bool) {
	md := make(map[string]string)
	if re == nil {
		return md, true
	}
	m := re.FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}
	for i, group := range re.SubexpNames() {
		if group != "" && i < len(m) {
			md[group] = m[i]
		}
	}
	return md, true
}

func supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Decode reads and decodes the image at path.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// Measurements builds the measurement store for the image set at number
// (1-based) with f recorded under every name in imageNames.
func (f File) Measurements(number int, imageNames ...string) *measurements.Measurements {
	m := measurements.New(number)
	for _, name := range imageNames {
		measurements.RecordFile(m, name, f.Path)
	}
	for k, v := range f.Metadata {
		m.AddMetadata(k, v)
	}
	return m
}
