// Package measurements is the per-image-set key/value store that SaveImages
// reads source file names and metadata from and writes saved file names to.
package measurements

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Feature name prefixes for per-image file bookkeeping.
const (
	FileNamePrefix = "FileName_"
	PathNamePrefix = "PathName_"
	MetadataPrefix = "Metadata_"
)

// FileNameFeature returns the feature holding the file name of image.
func FileNameFeature(image string) string { return FileNamePrefix + image }

// PathNameFeature returns the feature holding the directory of image.
func PathNameFeature(image string) string { return PathNamePrefix + image }

// Store is the measurement lookup SaveImages depends on.
type Store interface {
	// ImageSetNumber is the 1-based index of the current image set.
	ImageSetNumber() int
	ImageMeasurement(feature string) (string, bool)
	AddImageMeasurement(feature, value string)
	// Metadata returns the metadata tags of the current image set.
	Metadata() map[string]string
}

// Measurements is an in-memory Store for one image set. It is safe for
// concurrent use.
type Measurements struct {
	mu     sync.RWMutex
	number int
	image  map[string]string
}

// New returns an empty store for image set number.
func New(number int) *Measurements {
	return &Measurements{number: number, image: make(map[string]string)}
}

func (m *Measurements) ImageSetNumber() int {
	return m.number
}

func (m *Measurements) ImageMeasurement(feature string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.image[feature]
	return v, ok
}

func (m *Measurements) AddImageMeasurement(feature, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.image[feature] = value
}

// AddMetadata records a metadata tag.
func (m *Measurements) AddMetadata(tag, value string) {
	m.AddImageMeasurement(MetadataPrefix+tag, value)
}

// Metadata returns a copy of the metadata tags.
func (m *Measurements) Metadata() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md := make(map[string]string)
	for k, v := range m.image {
		if tag, ok := strings.CutPrefix(k, MetadataPrefix); ok {
			md[tag] = v
		}
	}
	return md
}

// Features returns the sorted feature names.
func (m *Measurements) Features() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.image))
	for k := range m.image {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RecordFile stores the file and directory of image.
func RecordFile(s Store, image, path string) {
	dir, name := filepath.Split(path)
	s.AddImageMeasurement(FileNameFeature(image), name)
	s.AddImageMeasurement(PathNameFeature(image), filepath.Clean(dir))
}

// SourceFile returns the recorded base name (extension stripped) and
// directory of image. Either may be empty if not recorded.
func SourceFile(s Store, image string) (baseName, dir string) {
	if name, ok := s.ImageMeasurement(FileNameFeature(image)); ok {
		baseName = strings.TrimSuffix(name, filepath.Ext(name))
	}
	dir, _ = s.ImageMeasurement(PathNameFeature(image))
	return baseName, dir
}
