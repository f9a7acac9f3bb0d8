package save

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/sv4u/saveimages/save/measurements"
)

// Image is a named image in an image set. Mask and CropMask are optional;
// a nil mask covers the whole image.
type Image struct {
	Pixels   image.Image
	Mask     image.Image
	CropMask image.Image
}

// ImageSet holds the images and measurements of one pipeline cycle.
type ImageSet struct {
	mu           sync.RWMutex
	images       map[string]*Image
	Measurements measurements.Store
}

// NewImageSet returns an empty image set backed by store.
func NewImageSet(store measurements.Store) *ImageSet {
	return &ImageSet{images: make(map[string]*Image), Measurements: store}
}

// Add stores img under name, replacing any previous image.
func (s *ImageSet) Add(name string, img *Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = img
}

// Get returns the image called name.
func (s *ImageSet) Get(name string) (*Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[name]
	if !ok {
		return nil, fmt.Errorf("image %q is not in image set %d", name, s.Measurements.ImageSetNumber())
	}
	return img, nil
}

// Names returns the sorted image names.
func (s *ImageSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.images))
	for n := range s.images {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// fullMask returns an all-set mask matching the bounds of img.
func fullMask(img image.Image) image.Image {
	b := img.Bounds()
	mask := image.NewGray(b)
	for i := range mask.Pix {
		mask.Pix[i] = 0xff
	}
	return mask
}
