package encode

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Options control pixel preparation before encoding.
type Options struct {
	// Rescale stretches intensities to the full 8-bit range.
	Rescale bool
	// BitDepth is the requested output depth. Only "8" is supported.
	BitDepth string
	// Colormap maps grayscale sources to colour. Empty or "gray" leaves
	// them gray; colour sources ignore it.
	Colormap string
	// Binary maps every non-zero pixel to 255 (masks and croppings).
	Binary bool
}

// UnsupportedError reports a pixel option the encoders cannot honour.
type UnsupportedError struct {
	Option string
	Value  string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s: %s", e.Option, e.Value)
}

// Prepare converts img into the image that is handed to an encoder.
func Prepare(img image.Image, opts Options) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("no pixel data")
	}
	if opts.BitDepth != "" && opts.BitDepth != "8" {
		return nil, &UnsupportedError{Option: "bit depth", Value: opts.BitDepth}
	}
	if !KnownColormap(opts.Colormap) {
		return nil, &UnsupportedError{Option: "colormap", Value: opts.Colormap}
	}

	if opts.Binary {
		return binarize(img), nil
	}
	if opts.Colormap != "" && opts.Colormap != "gray" && isGray(img) {
		lut, err := colormapLUT(opts.Colormap)
		if err != nil {
			return nil, err
		}
		return applyColormap(img, lut), nil
	}
	if opts.Rescale {
		return rescale(img), nil
	}
	return img, nil
}

func binarize(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r|g|bl != 0 {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// rescale stretches each channel independently to 0..255. Grayscale
// sources stay grayscale.
func rescale(img image.Image) image.Image {
	b := img.Bounds()
	if isGray(img) {
		src := image.NewGray16(b)
		draw.Draw(src, b, img, b.Min, draw.Src)
		lo, hi := uint32(0xffff), uint32(0)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				v := uint32(src.Gray16At(x, y).Y)
				lo, hi = min(lo, v), max(hi, v)
			}
		}
		out := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.SetGray(x, y, color.Gray{Y: stretch(uint32(src.Gray16At(x, y).Y), lo, hi)})
			}
		}
		return out
	}

	var lo, hi [3]uint32
	lo = [3]uint32{0xffff, 0xffff, 0xffff}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			for i, v := range [3]uint32{r, g, bl} {
				lo[i], hi[i] = min(lo[i], v), max(hi[i], v)
			}
		}
	}
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out.SetRGBA(x, y, color.RGBA{
				R: stretch(r, lo[0], hi[0]),
				G: stretch(g, lo[1], hi[1]),
				B: stretch(bl, lo[2], hi[2]),
				A: 255,
			})
		}
	}
	return out
}

// stretch maps v from lo..hi onto 0..255. A flat channel maps to 0.
func stretch(v, lo, hi uint32) uint8 {
	if hi <= lo {
		return 0
	}
	return uint8((v - lo) * 255 / (hi - lo))
}

func isGray(img image.Image) bool {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return true
	}
	return false
}
