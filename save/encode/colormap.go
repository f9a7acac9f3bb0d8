package encode

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"
	"sync"

	"github.com/mazznoer/colorgrad"
)

// lutSize is the number of entries sampled from a colormap.
const lutSize = 256

// stop is one breakpoint of a piecewise-linear channel.
type stop struct{ at, v float64 }

type segments struct{ r, g, b []stop }

// Channel breakpoints of the MATLAB-style colormaps.
var segmentData = map[string]segments{
	"autumn": {
		r: []stop{{0, 1}, {1, 1}},
		g: []stop{{0, 0}, {1, 1}},
		b: []stop{{0, 0}, {1, 0}},
	},
	"bone": {
		r: []stop{{0, 0}, {0.746032, 0.652778}, {1, 1}},
		g: []stop{{0, 0}, {0.365079, 0.319444}, {0.746032, 0.777778}, {1, 1}},
		b: []stop{{0, 0}, {0.365079, 0.444444}, {1, 1}},
	},
	"cool": {
		r: []stop{{0, 0}, {1, 1}},
		g: []stop{{0, 1}, {1, 0}},
		b: []stop{{0, 1}, {1, 1}},
	},
	"copper": {
		r: []stop{{0, 0}, {0.809524, 1}, {1, 1}},
		g: []stop{{0, 0}, {1, 0.7812}},
		b: []stop{{0, 0}, {1, 0.4975}},
	},
	"hot": {
		r: []stop{{0, 0.0416}, {0.365079, 1}, {1, 1}},
		g: []stop{{0, 0}, {0.365079, 0}, {0.746032, 1}, {1, 1}},
		b: []stop{{0, 0}, {0.746032, 0}, {1, 1}},
	},
	"hsv": {
		r: []stop{{0, 1}, {0.158730, 1}, {0.174603, 0.968750}, {0.333333, 0.031250}, {0.349206, 0},
			{0.666667, 0}, {0.682540, 0.031250}, {0.841270, 0.968750}, {0.857143, 1}, {1, 1}},
		g: []stop{{0, 0}, {0.158730, 0.937500}, {0.174603, 1}, {0.507937, 1}, {0.666667, 0.062500},
			{0.682540, 0}, {1, 0}},
		b: []stop{{0, 0}, {0.333333, 0}, {0.349206, 0.062500}, {0.507937, 1}, {0.841270, 1},
			{0.857143, 0.937500}, {1, 0.09375}},
	},
	"jet": {
		r: []stop{{0, 0}, {0.35, 0}, {0.66, 1}, {0.89, 1}, {1, 0.5}},
		g: []stop{{0, 0}, {0.125, 0}, {0.375, 1}, {0.64, 1}, {0.91, 0}, {1, 0}},
		b: []stop{{0, 0.5}, {0.11, 1}, {0.34, 1}, {0.65, 0}, {1, 0}},
	},
	"spring": {
		r: []stop{{0, 1}, {1, 1}},
		g: []stop{{0, 0}, {1, 1}},
		b: []stop{{0, 1}, {1, 0}},
	},
	"summer": {
		r: []stop{{0, 0}, {1, 1}},
		g: []stop{{0, 0.5}, {1, 1}},
		b: []stop{{0, 0.4}, {1, 0.4}},
	},
	"winter": {
		r: []stop{{0, 0}, {1, 0}},
		g: []stop{{0, 0}, {1, 1}},
		b: []stop{{0, 1}, {1, 0.5}},
	},
}

// Colormaps defined by a function of the normalised intensity. They are
// sampled at every LUT entry.
var funcData = map[string]func(x float64) (r, g, b float64){
	"flag": func(x float64) (float64, float64, float64) {
		return 0.75*math.Sin((x*31.5+0.25)*math.Pi) + 0.5,
			math.Sin(x * 31.5 * math.Pi),
			0.75*math.Sin((x*31.5-0.25)*math.Pi) + 0.5
	},
	"prism": func(x float64) (float64, float64, float64) {
		return 0.75*math.Sin((x*20.9+0.25)*math.Pi) + 0.67,
			0.75*math.Sin((x*20.9-0.25)*math.Pi) + 0.33,
			-1.1 * math.Sin(x*20.9*math.Pi)
	},
	"pink": func(x float64) (float64, float64, float64) {
		// sqrt((2*gray + hot) / 3)
		hr, hg, hb := evalSegments(segmentData["hot"], x)
		return math.Sqrt((2*x + hr) / 3), math.Sqrt((2*x + hg) / 3), math.Sqrt((2*x + hb) / 3)
	},
}

var (
	lutMu    sync.Mutex
	lutCache = make(map[string]*[lutSize]color.RGBA)
)

// KnownColormap reports whether name can be applied by Prepare.
func KnownColormap(name string) bool {
	if name == "" || name == "gray" {
		return true
	}
	_, seg := segmentData[name]
	_, fn := funcData[name]
	return seg || fn
}

// colormapLUT returns the 256-entry lookup table of a colormap.
func colormapLUT(name string) (*[lutSize]color.RGBA, error) {
	lutMu.Lock()
	defer lutMu.Unlock()
	if lut, ok := lutCache[name]; ok {
		return lut, nil
	}

	var (
		positions []float64
		colors    []color.Color
	)
	if seg, ok := segmentData[name]; ok {
		positions = breakpoints(seg)
		for _, x := range positions {
			colors = append(colors, rgb(evalSegments(seg, x)))
		}
	} else if fn, ok := funcData[name]; ok {
		for i := 0; i < lutSize; i++ {
			x := float64(i) / (lutSize - 1)
			positions = append(positions, x)
			colors = append(colors, rgb(fn(x)))
		}
	} else {
		return nil, &UnsupportedError{Option: "colormap", Value: name}
	}

	grad, err := colorgrad.NewGradient().Colors(colors...).Domain(positions...).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build colormap %s: %w", name, err)
	}
	var lut [lutSize]color.RGBA
	for i := range lut {
		r, g, b, _ := grad.At(float64(i) / (lutSize - 1)).RGBA()
		lut[i] = color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
	}
	lutCache[name] = &lut
	return &lut, nil
}

// breakpoints returns the sorted union of the channel breakpoints.
func breakpoints(seg segments) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, ch := range [][]stop{seg.r, seg.g, seg.b} {
		for _, s := range ch {
			if !seen[s.at] {
				seen[s.at] = true
				out = append(out, s.at)
			}
		}
	}
	sort.Float64s(out)
	return out
}

func evalSegments(seg segments, x float64) (r, g, b float64) {
	return evalChannel(seg.r, x), evalChannel(seg.g, x), evalChannel(seg.b, x)
}

func evalChannel(stops []stop, x float64) float64 {
	if x <= stops[0].at {
		return stops[0].v
	}
	for i := 1; i < len(stops); i++ {
		if x <= stops[i].at {
			lo, hi := stops[i-1], stops[i]
			return lo.v + (hi.v-lo.v)*(x-lo.at)/(hi.at-lo.at)
		}
	}
	return stops[len(stops)-1].v
}

func rgb(r, g, b float64) color.RGBA64 {
	return color.RGBA64{R: unit16(r), G: unit16(g), B: unit16(b), A: 0xffff}
}

func unit16(v float64) uint16 {
	return uint16(math.Round(math.Max(0, math.Min(1, v)) * 0xffff))
}

// applyColormap stretches a grayscale image to its own range and maps
// every pixel through the colormap.
func applyColormap(img image.Image, lut *[lutSize]color.RGBA) *image.RGBA {
	b := img.Bounds()
	src := image.NewGray16(b)
	draw.Draw(src, b, img, b.Min, draw.Src)
	lo, hi := uint32(0xffff), uint32(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := uint32(src.Gray16At(x, y).Y)
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := 0
			if hi > lo {
				v := uint32(src.Gray16At(x, y).Y)
				i = min(int((v-lo)*lutSize/(hi-lo)), lutSize-1)
			}
			out.SetRGBA(x, y, lut[i])
		}
	}
	return out
}
