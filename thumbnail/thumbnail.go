/*
Package thumbnail renders brushes as small paletted preview images.

A brush is scaled to fit inside a square box, keeping its aspect ratio,
and its grey levels are then reduced to a small palette with a median cut
quantizer so that previews stay compact when stored or encoded as GIF.
*/
package thumbnail

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"sort"

	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/draw"
)

const (
	// DefaultSize is the default edge length of the thumbnail box
	DefaultSize = 64
	// DefaultColors is the default number of palette entries
	DefaultColors = 16

	maxColors = 256
)

var (
	errBadSize   = errors.New("thumbnail: invalid size")
	errBadColors = errors.New("thumbnail: invalid number of colors")
	errEmpty     = errors.New("thumbnail: empty image")
)

type byLuma color.Palette

func (p byLuma) Len() int {
	return len(p)
}

func (p byLuma) Swap(i, j int) {
	p[i], p[j] = p[j], p[i]
}

func (p byLuma) Less(i, j int) bool {
	return color.GrayModel.Convert(p[i]).(color.Gray).Y < color.GrayModel.Convert(p[j]).(color.Gray).Y
}

// fit scales w×h to fit inside size×size, never enlarging and never
// collapsing an edge to zero.
func fit(w, h, size int) (int, int) {
	if w <= size && h <= size {
		return w, h
	}
	if w >= h {
		h = h * size / w
		w = size
	} else {
		w = w * size / h
		h = size
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// New returns a greyscale thumbnail of m no larger than size×size using
// at most colors palette entries. The palette is sorted from dark to
// light.
func New(m image.Image, size, colors int) (*image.Paletted, error) {
	if size < 1 {
		return nil, errBadSize
	}
	if colors < 2 || colors > maxColors {
		return nil, errBadColors
	}

	b := m.Bounds()
	if b.Empty() {
		return nil, errEmpty
	}

	w, h := fit(b.Dx(), b.Dy(), size)
	scaled := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), m, b, draw.Src, nil)

	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, colors), scaled)
	sort.Sort(byLuma(p))

	pm := image.NewPaletted(scaled.Bounds(), p)
	draw.Draw(pm, pm.Bounds(), scaled, image.Point{}, draw.Src)

	return pm, nil
}

// Encode writes a thumbnail of m to w as a GIF.
func Encode(w io.Writer, m image.Image, size, colors int) error {
	pm, err := New(m, size, colors)
	if err != nil {
		return err
	}
	return gif.Encode(w, pm, &gif.Options{NumColors: len(pm.Palette)})
}
