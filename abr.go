/*
Package abr decodes the sampled brushes stored in Adobe brush library
(ABR) and style library (ASL) files.

Three incompatible layouts are supported. Versions 1 and 2 of the brush
library are a flat list of brush records. Versions 6 and 10 (with a
sub-version of 1 or 2) store each brush as a descriptor tree inside an
image resource section, and version 2 style libraries store patterns the
same way behind a different outer wrapper.

Open or OpenASL read the file header and return a Brushes iterator.
Brushes are decoded one at a time as Next is called, each one being
fully materialised as an 8-bit greyscale raster:

	brushes, err := abr.Open(f)
	if err != nil {
		return err
	}
	for {
		b, err := brushes.Next()
		if err == io.EOF {
			break
		}
		var be *abr.BrushError
		if errors.As(err, &be) {
			continue // the next brush may still be readable
		}
		...
	}
*/
package abr

import (
	"image"
	"io"
	"iter"

	"github.com/bodgit/abr/bigendian"
)

// Format identifies the layout of the file being decoded.
type Format int

const (
	// FormatABR1 is a version 1 or 2 brush library.
	FormatABR1 Format = iota + 1
	// FormatABR6 is a version 6 or 10 brush library.
	FormatABR6
	// FormatASL is a version 2 style library.
	FormatASL
)

func (f Format) String() string {
	switch f {
	case FormatABR1:
		return "abr1"
	case FormatABR6:
		return "abr6"
	case FormatASL:
		return "asl"
	default:
		return "unknown"
	}
}

// ImageBrush is a single decoded brush.
type ImageBrush struct {
	// Name is the brush name, if the file stores one
	Name   string
	Width  uint32
	Height uint32
	// Depth is the number of bits per sample, currently always 8
	Depth uint16
	// Data holds Width×Height samples in row-major order
	Data []byte
}

// Invert complements every sample in place.
func (b *ImageBrush) Invert() {
	for i, s := range b.Data {
		b.Data[i] = 255 - s
	}
}

// Image returns the brush as an *image.Gray. The image shares its pixels
// with b.Data.
func (b *ImageBrush) Image() *image.Gray {
	return &image.Gray{
		Pix:    b.Data,
		Stride: int(b.Width),
		Rect:   image.Rect(0, 0, int(b.Width), int(b.Height)),
	}
}

// decoder is implemented by the three per-format decoders. next returns
// the next brush, a *BrushError, or io.EOF once there are no more
// brushes.
type decoder interface {
	next() (*ImageBrush, error)
}

// Brushes is an iterator over the brushes in a file. It owns the reader
// passed to Open or OpenASL; nothing else should read from or seek it
// until iteration is finished. Brushes is not safe for concurrent use.
type Brushes struct {
	dec        decoder
	format     Format
	version    uint16
	subversion uint16
	done       bool
}

// Next decodes and returns the next brush. At the end of the file it
// returns io.EOF, as do all subsequent calls. An error of type
// *BrushError only affects the one brush and Next may be called again.
func (b *Brushes) Next() (*ImageBrush, error) {
	if b.done {
		return nil, io.EOF
	}
	brush, err := b.dec.next()
	if err == io.EOF {
		b.done = true
	}
	return brush, err
}

// All returns an iterator over the remaining brushes. Brushes that fail
// to decode are yielded with a non-nil *BrushError.
func (b *Brushes) All() iter.Seq2[*ImageBrush, error] {
	return func(yield func(*ImageBrush, error) bool) {
		for {
			brush, err := b.Next()
			if err == io.EOF {
				return
			}
			if !yield(brush, err) {
				return
			}
		}
	}
}

// Format returns the layout of the file.
func (b *Brushes) Format() Format {
	return b.format
}

// Version returns the version and sub-version read from the file header.
// Style libraries have no sub-version and report zero.
func (b *Brushes) Version() (uint16, uint16) {
	return b.version, b.subversion
}

// Open reads the header of the brush library in r and returns an iterator
// over its brushes. Only the four header bytes are read before Open
// returns.
func Open(r io.ReadSeeker) (*Brushes, error) {
	version, err := bigendian.ReadUint16(r)
	if err != nil {
		return nil, &OpenError{Err: bigendian.NoEOF(err)}
	}
	subversion, err := bigendian.ReadUint16(r)
	if err != nil {
		return nil, &OpenError{Version: version, Err: bigendian.NoEOF(err)}
	}

	b := &Brushes{
		version:    version,
		subversion: subversion,
	}

	switch {
	case version == 1 || version == 2:
		// The legacy format stores the brush count in place of a
		// sub-version
		b.format, b.dec = FormatABR1, newABR1Decoder(r, version, subversion)
	case (version == 6 || version == 10) && (subversion == 1 || subversion == 2):
		b.format, b.dec = FormatABR6, newABR6Decoder(r)
	default:
		return nil, &OpenError{Version: version, Subversion: subversion, Err: ErrUnsupportedVersion}
	}

	return b, nil
}

// OpenASL reads the header of the style library in r and returns an
// iterator over the patterns it contains. Only the two header bytes are
// read before OpenASL returns.
func OpenASL(r io.ReadSeeker) (*Brushes, error) {
	version, err := bigendian.ReadUint16(r)
	if err != nil {
		return nil, &OpenError{Err: bigendian.NoEOF(err)}
	}
	if version != 2 {
		return nil, &OpenError{Version: version, Err: ErrUnsupportedVersion}
	}

	return &Brushes{
		dec:     newASLDecoder(r),
		format:  FormatASL,
		version: version,
	}, nil
}
