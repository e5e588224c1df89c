package abr

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bodgit/abr/bigendian"
)

const (
	brushComputed = 1
	brushSampled  = 2
)

// Fixed fields of a sampled brush that precede the name
type sampledHeader struct {
	Misc    uint32
	Spacing uint16
}

// Fixed fields of a sampled brush that follow the name
type sampledBounds struct {
	Antialias   uint8
	ShortBounds [4]uint16
	// Top, left, bottom, right
	LongBounds  [4]uint32
	Depth       uint16
	Compression uint8
}

// abr1Decoder reads version 1 and 2 brush libraries. Each record is a
// 16-bit brush type and a 32-bit length followed by the brush itself.
type abr1Decoder struct {
	r         io.ReadSeeker
	version   uint16
	remaining uint16
	index     int
}

func newABR1Decoder(r io.ReadSeeker, version, count uint16) *abr1Decoder {
	return &abr1Decoder{
		r:         r,
		version:   version,
		remaining: count,
	}
}

func (d *abr1Decoder) next() (*ImageBrush, error) {
	for d.remaining > 0 {
		d.remaining--
		index := d.index
		d.index++

		brush, err := d.readRecord()
		switch {
		case err == io.EOF:
			// Fewer records than the header promised
			d.remaining = 0
			return nil, io.EOF
		case err != nil:
			return nil, &BrushError{Index: index, Err: err}
		case brush == nil:
			// Computed brushes have no samples
			continue
		}
		return brush, nil
	}
	return nil, io.EOF
}

// readRecord reads one record and leaves the stream at the start of the
// next one regardless of whether decoding succeeded. It returns io.EOF
// only if the stream ended exactly at a record boundary.
func (d *abr1Decoder) readRecord() (*ImageBrush, error) {
	typ, err := bigendian.ReadUint16(d.r)
	if err != nil {
		return nil, err
	}
	size, err := bigendian.ReadUint32(d.r)
	if err != nil {
		return nil, bigendian.NoEOF(err)
	}

	start, err := d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	var brush *ImageBrush
	switch typ {
	case brushComputed:
	case brushSampled:
		lr := &io.LimitedReader{R: d.r, N: int64(size)}
		if brush, err = d.readSampled(lr); err == nil && lr.N != 0 {
			brush, err = nil, fmt.Errorf("%w: %d bytes left over", ErrRecordLength, lr.N)
		}
	default:
		err = fmt.Errorf("%w: unknown brush type %d", ErrFormat, typ)
	}

	if _, serr := d.r.Seek(start+int64(size), io.SeekStart); serr != nil && err == nil {
		brush, err = nil, serr
	}

	return brush, err
}

func (d *abr1Decoder) readSampled(r *io.LimitedReader) (*ImageBrush, error) {
	var hdr sampledHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, bigendian.NoEOF(err)
	}

	var name string
	if d.version == 2 {
		var err error
		if name, err = bigendian.ReadUnicodeString(r); err != nil {
			return nil, bigendian.NoEOF(err)
		}
	}

	var bounds sampledBounds
	if err := binary.Read(r, binary.BigEndian, &bounds); err != nil {
		return nil, bigendian.NoEOF(err)
	}

	top, left, bottom, right := bounds.LongBounds[0], bounds.LongBounds[1], bounds.LongBounds[2], bounds.LongBounds[3]
	if bottom <= top || right <= left {
		return nil, fmt.Errorf("%w: empty bounds (%d, %d, %d, %d)", ErrFormat, top, left, bottom, right)
	}
	if bounds.Depth != 8 {
		return nil, fmt.Errorf("%w: %d", ErrDepth, bounds.Depth)
	}

	brush := &ImageBrush{
		Name:   name,
		Width:  right - left,
		Height: bottom - top,
		Depth:  bounds.Depth,
	}

	var err error
	if brush.Data, err = readSamples(r, brush.Width, brush.Height, bounds.Compression); err != nil {
		return nil, err
	}

	return brush, nil
}
