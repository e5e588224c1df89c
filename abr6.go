package abr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/bodgit/abr/bigendian"
	"github.com/bodgit/abr/descriptor"
)

const (
	resourceSignature = 0x3842494d // "8BIM"
	styleSignature    = 0x3842534c // "8BSL"

	sampleResource    = "samp"
	patternSectionVer = 3
	brushObject       = "Brsh"
	patternObject     = "Patt"
	keyName           = "Nm  "
	keyWidth          = "Wdth"
	keyHeight         = "Hght"
	keyDepth          = "Dpth"
	keyChannels       = "Chnl"
	blockAlign        = 4
)

func fourCC(v uint32) string {
	return string([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// sampleBlocks reads a section made of length-prefixed blocks, each
// padded to a multiple of four bytes and holding one brush described by
// a descriptor tree. end is the stream offset at which the section
// finishes, it is found on the first call to next.
type sampleBlocks struct {
	r       io.ReadSeeker
	object  string
	located bool
	end     int64
	index   int
	done    bool
}

func (s *sampleBlocks) next(locate func() (int64, error)) (*ImageBrush, error) {
	if s.done {
		return nil, io.EOF
	}

	if !s.located {
		s.located = true
		end, err := locate()
		if err != nil {
			s.done = true
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, &BrushError{Index: s.index, Err: err}
		}
		s.end = end
	}

	pos, err := s.r.Seek(0, io.SeekCurrent)
	if err != nil {
		s.done = true
		return nil, &BrushError{Index: s.index, Err: err}
	}
	if pos >= s.end {
		s.done = true
		return nil, io.EOF
	}

	index := s.index
	s.index++

	length, err := bigendian.ReadUint32(s.r)
	if err != nil {
		s.done = true
		if err == io.EOF {
			// Section shorter than declared
			return nil, io.EOF
		}
		return nil, &BrushError{Index: index, Err: err}
	}

	start := pos + 4
	next := start + (int64(length)+blockAlign-1)&^(blockAlign-1)

	var brush *ImageBrush
	if start+int64(length) > s.end {
		err = fmt.Errorf("%w: %d byte block extends past end of section", ErrRecordLength, length)
		next = s.end
	} else {
		brush, err = s.readBlock(&io.LimitedReader{R: s.r, N: int64(length)})
	}

	if next > s.end {
		next = s.end
	}
	if _, serr := s.r.Seek(next, io.SeekStart); serr != nil {
		s.done = true
		if err == nil {
			brush, err = nil, serr
		}
	}

	if err != nil {
		return nil, &BrushError{Index: index, Err: err}
	}

	return brush, nil
}

func (s *sampleBlocks) readBlock(r *io.LimitedReader) (*ImageBrush, error) {
	// Unique identifier of the brush
	if _, err := bigendian.ReadPascalString(r); err != nil {
		return nil, bigendian.NoEOF(err)
	}

	d, err := descriptor.ReadVersioned(r, r.N)
	if err != nil {
		return nil, err
	}

	width, err := d.Integer(s.object, keyWidth)
	if err != nil {
		return nil, err
	}
	height, err := d.Integer(s.object, keyHeight)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 || width > math.MaxUint32 || height > math.MaxUint32 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrFormat, width, height)
	}

	switch depth, err := d.Integer(s.object, keyDepth); {
	case errors.Is(err, descriptor.ErrNotFound):
	case err != nil:
		return nil, err
	case depth != 8:
		return nil, fmt.Errorf("%w: %d", ErrDepth, depth)
	}

	name, err := d.Text(s.object, keyName)
	if err != nil && !errors.Is(err, descriptor.ErrNotFound) {
		return nil, err
	}

	channels, err := d.List(s.object, keyChannels)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: %s/%s is empty", ErrFormat, s.object, keyChannels)
	}

	// Only the first channel is used, any others were parsed along with
	// the descriptor
	channel, ok := channels[0].(descriptor.Data)
	if !ok {
		return nil, fmt.Errorf("%w: channel is %T", ErrFormat, channels[0])
	}

	brush := &ImageBrush{
		Name:   name,
		Width:  uint32(width),
		Height: uint32(height),
		Depth:  8,
	}

	if brush.Data, err = readChannel(channel, brush.Width, brush.Height); err != nil {
		return nil, err
	}

	return brush, nil
}

// readChannel decodes a channel blob; a compression byte followed by the
// samples.
func readChannel(b []byte, width, height uint32) ([]byte, error) {
	r := &io.LimitedReader{R: bytes.NewReader(b), N: int64(len(b))}
	compression, err := bigendian.ReadUint8(r)
	if err != nil {
		return nil, fmt.Errorf("%w: empty channel", ErrSampleSize)
	}
	data, err := readSamples(r, width, height, compression)
	if err != nil {
		return nil, err
	}
	if r.N != 0 {
		return nil, fmt.Errorf("%w: %d bytes left over in channel", ErrRecordLength, r.N)
	}
	return data, nil
}

// abr6Decoder reads version 6 and 10 brush libraries. The file is a
// series of image resources and the brushes are in the "samp" resource.
type abr6Decoder struct {
	sampleBlocks
}

func newABR6Decoder(r io.ReadSeeker) *abr6Decoder {
	return &abr6Decoder{
		sampleBlocks{
			r:      r,
			object: brushObject,
		},
	}
}

func (d *abr6Decoder) next() (*ImageBrush, error) {
	return d.sampleBlocks.next(d.locate)
}

// locate skips image resources until the sample resource is found and
// returns the offset of its end. A file without one has no brushes.
func (d *abr6Decoder) locate() (int64, error) {
	for {
		sig, err := bigendian.ReadUint32(d.r)
		if err != nil {
			return 0, err
		}
		if sig != resourceSignature {
			return 0, fmt.Errorf("%w: bad resource signature %q", ErrFormat, fourCC(sig))
		}
		key, err := bigendian.ReadUint32(d.r)
		if err != nil {
			return 0, bigendian.NoEOF(err)
		}
		length, err := bigendian.ReadUint32(d.r)
		if err != nil {
			return 0, bigendian.NoEOF(err)
		}
		pos, err := d.r.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		if fourCC(key) == sampleResource {
			return pos + int64(length), nil
		}
		if _, err := d.r.Seek(int64(length), io.SeekCurrent); err != nil {
			return 0, err
		}
	}
}

// aslDecoder reads version 2 style libraries. The patterns section is
// laid out like the sample resource of a brush library.
type aslDecoder struct {
	sampleBlocks
}

func newASLDecoder(r io.ReadSeeker) *aslDecoder {
	return &aslDecoder{
		sampleBlocks{
			r:      r,
			object: patternObject,
		},
	}
}

func (d *aslDecoder) next() (*ImageBrush, error) {
	return d.sampleBlocks.next(d.locate)
}

func (d *aslDecoder) locate() (int64, error) {
	sig, err := bigendian.ReadUint32(d.r)
	if err != nil {
		return 0, err
	}
	if sig != styleSignature {
		return 0, fmt.Errorf("%w: bad style signature %q", ErrFormat, fourCC(sig))
	}
	version, err := bigendian.ReadUint16(d.r)
	if err != nil {
		return 0, bigendian.NoEOF(err)
	}
	if version != patternSectionVer {
		return 0, fmt.Errorf("%w: pattern section version %d", ErrFormat, version)
	}
	length, err := bigendian.ReadUint32(d.r)
	if err != nil {
		return 0, bigendian.NoEOF(err)
	}
	pos, err := d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return pos + int64(length), nil
}
