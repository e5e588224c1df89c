package abr

import (
	"errors"
	"fmt"
	"io"

	"github.com/bodgit/abr/bigendian"
	"github.com/bodgit/abr/packbits"
)

const (
	compressionRaw = 0
	compressionRLE = 1

	// A two byte repeat run can expand to at most 128 bytes
	maxExpansion = 64
)

// readSamples reads width×height 8-bit samples from r, which must be
// limited to the bytes available to the brush. Compressed samples are
// stored as a table of per-row compressed lengths followed by the
// PackBits-compressed rows.
func readSamples(r *io.LimitedReader, width, height uint32, compression uint8) ([]byte, error) {
	size := uint64(width) * uint64(height)

	switch compression {
	case compressionRaw:
		if size > uint64(r.N) {
			return nil, fmt.Errorf("%w: %dx%d samples need %d bytes, %d available", ErrSampleSize, width, height, size, r.N)
		}
		b, err := bigendian.ReadBytes(r, int64(size))
		if err != nil {
			return nil, err
		}
		return b, nil
	case compressionRLE:
		if uint64(height)*2 > uint64(r.N) {
			return nil, fmt.Errorf("%w: %d row lengths, %d bytes available", ErrSampleSize, height, r.N)
		}
		lengths := make([]uint16, height)
		var total uint64
		for i := range lengths {
			n, err := bigendian.ReadUint16(r)
			if err != nil {
				return nil, bigendian.NoEOF(err)
			}
			lengths[i] = n
			total += uint64(n)
		}
		if total > uint64(r.N) {
			return nil, fmt.Errorf("%w: compressed rows need %d bytes, %d available", ErrSampleSize, total, r.N)
		}
		if size > total*maxExpansion {
			return nil, fmt.Errorf("%w: %d compressed bytes cannot hold %dx%d samples", ErrSampleSize, total, width, height)
		}
		src, err := bigendian.ReadBytes(r, int64(total))
		if err != nil {
			return nil, err
		}
		dst := make([]byte, size)
		if err := packbits.DecodeRows(dst, int(width), src, lengths); err != nil {
			if errors.Is(err, packbits.ErrRowLength) {
				return nil, fmt.Errorf("%w: %w", ErrRecordLength, err)
			}
			return nil, err
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrCompression, compression)
	}
}
