/*
Package packbits implements the byte-oriented run-length scheme used to
compress scanlines in Adobe brush and style library files.

The compressed stream is a sequence of signed control bytes. A control
byte n in the range 0 to 127 is followed by n+1 literal bytes, a control
byte in the range -127 to -1 is followed by a single byte that is
repeated 1-n times and the control byte -128 is ignored.
*/
package packbits

import (
	"errors"
	"fmt"
)

var (
	// ErrUnderrun is returned when the compressed data ends before the
	// row is complete.
	ErrUnderrun = errors.New("packbits: compressed data too short")
	// ErrOverrun is returned when a run would write past the end of the
	// row.
	ErrOverrun = errors.New("packbits: run exceeds row length")
	// ErrRowLength is returned by DecodeRows when a row does not fit
	// its stored compressed length.
	ErrRowLength = errors.New("packbits: row length mismatch")
)

// Decode decompresses src into dst, filling it exactly, and returns the
// number of bytes of src that were consumed. Decoding stops as soon as
// dst is full so any remaining bytes in src are left for the caller.
func Decode(dst, src []byte) (int, error) {
	var i, j int
	for j < len(dst) {
		if i >= len(src) {
			return i, ErrUnderrun
		}
		n := int(int8(src[i]))
		i++
		switch {
		case n >= 0:
			if j+n+1 > len(dst) {
				return i, ErrOverrun
			}
			if i+n+1 > len(src) {
				return i, ErrUnderrun
			}
			j += copy(dst[j:], src[i:i+n+1])
			i += n + 1
		case n == -128:
			// No-op
		default:
			if j+1-n > len(dst) {
				return i, ErrOverrun
			}
			if i >= len(src) {
				return i, ErrUnderrun
			}
			b := src[i]
			i++
			for k := 0; k < 1-n; k++ {
				dst[j] = b
				j++
			}
		}
	}
	return i, nil
}

// DecodeRows decompresses rows of width bytes into dst, where row y is
// stored in the next lengths[y] bytes of src. Each row must decompress to
// exactly width bytes using exactly its stored length, otherwise the
// returned error wraps ErrRowLength. dst must hold len(lengths) rows.
func DecodeRows(dst []byte, width int, src []byte, lengths []uint16) error {
	var off int
	for y, n := range lengths {
		end := off + int(n)
		if end > len(src) {
			return fmt.Errorf("row %d: %w", y, ErrUnderrun)
		}
		used, err := Decode(dst[y*width:(y+1)*width], src[off:end])
		switch {
		case errors.Is(err, ErrUnderrun):
			return fmt.Errorf("row %d: %w: %w", y, ErrRowLength, err)
		case err != nil:
			return fmt.Errorf("row %d: %w", y, err)
		case used != int(n):
			return fmt.Errorf("row %d: %w: %d of %d bytes used", y, ErrRowLength, used, n)
		}
		off = end
	}
	return nil
}
