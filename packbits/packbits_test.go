package packbits

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encode is a straightforward PackBits encoder used to produce reference
// input for the decoder.
func encode(src []byte) []byte {
	var dst []byte
	for i := 0; i < len(src); {
		// Look for a run of at least two identical bytes
		run := 1
		for i+run < len(src) && run < 128 && src[i+run] == src[i] {
			run++
		}
		if run > 1 {
			dst = append(dst, byte(int8(1-run)), src[i])
			i += run
			continue
		}
		// Otherwise gather literals until the next run starts
		start := i
		for i < len(src) && i-start < 128 {
			if i+1 < len(src) && src[i] == src[i+1] {
				break
			}
			i++
		}
		dst = append(dst, byte(i-start-1))
		dst = append(dst, src[start:i]...)
	}
	return dst
}

func TestDecode_RoundTrip(t *testing.T) {
	tables := map[string][]byte{
		"empty":    {},
		"single":   {0x42},
		"literals": {1, 2, 3, 4, 5, 6, 7},
		"run":      bytes.Repeat([]byte{0xff}, 300),
		"mixed":    append(append([]byte{1, 2, 3}, bytes.Repeat([]byte{9}, 17)...), 4, 5, 5, 6),
		"long": func() []byte {
			b := make([]byte, 1000)
			for i := range b {
				b[i] = byte(i * 7 / 5)
			}
			return b
		}(),
	}
	for name, row := range tables {
		t.Run(name, func(t *testing.T) {
			src := encode(row)
			dst := make([]byte, len(row))
			n, err := Decode(dst, src)
			require.NoError(t, err)
			assert.Equal(t, len(src), n)
			assert.Equal(t, row, dst)
		})
	}
}

func TestDecode_NoOp(t *testing.T) {
	dst := make([]byte, 3)
	n, err := Decode(dst, []byte{0x80, 0xfe, 0x07, 0x80})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{7, 7, 7}, dst)
}

func TestDecode_StopsAtRowEnd(t *testing.T) {
	dst := make([]byte, 2)
	n, err := Decode(dst, []byte{0x01, 0xaa, 0xbb, 0x00, 0xcc})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0xaa, 0xbb}, dst)
}

func TestDecode_Errors(t *testing.T) {
	tables := []struct {
		name string
		size int
		src  []byte
		err  error
	}{
		{"empty input", 1, nil, ErrUnderrun},
		{"short literal", 3, []byte{0x02, 0x01}, ErrUnderrun},
		{"missing repeat byte", 2, []byte{0xff}, ErrUnderrun},
		{"literal overshoot", 2, []byte{0x02, 1, 2, 3}, ErrOverrun},
		{"repeat overshoot", 2, []byte{0xfd, 0x01}, ErrOverrun},
		{"too few runs", 4, []byte{0xff, 0x01}, ErrUnderrun},
	}
	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := Decode(make([]byte, table.size), table.src)
			assert.Equal(t, table.err, err)
		})
	}
}

func TestDecodeRows(t *testing.T) {
	rows := [][]byte{
		{1, 1, 1, 1},
		{1, 2, 3, 4},
		{0, 0, 9, 9},
	}
	var src, want []byte
	var lengths []uint16
	for _, row := range rows {
		c := encode(row)
		src = append(src, c...)
		lengths = append(lengths, uint16(len(c)))
		want = append(want, row...)
	}
	dst := make([]byte, len(want))
	require.NoError(t, DecodeRows(dst, 4, src, lengths))
	assert.Equal(t, want, dst)

	// Bytes past the last row are left alone
	require.NoError(t, DecodeRows(dst, 4, append(src, 0x00, 0x01), lengths))

	err := DecodeRows(make([]byte, 16), 4, src, append(lengths, 2))
	assert.ErrorIs(t, err, ErrUnderrun)
}

func TestDecodeRows_RowLength(t *testing.T) {
	// Two rows of two literals, three bytes each
	src := []byte{0x01, 1, 2, 0x01, 3, 4}

	tables := []struct {
		name    string
		lengths []uint16
		err     error
	}{
		{"short row", []uint16{1, 5}, ErrUnderrun},
		{"long row", []uint16{5, 1}, nil},
		{"unused byte", []uint16{4, 2}, nil},
	}
	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			err := DecodeRows(make([]byte, 4), 2, src, table.lengths)
			assert.ErrorIs(t, err, ErrRowLength)
			if table.err != nil {
				assert.ErrorIs(t, err, table.err)
			}
		})
	}

	err := DecodeRows(make([]byte, 4), 2, []byte{0x02, 1, 2, 3, 0x01, 3, 4}, []uint16{4, 3})
	assert.ErrorIs(t, err, ErrOverrun)
	assert.NotErrorIs(t, err, ErrRowLength)
}
