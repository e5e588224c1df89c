package bigendian

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIntegers(t *testing.T) {
	r := bytes.NewReader([]byte{
		0x7f,
		0x01, 0x02,
		0x01, 0x02, 0x03, 0x04,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	})

	u8, err := ReadUint8(r)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7f), u8)

	u16, err := ReadUint16(r)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), u16)

	u32, err := ReadUint32(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), u32)

	u64, err := ReadUint64(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	assert.Equal(t, 0, r.Len())
}

func TestReadIntegers_ShortRead(t *testing.T) {
	_, err := ReadUint16(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)

	_, err = ReadUint32(bytes.NewReader([]byte{0x00, 0x01}))
	assert.Equal(t, io.ErrUnexpectedEOF, err)

	_, err = ReadUint64(bytes.NewReader(make([]byte, 7)))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestReadPascalString(t *testing.T) {
	r := bytes.NewReader([]byte{3, 'a', 'b', 'c', 'd'})
	b, err := ReadPascalString(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), b)
	assert.Equal(t, 1, r.Len())

	_, err = ReadPascalString(bytes.NewReader([]byte{4, 'a'}))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestReadLengthPrefixed(t *testing.T) {
	b, err := ReadLengthPrefixed(bytes.NewReader([]byte{0, 0, 0, 2, 0xaa, 0xbb}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb}, b)

	b, err = ReadLengthPrefixed(bytes.NewReader([]byte{0, 0, 0, 0}))
	require.NoError(t, err)
	assert.Empty(t, b)

	// A huge declared length only fails once the data runs out
	_, err = ReadLengthPrefixed(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 1, 2, 3}))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestReadUnicodeString(t *testing.T) {
	r := bytes.NewReader([]byte{
		0, 0, 0, 4,
		0, 'B', 0, 'r', 0x00, 0xe9, 0, 0,
	})
	s, err := ReadUnicodeString(r)
	require.NoError(t, err)
	assert.Equal(t, "Bré", s)

	_, err = ReadUnicodeString(strings.NewReader("\x00\x00\x00\x02\x00A"))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestNoEOF(t *testing.T) {
	assert.Equal(t, io.ErrUnexpectedEOF, NoEOF(io.EOF))
	assert.Equal(t, io.ErrUnexpectedEOF, NoEOF(io.ErrUnexpectedEOF))
	assert.Nil(t, NoEOF(nil))
}
