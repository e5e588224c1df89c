/*
Package bigendian reads the fixed-width integers and length-prefixed
strings that make up Adobe brush and style library files.

Every function reads directly from the supplied io.Reader and advances it
by exactly the size of the value. If no byte of the value could be read
the error is io.EOF, if only some of it could be read the error is
io.ErrUnexpectedEOF. Nothing is ever zero-padded.
*/
package bigendian

import (
	"bytes"
	"encoding/binary"
	"io"

	"golang.org/x/text/encoding/unicode"
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	return err
}

// ReadUint8 reads a single byte.
func ReadUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a big-endian 16-bit unsigned integer.
func ReadUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// ReadUint32 reads a big-endian 32-bit unsigned integer.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// ReadUint64 reads a big-endian 64-bit unsigned integer.
func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// readN reads exactly n bytes. The buffer grows as data arrives so a
// corrupt length cannot force a large allocation up front.
func readN(r io.Reader, n int64) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	b := new(bytes.Buffer)
	if _, err := io.CopyN(b, r, n); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b.Bytes(), nil
}

// ReadBytes reads exactly n bytes. Unlike the integer readers a short
// read is always io.ErrUnexpectedEOF as the length was already known.
func ReadBytes(r io.Reader, n int64) ([]byte, error) {
	return readN(r, n)
}

// ReadPascalString reads a string prefixed with a one byte length.
func ReadPascalString(r io.Reader) ([]byte, error) {
	n, err := ReadUint8(r)
	if err != nil {
		return nil, err
	}
	return readN(r, int64(n))
}

// ReadLengthPrefixed reads a byte string prefixed with a 32-bit length.
func ReadLengthPrefixed(r io.Reader) ([]byte, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	return readN(r, int64(n))
}

// ReadUnicodeString reads a string stored as a 32-bit count of UTF-16
// code units followed by the big-endian code units themselves. Any
// trailing NUL characters are removed.
func ReadUnicodeString(r io.Reader) (string, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return "", err
	}
	b, err := readN(r, int64(n)<<1)
	if err != nil {
		return "", err
	}
	for len(b) >= 2 && b[len(b)-2] == 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-2]
	}
	s, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// NoEOF converts io.EOF into io.ErrUnexpectedEOF. It is used once the
// first byte of a record has been read and running out of data can no
// longer be a clean end.
func NoEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
