package abr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedVersion is wrapped by an OpenError when the file
	// header is not one of the recognised versions.
	ErrUnsupportedVersion = errors.New("abr: unsupported version")
	// ErrFormat is returned when the structure of the file is wrong.
	ErrFormat = errors.New("abr: invalid format")
	// ErrRecordLength is returned when a record's declared length does
	// not match its contents.
	ErrRecordLength = errors.New("abr: record length mismatch")
	// ErrSampleSize is returned when a brush's dimensions need more
	// sample data than its record holds.
	ErrSampleSize = errors.New("abr: not enough sample data")
	// ErrDepth is returned for brushes that are not 8 bits per sample.
	ErrDepth = errors.New("abr: unsupported depth")
	// ErrCompression is returned for an unknown channel compression.
	ErrCompression = errors.New("abr: unsupported compression")
)

// An OpenError is returned by Open and OpenASL when the file header
// cannot be read or is not recognised. No brushes can be read from the
// file.
type OpenError struct {
	Version    uint16
	Subversion uint16
	Err        error
}

func (e *OpenError) Error() string {
	if errors.Is(e.Err, ErrUnsupportedVersion) {
		return fmt.Sprintf("%s %d.%d", e.Err, e.Version, e.Subversion)
	}
	return fmt.Sprintf("abr: reading header: %s", e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// A BrushError is returned by Brushes.Next when a single brush cannot be
// decoded. The stream has already been moved past the brush so Next can
// be called again for the following one.
type BrushError struct {
	// Index is the zero-based position of the brush record in the file
	Index int
	Err   error
}

func (e *BrushError) Error() string {
	return fmt.Sprintf("abr: brush %d: %s", e.Index, e.Err)
}

func (e *BrushError) Unwrap() error {
	return e.Err
}
