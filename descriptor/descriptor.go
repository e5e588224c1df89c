/*
Package descriptor parses the self-describing key/value structures that
the newer Adobe brush and style library files use to carry brush
metadata and sample data.

A descriptor is a class name, a class ID and a list of fields. Each field
is a key, a four character type and a value whose layout depends on the
type. Lists and nested descriptors make the structure recursive. All
integers are big-endian.

The parser understands every type it needs to stay aligned with the
data, so fields nobody asks for are parsed and kept rather than causing
an error. An unrecognised type cannot be skipped and is an error.
*/
package descriptor

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when a lookup path does not exist.
	ErrNotFound = errors.New("descriptor: field not found")
	// ErrType is returned when a value exists but is not of the
	// requested type.
	ErrType = errors.New("descriptor: unexpected field type")
	// ErrUnknownType is returned when a field carries a type that the
	// parser does not know how to read.
	ErrUnknownType = errors.New("descriptor: unknown type")
	// ErrCountMismatch is returned when a count cannot possibly fit in
	// the remaining bytes.
	ErrCountMismatch = errors.New("descriptor: count exceeds available data")
	// ErrVersion is returned by ReadVersioned when the descriptor
	// version is not 16.
	ErrVersion = errors.New("descriptor: unsupported version")
	// ErrNesting is returned when objects and lists are nested deeper
	// than MaxDepth.
	ErrNesting = errors.New("descriptor: nesting too deep")
)

// MaxDepth is the deepest nesting of objects and lists that Read accepts,
// counting the outermost descriptor.
const MaxDepth = 64

// Value is one of the value types in this package.
type Value interface {
	value()
}

// Integer is a 32-bit signed integer ("long").
type Integer int32

// LargeInteger is a 64-bit signed integer ("comp").
type LargeInteger int64

// Double is a 64-bit float ("doub").
type Double float64

// UnitFloat is a float with a four character unit ("UntF").
type UnitFloat struct {
	Unit  string
	Value float64
}

// Bool is a boolean ("bool").
type Bool bool

// String is text ("TEXT").
type String string

// Enum is an enumerated value ("enum").
type Enum struct {
	Type  string
	Value string
}

// Class is a class reference ("type" or "GlbC").
type Class struct {
	Name string
	ID   string
}

// Data is raw data ("tdta").
type Data []byte

// Alias is an opaque file alias or path ("alis" or "Pth ").
type Alias []byte

// List is an ordered list of values ("VlLs").
type List []Value

// ReferenceItem is one element of a Reference.
type ReferenceItem struct {
	// Form is the four character reference form, such as "prop" or "indx"
	Form  string
	Class Class
	// Key holds the property key for "prop" and the enum type for "Enmr"
	Key   string
	Value Value
}

// Reference is an object reference ("obj ").
type Reference []ReferenceItem

// Field is a keyed value inside a Descriptor.
type Field struct {
	Key   string
	Value Value
}

// Descriptor is an object ("Objc" or "GlbO") holding an ordered list of
// fields.
type Descriptor struct {
	Name   string
	Class  string
	Fields []Field
}

func (Integer) value()      {}
func (LargeInteger) value() {}
func (Double) value()       {}
func (UnitFloat) value()    {}
func (Bool) value()         {}
func (String) value()       {}
func (Enum) value()         {}
func (Class) value()        {}
func (Data) value()         {}
func (Alias) value()        {}
func (List) value()         {}
func (Reference) value()    {}
func (*Descriptor) value()  {}

// Get returns the value of the first field with the given key.
func (d *Descriptor) Get(key string) (Value, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Lookup descends through nested descriptors following path and returns
// the value found at the end of it.
func (d *Descriptor) Lookup(path ...string) (Value, error) {
	var v Value = d
	for i, key := range path {
		o, ok := v.(*Descriptor)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not an object", ErrType, strings.Join(path[:i], "/"))
		}
		if v, ok = o.Get(key); !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(path[:i+1], "/"))
		}
	}
	return v, nil
}

func typeError(path []string, v Value) error {
	return fmt.Errorf("%w: %s is %T", ErrType, strings.Join(path, "/"), v)
}

// Integer returns the integer found at path.
func (d *Descriptor) Integer(path ...string) (int64, error) {
	v, err := d.Lookup(path...)
	if err != nil {
		return 0, err
	}
	switch i := v.(type) {
	case Integer:
		return int64(i), nil
	case LargeInteger:
		return int64(i), nil
	default:
		return 0, typeError(path, v)
	}
}

// Text returns the text found at path.
func (d *Descriptor) Text(path ...string) (string, error) {
	v, err := d.Lookup(path...)
	if err != nil {
		return "", err
	}
	s, ok := v.(String)
	if !ok {
		return "", typeError(path, v)
	}
	return string(s), nil
}

// Object returns the nested descriptor found at path.
func (d *Descriptor) Object(path ...string) (*Descriptor, error) {
	v, err := d.Lookup(path...)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*Descriptor)
	if !ok {
		return nil, typeError(path, v)
	}
	return o, nil
}

// List returns the list found at path.
func (d *Descriptor) List(path ...string) (List, error) {
	v, err := d.Lookup(path...)
	if err != nil {
		return nil, err
	}
	l, ok := v.(List)
	if !ok {
		return nil, typeError(path, v)
	}
	return l, nil
}

// Read parses a descriptor from r. The descriptor, including everything
// nested inside it, must fit in size bytes; reading past that point is
// treated as truncated data.
func Read(r io.Reader, size int64) (*Descriptor, error) {
	d := decoder{r: &io.LimitedReader{R: r, N: size}}
	return d.readDescriptor()
}

// ReadVersioned reads the 32-bit descriptor version that precedes a
// descriptor in a file, checks it, then parses the descriptor. size
// includes the version.
func ReadVersioned(r io.Reader, size int64) (*Descriptor, error) {
	d := decoder{r: &io.LimitedReader{R: r, N: size}}
	version, err := d.uint32()
	if err != nil {
		return nil, err
	}
	if version != 16 {
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}
	return d.readDescriptor()
}
