package descriptor

import (
	"fmt"
	"io"
	"math"

	"github.com/bodgit/abr/bigendian"
)

const (
	// Smallest possible encoding of a field; key length, key, type
	minFieldSize = 4 + 1 + 4
	// Smallest possible encoding of a list item; type, bool value
	minItemSize = 4 + 1
)

type decoder struct {
	r     *io.LimitedReader
	depth int
}

// enter is called before reading a nested object or list and must be
// paired with leave.
func (d *decoder) enter() error {
	if d.depth >= MaxDepth {
		return fmt.Errorf("%w: more than %d levels", ErrNesting, MaxDepth)
	}
	d.depth++
	return nil
}

func (d *decoder) leave() {
	d.depth--
}

func (d *decoder) uint8() (uint8, error) {
	v, err := bigendian.ReadUint8(d.r)
	return v, bigendian.NoEOF(err)
}

func (d *decoder) uint32() (uint32, error) {
	v, err := bigendian.ReadUint32(d.r)
	return v, bigendian.NoEOF(err)
}

func (d *decoder) uint64() (uint64, error) {
	v, err := bigendian.ReadUint64(d.r)
	return v, bigendian.NoEOF(err)
}

func (d *decoder) ostype() (string, error) {
	b, err := bigendian.ReadBytes(d.r, 4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) unicode() (string, error) {
	s, err := bigendian.ReadUnicodeString(d.r)
	return s, bigendian.NoEOF(err)
}

func (d *decoder) data() ([]byte, error) {
	b, err := bigendian.ReadLengthPrefixed(d.r)
	return b, bigendian.NoEOF(err)
}

// id reads a key or class ID. A zero length means a four character ID
// follows.
func (d *decoder) id() (string, error) {
	n, err := d.uint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		n = 4
	}
	b, err := bigendian.ReadBytes(d.r, int64(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) count(min int64) (int, error) {
	n, err := d.uint32()
	if err != nil {
		return 0, err
	}
	if int64(n)*min > d.r.N {
		return 0, fmt.Errorf("%w: %d entries in %d bytes", ErrCountMismatch, n, d.r.N)
	}
	return int(n), nil
}

func (d *decoder) class() (Class, error) {
	var c Class
	var err error
	if c.Name, err = d.unicode(); err != nil {
		return c, err
	}
	c.ID, err = d.id()
	return c, err
}

func (d *decoder) readDescriptor() (*Descriptor, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	var err error
	o := new(Descriptor)
	if o.Name, err = d.unicode(); err != nil {
		return nil, err
	}
	if o.Class, err = d.id(); err != nil {
		return nil, err
	}
	n, err := d.count(minFieldSize)
	if err != nil {
		return nil, err
	}
	o.Fields = make([]Field, 0, n)
	for i := 0; i < n; i++ {
		key, err := d.id()
		if err != nil {
			return nil, err
		}
		t, err := d.ostype()
		if err != nil {
			return nil, fmt.Errorf("descriptor: field %q: %w", key, err)
		}
		v, err := d.readValue(t)
		if err != nil {
			return nil, fmt.Errorf("descriptor: field %q: %w", key, err)
		}
		o.Fields = append(o.Fields, Field{Key: key, Value: v})
	}
	return o, nil
}

func (d *decoder) readValue(t string) (Value, error) {
	switch t {
	case "Objc", "GlbO":
		return d.readDescriptor()
	case "VlLs":
		return d.readList()
	case "obj ":
		return d.readReference()
	case "long":
		v, err := d.uint32()
		return Integer(int32(v)), err
	case "comp":
		v, err := d.uint64()
		return LargeInteger(int64(v)), err
	case "doub":
		v, err := d.uint64()
		return Double(math.Float64frombits(v)), err
	case "UntF":
		unit, err := d.ostype()
		if err != nil {
			return nil, err
		}
		v, err := d.uint64()
		return UnitFloat{Unit: unit, Value: math.Float64frombits(v)}, err
	case "bool":
		v, err := d.uint8()
		return Bool(v != 0), err
	case "TEXT":
		s, err := d.unicode()
		return String(s), err
	case "enum":
		var e Enum
		var err error
		if e.Type, err = d.id(); err != nil {
			return nil, err
		}
		e.Value, err = d.id()
		return e, err
	case "type", "GlbC":
		return d.class()
	case "tdta":
		b, err := d.data()
		return Data(b), err
	case "alis", "Pth ":
		b, err := d.data()
		return Alias(b), err
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, t)
	}
}

func (d *decoder) readList() (List, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	n, err := d.count(minItemSize)
	if err != nil {
		return nil, err
	}
	l := make(List, 0, n)
	for i := 0; i < n; i++ {
		t, err := d.ostype()
		if err != nil {
			return nil, err
		}
		v, err := d.readValue(t)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		l = append(l, v)
	}
	return l, nil
}

func (d *decoder) readReference() (Reference, error) {
	n, err := d.count(minItemSize)
	if err != nil {
		return nil, err
	}
	ref := make(Reference, 0, n)
	for i := 0; i < n; i++ {
		var item ReferenceItem
		if item.Form, err = d.ostype(); err != nil {
			return nil, err
		}
		switch item.Form {
		case "prop":
			if item.Class, err = d.class(); err == nil {
				item.Key, err = d.id()
			}
		case "Clss":
			item.Class, err = d.class()
		case "Enmr":
			if item.Class, err = d.class(); err != nil {
				break
			}
			if item.Key, err = d.id(); err != nil {
				break
			}
			var s string
			s, err = d.id()
			item.Value = String(s)
		case "rele":
			if item.Class, err = d.class(); err != nil {
				break
			}
			var v uint32
			v, err = d.uint32()
			item.Value = Integer(int32(v))
		case "Idnt", "indx":
			var v uint32
			v, err = d.uint32()
			item.Value = Integer(int32(v))
		case "name":
			if item.Class, err = d.class(); err != nil {
				break
			}
			var s string
			s, err = d.unicode()
			item.Value = String(s)
		default:
			return nil, fmt.Errorf("%w %q in reference", ErrUnknownType, item.Form)
		}
		if err != nil {
			return nil, err
		}
		ref = append(ref, item)
	}
	return ref, nil
}
