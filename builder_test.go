package abr

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// builder assembles synthetic brush files.
type builder struct {
	bytes.Buffer
}

func (b *builder) put(v ...interface{}) *builder {
	for _, x := range v {
		_ = binary.Write(b, binary.BigEndian, x)
	}
	return b
}

func (b *builder) raw(s string) *builder {
	b.WriteString(s)
	return b
}

func (b *builder) unicode(s string) *builder {
	u := append(utf16.Encode([]rune(s)), 0)
	return b.put(uint32(len(u)), u)
}

func (b *builder) id(s string) *builder {
	if len(s) == 4 {
		return b.put(uint32(0)).raw(s)
	}
	return b.put(uint32(len(s))).raw(s)
}

func (b *builder) data(p []byte) *builder {
	b.put(uint32(len(p)))
	b.Write(p)
	return b
}

// rle compresses each row of width bytes from samples as a table of row
// lengths followed by the rows. Every row is stored as literal runs of
// up to 128 bytes.
func rle(samples []byte, width int) []byte {
	var lengths []uint16
	var rows []byte
	for off := 0; off < len(samples); off += width {
		row := samples[off : off+width]
		var c []byte
		for i := 0; i < len(row); i += 128 {
			j := i + 128
			if j > len(row) {
				j = len(row)
			}
			c = append(c, byte(j-i-1))
			c = append(c, row[i:j]...)
		}
		lengths = append(lengths, uint16(len(c)))
		rows = append(rows, c...)
	}
	b := new(builder)
	b.put(lengths)
	b.Write(rows)
	return b.Bytes()
}

func samples(width, height int, seed byte) []byte {
	s := make([]byte, width*height)
	for i := range s {
		s[i] = seed + byte(i)
	}
	return s
}

type abr1Brush struct {
	name       string
	width      uint32
	height     uint32
	depth      uint16
	compressed bool
	data       []byte
}

// abr1Record returns a complete sampled brush record for the given
// version.
func abr1Record(version uint16, br abr1Brush) []byte {
	body := new(builder)
	body.put(uint32(0), uint16(25))
	if version == 2 {
		body.unicode(br.name)
	}
	body.put(uint8(1))
	body.put([4]uint16{0, 0, uint16(br.height), uint16(br.width)})
	body.put([4]uint32{10, 20, 10 + br.height, 20 + br.width})
	body.put(br.depth)
	if br.compressed {
		body.put(uint8(1))
		body.Write(rle(br.data, int(br.width)))
	} else {
		body.put(uint8(0))
		body.Write(br.data)
	}

	rec := new(builder)
	rec.put(uint16(brushSampled), uint32(body.Len()))
	rec.Write(body.Bytes())
	return rec.Bytes()
}

func abr1File(version, count uint16, records ...[]byte) []byte {
	b := new(builder)
	b.put(version, count)
	for _, r := range records {
		b.Write(r)
	}
	return b.Bytes()
}

type abr6Brush struct {
	name       string
	width      int32
	height     int32
	depth      int32
	compressed bool
	data       []byte
	// Omit the channel list altogether
	noChannels bool
	// Extra channels appended after the first
	extra [][]byte
	// Replaces the first channel blob built from data
	channel []byte
}

func channelBlob(width int, data []byte, compressed bool) []byte {
	if compressed {
		return append([]byte{1}, rle(data, width)...)
	}
	return append([]byte{0}, data...)
}

// abr6Block returns a length-prefixed, padded sample block containing a
// brush stored under the object key.
func abr6Block(object string, br abr6Brush) []byte {
	fields := 3
	if br.name != "" {
		fields++
	}
	if br.depth != 0 {
		fields++
	}
	if br.noChannels {
		fields--
	}

	d := new(builder)
	d.put(uint32(16))
	d.unicode("").id("null").put(uint32(2))
	d.id("Vrsn").raw("long").put(int32(1))
	d.id(object).raw("Objc").unicode("Sampled Brush").id("sampledBrush").put(uint32(fields))
	if br.name != "" {
		d.id("Nm  ").raw("TEXT").unicode(br.name)
	}
	d.id("Wdth").raw("long").put(br.width)
	d.id("Hght").raw("long").put(br.height)
	if br.depth != 0 {
		d.id("Dpth").raw("long").put(br.depth)
	}
	if !br.noChannels {
		d.id("Chnl").raw("VlLs").put(uint32(1 + len(br.extra)))
		if br.channel != nil {
			d.raw("tdta").data(br.channel)
		} else {
			d.raw("tdta").data(channelBlob(int(br.width), br.data, br.compressed))
		}
		for _, e := range br.extra {
			d.raw("tdta").data(e)
		}
	}

	body := new(builder)
	body.put(uint8(36)).raw("5f1c6e2a-8d3b-4c5e-9f0a-1b2c3d4e5f60")
	body.Write(d.Bytes())

	blk := new(builder)
	blk.put(uint32(body.Len()))
	blk.Write(body.Bytes())
	for blk.Len()%4 != 0 {
		blk.WriteByte(0)
	}
	return blk.Bytes()
}

func abr6File(version, subversion uint16, blocks ...[]byte) []byte {
	var section []byte
	for _, blk := range blocks {
		section = append(section, blk...)
	}
	b := new(builder)
	b.put(version, subversion)
	// An unrelated resource that must be skipped
	b.raw("8BIM").raw("desc").put(uint32(6)).raw("abcdef")
	b.raw("8BIM").raw("samp").put(uint32(len(section)))
	b.Write(section)
	b.raw("8BIM").raw("patt").put(uint32(0))
	return b.Bytes()
}

func aslFile(blocks ...[]byte) []byte {
	var section []byte
	for _, blk := range blocks {
		section = append(section, blk...)
	}
	b := new(builder)
	b.put(uint16(2)).raw("8BSL").put(uint16(3), uint32(len(section)))
	b.Write(section)
	// Style descriptors follow the patterns
	b.put(uint32(16)).raw("trailing")
	return b.Bytes()
}
