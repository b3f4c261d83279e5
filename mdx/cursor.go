package mdx

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// Encoding selects how text fields are decoded.
type Encoding int

const (
	ShiftJIS Encoding = iota
	ASCII
)

// ParseEncoding maps a config name to an Encoding. Unknown names fall back to Shift_JIS.
func ParseEncoding(name string) Encoding {
	switch name {
	case "ascii", "ASCII":
		return ASCII
	default:
		return ShiftJIS
	}
}

func (e Encoding) String() string {
	if e == ASCII {
		return "ascii"
	}
	return "shift_jis"
}

// Source is the whole MDX file. It is never modified after construction.
type Source struct {
	data []byte
}

func NewSource(data []byte) *Source {
	return &Source{data: data}
}

func (s *Source) Len() int { return len(s.data) }

func (s *Source) check(offset, size int) error {
	if offset < 0 || size < 0 || offset+size > len(s.data) {
		return errorf(OutOfBounds, -1, offset, "read of %d bytes past end (len=%d)", size, len(s.data))
	}
	return nil
}

func (s *Source) U8(offset int) (uint8, error) {
	if err := s.check(offset, 1); err != nil {
		return 0, err
	}
	return s.data[offset], nil
}

func (s *Source) I8(offset int) (int8, error) {
	v, err := s.U8(offset)
	return int8(v), err
}

func (s *Source) U16(offset int) (uint16, error) {
	if err := s.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s.data[offset:]), nil
}

func (s *Source) I16(offset int) (int16, error) {
	v, err := s.U16(offset)
	return int16(v), err
}

func (s *Source) U24(offset int) (uint32, error) {
	if err := s.check(offset, 3); err != nil {
		return 0, err
	}
	b := s.data[offset : offset+3]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

// Text decodes a fixed-length field. Trailing bytes after a NUL are ignored.
func (s *Source) Text(offset, length int, enc Encoding) (string, error) {
	if err := s.check(offset, length); err != nil {
		return "", err
	}
	raw := s.data[offset : offset+length]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return decodeText(raw, enc, offset)
}

// CString decodes a NUL-terminated string starting at offset. The
// terminator is searched for before limit (exclusive, clamped to the
// buffer); without one the string runs to limit.
func (s *Source) CString(offset, limit int, enc Encoding) (string, error) {
	if err := s.check(offset, 0); err != nil {
		return "", err
	}
	if limit > len(s.data) || limit < offset {
		limit = len(s.data)
	}
	raw := s.data[offset:limit]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return decodeText(raw, enc, offset)
}

func decodeText(raw []byte, enc Encoding, offset int) (string, error) {
	switch enc {
	case ASCII:
		for i, b := range raw {
			if b >= 0x80 {
				return "", errorf(EncodingError, -1, offset+i, "non-ASCII byte 0x%02x", b)
			}
		}
		return string(raw), nil
	default:
		out, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
		if err != nil {
			return "", wrapError(EncodingError, err, -1, offset, "shift_jis")
		}
		if bytes.ContainsRune(out, utf8.RuneError) {
			return "", errorf(EncodingError, -1, offset, "invalid shift_jis sequence")
		}
		return string(out), nil
	}
}

// Cursor reads sequentially inside the window [start, end) of a Source.
type Cursor struct {
	src *Source
	pos int
	end int

	// Track is attached to errors produced by this cursor.
	Track int
}

func (s *Source) Cursor(track, start, end int) *Cursor {
	if end > len(s.data) || end < 0 {
		end = len(s.data)
	}
	return &Cursor{src: s, pos: start, end: end, Track: track}
}

func (c *Cursor) Pos() int { return c.pos }

func (c *Cursor) End() int { return c.end }

func (c *Cursor) Seek(pos int) { c.pos = pos }

func (c *Cursor) Done() bool { return c.pos >= c.end }

func (c *Cursor) need(n int, what string) error {
	if c.pos < 0 || c.pos+n > c.end {
		return errorf(OutOfBounds, c.Track, c.pos, "unexpected end of track while reading %s", what)
	}
	return nil
}

func (c *Cursor) ReadU8(what string) (uint8, error) {
	if err := c.need(1, what); err != nil {
		return 0, err
	}
	v, err := c.src.U8(c.pos)
	if err != nil {
		return 0, err
	}
	c.pos++
	return v, nil
}

func (c *Cursor) ReadI16(what string) (int16, error) {
	if err := c.need(2, what); err != nil {
		return 0, err
	}
	v, err := c.src.I16(c.pos)
	if err != nil {
		return 0, err
	}
	c.pos += 2
	return v, nil
}
