// Package binutil provides bounds-checked little-endian readers over a
// byte slice. Every higher-level decoder in this module funnels its
// field reads through a Cursor so that out-of-range access is checked
// exactly once, in one place.
package binutil

import (
	"encoding/binary"

	"github.com/TalentFormula/msdoc/ooxerr"
)

// Cursor reads sequentially from a borrowed byte slice.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor wraps data for sequential reads starting at offset 0.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.data) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.data) - c.pos }

// Seek moves the cursor to an absolute offset.
func (c *Cursor) Seek(offset int) error {
	if offset < 0 || offset > len(c.data) {
		return ooxerr.New(ooxerr.KindInsufficientData, "seek offset %d out of range [0,%d]", offset, len(c.data))
	}
	c.pos = offset
	return nil
}

func (c *Cursor) need(n int) error {
	if c.pos+n > len(c.data) {
		return ooxerr.InsufficientData(n, len(c.data)-c.pos)
	}
	return nil
}

// Bytes reads n raw bytes and advances the cursor.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// PeekBytes reads n raw bytes without advancing the cursor.
func (c *Cursor) PeekBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	return c.data[c.pos : c.pos+n], nil
}

func (c *Cursor) U8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.data[c.pos]
	c.pos++
	return v, nil
}

func (c *Cursor) I16() (int16, error) {
	v, err := c.U16()
	return int16(v), err
}

func (c *Cursor) U16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

func (c *Cursor) U32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *Cursor) U64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v, nil
}

// String reads n bytes and returns them verbatim as a string (caller
// decodes codepage/UTF-16 as appropriate).
func (c *Cursor) String(n int) (string, error) {
	b, err := c.Bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Free-function helpers for callers that already hold a slice and an
// offset and don't want to allocate a Cursor (mirrors the original's
// read_u16_le/read_u32_le style).

func ReadU8(data []byte, offset int) (uint8, error) {
	if offset < 0 || offset+1 > len(data) {
		return 0, ooxerr.InsufficientData(1, len(data)-offset)
	}
	return data[offset], nil
}

func ReadU16LE(data []byte, offset int) (uint16, error) {
	if offset < 0 || offset+2 > len(data) {
		return 0, ooxerr.InsufficientData(2, len(data)-offset)
	}
	return binary.LittleEndian.Uint16(data[offset:]), nil
}

func ReadI16LE(data []byte, offset int) (int16, error) {
	v, err := ReadU16LE(data, offset)
	return int16(v), err
}

func ReadU32LE(data []byte, offset int) (uint32, error) {
	if offset < 0 || offset+4 > len(data) {
		return 0, ooxerr.InsufficientData(4, len(data)-offset)
	}
	return binary.LittleEndian.Uint32(data[offset:]), nil
}
