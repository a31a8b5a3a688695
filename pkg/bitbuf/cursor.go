package bitbuf

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/types"
)

var ErrShortRead = fmt.Errorf("%w: not enough bits left", types.ErrMalformedInput)

// NextBits extracts n (1..32) bits starting at byte pos, where bitsLeft
// (1..8) is the number of unread bits remaining in p[pos]. It returns the
// value together with the advanced position; when a byte is exhausted the
// position moves to the next byte with bitsLeft reset to 8.
func NextBits(p []byte, pos int, bitsLeft uint8, n uint8) (uint32, int, uint8, error) {
	if n == 0 || n > 32 {
		return 0, pos, bitsLeft, ErrBitCount
	}
	if bitsLeft == 0 || bitsLeft > bitsPerByte {
		return 0, pos, bitsLeft, fmt.Errorf("%w: bit offset %d", types.ErrInvalidArgument, bitsLeft)
	}
	if pos < 0 || (len(p)-pos)*bitsPerByte-(bitsPerByte-int(bitsLeft)) < int(n) {
		return 0, pos, bitsLeft, ErrShortRead
	}

	var (
		value   uint32
		pending = n
	)
	for pending > 0 {
		var (
			take  = min(pending, bitsLeft)
			shift = bitsLeft - take
			chunk = (p[pos] >> shift) & lowMask(take)
		)
		value = value<<take | uint32(chunk)
		bitsLeft -= take
		pending -= take
		if bitsLeft == 0 {
			pos++
			bitsLeft = bitsPerByte
		}
	}
	return value, pos, bitsLeft, nil
}

// Cursor reads bit fields sequentially from a byte slice
type Cursor struct {
	data     []byte
	pos      int
	bitsLeft uint8
}

// NewCursor creates a cursor positioned at the first bit of data
func NewCursor(data []byte) *Cursor {
	return &Cursor{
		data:     data,
		bitsLeft: bitsPerByte,
	}
}

// NextBits reads the next n (1..32) bits
func (c *Cursor) NextBits(n uint8) (uint32, error) {
	value, pos, bitsLeft, err := NextBits(c.data, c.pos, c.bitsLeft, n)
	if err != nil {
		return 0, err
	}
	c.pos = pos
	c.bitsLeft = bitsLeft
	return value, nil
}

// NextByte reads the next 8 bits
func (c *Cursor) NextByte() (byte, error) {
	v, err := c.NextBits(8)
	return byte(v), err
}

// NextBytes reads n octets starting at the current bit offset
func (c *Cursor) NextBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrByteCount
	}
	if c.Aligned() {
		if c.pos+n > len(c.data) {
			return nil, ErrShortRead
		}
		out := make([]byte, n)
		copy(out, c.data[c.pos:c.pos+n])
		c.pos += n
		return out, nil
	}
	out := make([]byte, n)
	for i := range out {
		b, err := c.NextByte()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// SkipToOctet advances to the next byte boundary
func (c *Cursor) SkipToOctet() {
	if c.bitsLeft != bitsPerByte {
		c.pos++
		c.bitsLeft = bitsPerByte
	}
}

// Aligned reports whether the cursor sits on a byte boundary
func (c *Cursor) Aligned() bool {
	return c.bitsLeft == bitsPerByte
}

// Pos returns the current byte position and the unread bits in that byte
func (c *Cursor) Pos() (int, uint8) {
	return c.pos, c.bitsLeft
}

// BitsRead returns the number of bits consumed so far
func (c *Cursor) BitsRead() int {
	return c.pos*bitsPerByte + (bitsPerByte - int(c.bitsLeft))
}

// ConsumedBytes returns the number of bytes touched so far, counting a
// partially read byte as consumed
func (c *Cursor) ConsumedBytes() int {
	if c.bitsLeft != bitsPerByte {
		return c.pos + 1
	}
	return c.pos
}

// Remaining returns the number of unread bits
func (c *Cursor) Remaining() int {
	return (len(c.data)-c.pos)*bitsPerByte - (bitsPerByte - int(c.bitsLeft))
}

// Skip advances past n bits
func (c *Cursor) Skip(n int) error {
	if n < 0 {
		return ErrByteCount
	}
	if n > c.Remaining() {
		return ErrShortRead
	}
	consumed := bitsPerByte - int(c.bitsLeft) + n
	c.pos += consumed / bitsPerByte
	c.bitsLeft = uint8(bitsPerByte - consumed%bitsPerByte)
	return nil
}
