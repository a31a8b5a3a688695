// Package bitbuf provides the bit-granular byte buffer used by every codec
// layer.
//
// A Buffer is one fixed allocation split into headroom, payload and tailroom.
// Inner layers append their bits at the tail; outer layers prepend their
// headers into the headroom, so a message is built innermost first and no
// byte is ever moved. Partially filled bytes at either end are tracked with
// two counters:
//
//	headSpaceBits  unused most-significant bits of the first payload byte
//	tailBitsLeft   free bits of the byte under the tail cursor (8 = free byte)
//
// Bits are MSB first. A Buffer never grows: running out of head or tail room
// is reported as an error wrapping types.ErrInsufficientRoom.
//
// Buffer is NOT safe for concurrent use.
package bitbuf

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"avaneesh/qcoder-go/pkg/types"
)

const bitsPerByte = 8

var (
	ErrBadAllocation   = fmt.Errorf("%w: size must be non-zero and larger than headroom", types.ErrInvalidArgument)
	ErrBitCount        = fmt.Errorf("%w: bit count must be between 1 and 32", types.ErrInvalidArgument)
	ErrHeadspaceInUse  = fmt.Errorf("%w: headspace already reserved or payload present", types.ErrInvalidArgument)
	ErrByteCount       = fmt.Errorf("%w: negative byte count", types.ErrInvalidArgument)
	ErrNotAligned      = fmt.Errorf("%w: buffer is not byte aligned", types.ErrInvalidArgument)
	ErrMisalignedMerge = fmt.Errorf("%w: fractional bytes do not complement each other", types.ErrInvalidArgument)
	ErrNoTailroom      = fmt.Errorf("%w: not enough tailroom", types.ErrInsufficientRoom)
	ErrNoHeadroom      = fmt.Errorf("%w: not enough headroom", types.ErrInsufficientRoom)
	ErrPastTail        = fmt.Errorf("%w: read past end of payload", types.ErrMalformedInput)
)

// Buffer is a fixed-capacity bit buffer with head and tail room
type Buffer struct {
	buf      []byte
	headroom int // initial headroom, restored by Purge

	data int // payload start
	tail int // byte under the append cursor

	headSpaceBits uint8
	tailBitsLeft  uint8
}

// Allocate creates a zeroed buffer of size bytes whose payload starts
// headroom bytes in.
func Allocate(size, headroom int) (*Buffer, error) {
	if size <= 0 || headroom < 0 || headroom >= size {
		return nil, ErrBadAllocation
	}
	return &Buffer{
		buf:          make([]byte, size),
		headroom:     headroom,
		data:         headroom,
		tail:         headroom,
		tailBitsLeft: bitsPerByte,
	}, nil
}

// Size returns the usable size of the allocation
func (b *Buffer) Size() int {
	return len(b.buf)
}

// Purge zeroes the allocation and resets the cursors to the initial headroom
func (b *Buffer) Purge() {
	clear(b.buf)
	b.data = b.headroom
	b.tail = b.headroom
	b.headSpaceBits = 0
	b.tailBitsLeft = bitsPerByte
}

// Load purges the buffer and appends p, ready for decoding
func (b *Buffer) Load(p []byte) error {
	b.Purge()
	return b.AppendBytes(p)
}

// ReserveHeadspace marks the first nBits of an empty buffer as unused
// leading bits. They stay zero so an outer header can later be OR-merged
// over them.
func (b *Buffer) ReserveHeadspace(nBits uint8) error {
	if nBits > bitsPerByte {
		return ErrBitCount
	}
	if b.headSpaceBits != 0 || b.BitLength() != 0 || b.tailBitsLeft != bitsPerByte {
		return ErrHeadspaceInUse
	}
	if nBits == 0 {
		return nil
	}
	if b.tail >= len(b.buf) {
		return ErrNoTailroom
	}
	b.buf[b.tail] = 0
	b.headSpaceBits = nBits
	b.tailBitsLeft = bitsPerByte - nBits
	if b.tailBitsLeft == 0 {
		b.tail++
		b.tailBitsLeft = bitsPerByte
	}
	return nil
}

// lowMask returns a byte with the low n bits set
func lowMask(n uint8) byte {
	return 0xFF >> (bitsPerByte - n)
}

// tailroomBits returns how many bits can still be appended
func (b *Buffer) tailroomBits() int {
	free := (len(b.buf) - b.tail) * bitsPerByte
	if free == 0 {
		return 0
	}
	return free - (bitsPerByte - int(b.tailBitsLeft))
}

// AppendBits appends the low nBits of value, most significant bit first
func (b *Buffer) AppendBits(value uint32, nBits uint8) error {
	if nBits == 0 || nBits > 32 {
		return ErrBitCount
	}
	if int(nBits) > b.tailroomBits() {
		return ErrNoTailroom
	}

	// Fast path: a whole byte onto a free tail byte
	if nBits == bitsPerByte && b.tailBitsLeft == bitsPerByte {
		b.buf[b.tail] = byte(value)
		b.tail++
		return nil
	}

	if nBits < 32 {
		value &= (1 << nBits) - 1
	}

	pending := nBits
	for pending > 0 {
		if b.tailBitsLeft == bitsPerByte {
			b.buf[b.tail] = 0
		}
		var (
			n     = min(pending, b.tailBitsLeft)
			chunk = byte(value>>(pending-n)) & lowMask(n)
		)
		b.buf[b.tail] |= chunk << (b.tailBitsLeft - n)
		b.tailBitsLeft -= n
		pending -= n
		if b.tailBitsLeft == 0 {
			b.tail++
			b.tailBitsLeft = bitsPerByte
		}
	}
	return nil
}

// AppendBytes appends p. A byte-aligned tail takes a block copy, otherwise
// the bytes are packed in 32-bit big-endian chunks.
func (b *Buffer) AppendBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if len(p)*bitsPerByte > b.tailroomBits() {
		return ErrNoTailroom
	}

	if b.tailBitsLeft == bitsPerByte {
		copy(b.buf[b.tail:], p)
		b.tail += len(p)
		return nil
	}

	for len(p) >= 4 {
		if err := b.AppendBits(binary.BigEndian.Uint32(p), 32); err != nil {
			return err
		}
		p = p[4:]
	}
	if len(p) > 0 {
		var value uint32
		for _, c := range p {
			value = value<<8 | uint32(c)
		}
		return b.AppendBits(value, uint8(len(p)*bitsPerByte))
	}
	return nil
}

// PrependBits writes the low nBits of value immediately in front of the
// payload, consuming headroom from the back. Headers are therefore
// prepended innermost first.
func (b *Buffer) PrependBits(value uint32, nBits uint8) error {
	if nBits == 0 || nBits > 32 {
		return ErrBitCount
	}
	if int(nBits) > b.HeadroomBits() {
		return ErrNoHeadroom
	}

	pending := nBits
	for pending > 0 {
		if b.headSpaceBits == 0 {
			b.data--
			b.buf[b.data] = 0
			b.headSpaceBits = bitsPerByte
		}
		var (
			used  = bitsPerByte - b.headSpaceBits
			n     = min(pending, b.headSpaceBits)
			chunk = byte(value) & lowMask(n)
		)
		b.buf[b.data] |= chunk << used
		value >>= n
		pending -= n
		b.headSpaceBits -= n
	}
	return nil
}

// AppendByteRegion reserves n bytes at the tail and returns them for the
// caller to fill
func (b *Buffer) AppendByteRegion(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrByteCount
	}
	if b.tailBitsLeft != bitsPerByte {
		return nil, ErrNotAligned
	}
	if b.tail+n > len(b.buf) {
		return nil, ErrNoTailroom
	}
	region := b.buf[b.tail : b.tail+n]
	clear(region)
	b.tail += n
	return region, nil
}

// PrependByteRegion moves the payload start n bytes back and returns the
// new front for the caller to fill
func (b *Buffer) PrependByteRegion(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrByteCount
	}
	if b.headSpaceBits != 0 {
		return nil, ErrNotAligned
	}
	if b.data-n < 0 {
		return nil, ErrNoHeadroom
	}
	b.data -= n
	region := b.buf[b.data : b.data+n]
	clear(region)
	return region, nil
}

// ConsumeFront removes n whole bytes from the front of the payload and
// returns them. The returned slice aliases the buffer.
func (b *Buffer) ConsumeFront(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrByteCount
	}
	if b.data+n > b.tail {
		return nil, ErrPastTail
	}
	front := b.buf[b.data : b.data+n]
	b.data += n
	if n > 0 {
		b.headSpaceBits = 0
	}
	return front, nil
}

// Merge appends the payload of src onto dst. Either both sides meet on a
// byte boundary, or dst's free tail bits exactly complement src's unused
// leading bits and the shared byte is OR-merged.
func Merge(dst, src *Buffer) error {
	if src.BitLength() == 0 && src.headSpaceBits == 0 {
		return nil
	}

	srcBytes := src.ByteLength()
	aligned := dst.tailBitsLeft == bitsPerByte && src.headSpaceBits == 0
	complementary := dst.tailBitsLeft != bitsPerByte && dst.tailBitsLeft+src.headSpaceBits == bitsPerByte
	if !aligned && !complementary {
		return ErrMisalignedMerge
	}
	if dst.tail+srcBytes > len(dst.buf) {
		return ErrNoTailroom
	}

	if aligned {
		copy(dst.buf[dst.tail:], src.buf[src.data:src.data+srcBytes])
		dst.tail += src.tail - src.data
		dst.tailBitsLeft = src.tailBitsLeft
		return nil
	}

	dst.buf[dst.tail] |= src.buf[src.data]
	if src.tail == src.data {
		// src was a single partial byte
		dst.tailBitsLeft = src.tailBitsLeft
		return nil
	}
	dst.tail++
	copy(dst.buf[dst.tail:], src.buf[src.data+1:src.data+srcBytes])
	dst.tail += src.tail - src.data - 1
	dst.tailBitsLeft = src.tailBitsLeft
	return nil
}

// PadToEvenOctet appends zero bits until the bit length is a multiple of 8
func (b *Buffer) PadToEvenOctet() error {
	pad := (bitsPerByte - b.BitLength()%bitsPerByte) % bitsPerByte
	if pad == 0 {
		return nil
	}
	return b.AppendBits(0, uint8(pad))
}

// HeadroomBytes returns the number of whole free bytes before the payload
func (b *Buffer) HeadroomBytes() int {
	return b.data
}

// HeadroomBits returns the number of bits that can still be prepended
func (b *Buffer) HeadroomBits() int {
	return b.data*bitsPerByte + int(b.headSpaceBits)
}

// TailroomBytes returns the number of whole free bytes after the payload
func (b *Buffer) TailroomBytes() int {
	room := len(b.buf) - b.tail
	if b.tailBitsLeft != bitsPerByte {
		room--
	}
	return room
}

// ByteLength returns the number of bytes spanned by the payload, counting
// partial bytes at either end as whole bytes
func (b *Buffer) ByteLength() int {
	n := b.tail - b.data
	if b.tailBitsLeft != bitsPerByte {
		n++
	}
	return n
}

// BitLength returns the number of payload bits actually written
func (b *Buffer) BitLength() int {
	return (b.tail-b.data)*bitsPerByte + (bitsPerByte - int(b.tailBitsLeft)) - int(b.headSpaceBits)
}

// IsByteAligned reports whether the payload starts and ends on byte boundaries
func (b *Buffer) IsByteAligned() bool {
	return b.headSpaceBits == 0 && b.tailBitsLeft == bitsPerByte
}

// HeadSpaceBits returns the unused leading bits of the first payload byte
func (b *Buffer) HeadSpaceBits() uint8 {
	return b.headSpaceBits
}

// TailBitsLeft returns the free bits of the byte under the tail cursor
func (b *Buffer) TailBitsLeft() uint8 {
	return b.tailBitsLeft
}

// Bytes returns the payload bytes. The slice aliases the buffer and is
// only valid until the next mutation.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.data : b.data+b.ByteLength()]
}

// CountSetBits returns the number of one bits in the payload
func (b *Buffer) CountSetBits() int {
	count := 0
	for _, c := range b.Bytes() {
		count += bits.OnesCount8(c)
	}
	return count
}

// String returns a diagnostic summary of the cursors
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer{size=%d, head=%d, len=%d bytes/%d bits, tailroom=%d, headSpace=%d, tailBitsLeft=%d}",
		len(b.buf), b.data, b.ByteLength(), b.BitLength(), b.TailroomBytes(), b.headSpaceBits, b.tailBitsLeft)
}
