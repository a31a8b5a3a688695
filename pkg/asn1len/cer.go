package asn1len

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

const (
	cerShortMax  = 127
	cerLongForm  = 0x80
	cerMaxOctets = 4
)

var (
	ErrIndefinite = fmt.Errorf("%w: indefinite CER length", types.ErrUnsupportedLength)
	ErrTooLong    = fmt.Errorf("%w: CER length exceeds %d octets", types.ErrUnsupportedLength, cerMaxOctets)
)

// cerOctets returns the minimal number of octets holding length
func cerOctets(length int) int {
	n := 1
	for v := uint64(length) >> 8; v != 0; v >>= 8 {
		n++
	}
	return n
}

// CERSize returns the number of octets used to encode length, including
// the leading octet of the long form
func CERSize(length int) (int, error) {
	if length < 0 {
		return 0, ErrNegativeLength
	}
	if length <= cerShortMax {
		return 1, nil
	}
	k := cerOctets(length)
	if k > cerMaxOctets {
		return 0, ErrTooLong
	}
	return 1 + k, nil
}

// AppendCER appends length as a definite CER length
func AppendCER(buf *bitbuf.Buffer, length int) error {
	size, err := CERSize(length)
	if err != nil {
		return err
	}
	if size == 1 {
		return buf.AppendBits(uint32(length), 8)
	}
	k := size - 1
	if err := buf.AppendBits(uint32(cerLongForm|k), 8); err != nil {
		return err
	}
	return buf.AppendBits(uint32(length), uint8(k*8))
}

// PrependCER writes length in front of the payload
func PrependCER(buf *bitbuf.Buffer, length int) error {
	size, err := CERSize(length)
	if err != nil {
		return err
	}
	if size == 1 {
		return buf.PrependBits(uint32(length), 8)
	}
	k := size - 1
	if buf.HeadroomBits() < size*8 {
		return bitbuf.ErrNoHeadroom
	}
	if err := buf.PrependBits(uint32(length), uint8(k*8)); err != nil {
		return err
	}
	return buf.PrependBits(uint32(cerLongForm|k), 8)
}

// DecodeCER reads a definite CER length at the cursor
func DecodeCER(c *bitbuf.Cursor) (int, error) {
	first, err := c.NextByte()
	if err != nil {
		return 0, err
	}
	if first&cerLongForm == 0 {
		return int(first), nil
	}

	k := first &^ cerLongForm
	switch {
	case k == 0:
		return 0, ErrIndefinite
	case k > cerMaxOctets:
		return 0, ErrTooLong
	}

	value, err := c.NextBits(k * 8)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

// DecodeCERBytes decodes a CER length at the start of p and returns the
// length and the number of octets it occupied
func DecodeCERBytes(p []byte) (int, int, error) {
	c := bitbuf.NewCursor(p)
	length, err := DecodeCER(c)
	if err != nil {
		return 0, 0, err
	}
	return length, c.ConsumedBytes(), nil
}
