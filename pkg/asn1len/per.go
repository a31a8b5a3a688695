// Package asn1len encodes and decodes ASN.1 length determinants.
//
// Two forms are supported: the PER unconstrained length (X.691 11.9.4.2)
// used inside J2735 and WSMP, and the CER/DER definite length used by the
// IEEE 1609.2 security header. Lengths can be appended at the tail of a
// bitbuf.Buffer or prepended into its headroom.
package asn1len

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

const (
	perShortMax   = 127
	perLongMax    = 16383
	perLongPrefix = 0x8000
)

// ErrFragmented is returned for lengths that need PER fragmentation
var ErrFragmented = fmt.Errorf("%w: fragmented PER length", types.ErrUnsupportedLength)

var ErrNegativeLength = fmt.Errorf("%w: negative length", types.ErrInvalidArgument)

// PERSize returns the number of octets used to encode length
func PERSize(length int) (int, error) {
	switch {
	case length < 0:
		return 0, ErrNegativeLength
	case length <= perShortMax:
		return 1, nil
	case length <= perLongMax:
		return 2, nil
	default:
		return 0, ErrFragmented
	}
}

// AppendPER appends length as a PER unconstrained length determinant
func AppendPER(buf *bitbuf.Buffer, length int) error {
	size, err := PERSize(length)
	if err != nil {
		return err
	}
	if size == 1 {
		return buf.AppendBits(uint32(length), 8)
	}
	return buf.AppendBits(uint32(perLongPrefix|length), 16)
}

// PrependPER writes length in front of the payload
func PrependPER(buf *bitbuf.Buffer, length int) error {
	size, err := PERSize(length)
	if err != nil {
		return err
	}
	if size == 1 {
		return buf.PrependBits(uint32(length), 8)
	}
	return buf.PrependBits(uint32(perLongPrefix|length), 16)
}

// DecodePER reads a PER unconstrained length determinant at the cursor
func DecodePER(c *bitbuf.Cursor) (int, error) {
	first, err := c.NextByte()
	if err != nil {
		return 0, err
	}

	// 0xxxxxxx: 0..127
	if first&0x80 == 0 {
		return int(first), nil
	}

	// 10xxxxxx xxxxxxxx: 128..16383
	if first&0xC0 == 0x80 {
		second, err := c.NextByte()
		if err != nil {
			return 0, err
		}
		return int(first&0x3F)<<8 | int(second), nil
	}

	return 0, ErrFragmented
}

// DecodePERBytes decodes a PER length at the start of p and returns the
// length and the number of octets it occupied
func DecodePERBytes(p []byte) (int, int, error) {
	c := bitbuf.NewCursor(p)
	length, err := DecodePER(c)
	if err != nil {
		return 0, 0, err
	}
	return length, c.ConsumedBytes(), nil
}
