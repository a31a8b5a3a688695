package wsmp

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

// PSID ranges of the P-encoding (IEEE 1609.12). Each range is stored with
// its lower bound subtracted and a unary prefix in the leading bits.
var psidRanges = []struct {
	octets int
	base   uint32
	limit  uint32
	prefix uint32
}{
	{1, 0x0, 0x7F, 0x0},
	{2, 0x80, 0x407F, 0x8000},
	{3, 0x4080, 0x20407F, 0xC00000},
	{4, 0x204080, 0x1020407F, 0xE0000000},
}

var ErrPSIDRange = fmt.Errorf("%w: PSID out of range", types.ErrInvalidArgument)

// PSIDBasicSafety is the PSID of vehicle-to-vehicle safety messages
const PSIDBasicSafety uint32 = 0x20

// PSIDSize returns the encoded size of psid in octets
func PSIDSize(psid uint32) (int, error) {
	for _, r := range psidRanges {
		if psid >= r.base && psid <= r.limit {
			return r.octets, nil
		}
	}
	return 0, ErrPSIDRange
}

// PrependPSID writes psid in front of the payload
func PrependPSID(buf *bitbuf.Buffer, psid uint32) error {
	for _, r := range psidRanges {
		if psid >= r.base && psid <= r.limit {
			return buf.PrependBits(r.prefix|(psid-r.base), uint8(r.octets*8))
		}
	}
	return ErrPSIDRange
}

// DecodePSID reads a P-encoded PSID at the cursor
func DecodePSID(c *bitbuf.Cursor) (uint32, error) {
	first, err := c.NextByte()
	if err != nil {
		return 0, err
	}
	octets := 1
	for mask := byte(0x80); octets <= 4 && first&mask != 0; mask >>= 1 {
		octets++
	}
	if octets > 4 {
		return 0, fmt.Errorf("%w: PSID prefix %#02x", types.ErrMalformedInput, first)
	}

	value := uint32(first)
	if octets > 1 {
		rest, err := c.NextBits(uint8((octets - 1) * 8))
		if err != nil {
			return 0, err
		}
		value = value<<((octets-1)*8) | rest
	}

	r := psidRanges[octets-1]
	return value - r.prefix + r.base, nil
}
