package link

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/types"
)

// PC5 non-IP link framing constants

// Family is the V2X message family octet in front of every non-IP SDU
type Family uint8

const (
	FamilyIEEE1609 Family = 0x01 // WSMP
	FamilyISO      Family = 0x02 // ISO 22418 FNTP, not handled
	FamilyETSI     Family = 0x03 // GeoNetworking
)

// String returns string representation of Family
func (f Family) String() string {
	switch f {
	case FamilyIEEE1609:
		return "IEEE1609"
	case FamilyISO:
		return "ISO"
	case FamilyETSI:
		return "ETSI-ITS"
	default:
		return fmt.Sprintf("Unknown(%#02x)", uint8(f))
	}
}

// NextHeader is the GeoNetworking next-header value. Only this octet of
// the GeoNetworking common header is carried.
type NextHeader uint8

const (
	NextHeaderAny  NextHeader = 0
	NextHeaderBTPA NextHeader = 1
	NextHeaderBTPB NextHeader = 2
	NextHeaderIPv6 NextHeader = 3
)

// String returns string representation of NextHeader
func (n NextHeader) String() string {
	switch n {
	case NextHeaderAny:
		return "Any"
	case NextHeaderBTPA:
		return "BTP-A"
	case NextHeaderBTPB:
		return "BTP-B"
	case NextHeaderIPv6:
		return "IPv6"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(n))
	}
}

// Frame sizes
const (
	SAEHeaderSize  = 1 // family
	ETSIHeaderSize = 2 // family + next header
	MaxHeaderSize  = ETSIHeaderSize
	MaxFrameSize   = 8188 // PC5 maximum SDU
)

// Errors
var (
	ErrFrameTooShort  = fmt.Errorf("%w: link frame too short", types.ErrMalformedInput)
	ErrFrameTooLong   = fmt.Errorf("%w: link frame too long", types.ErrInvalidArgument)
	ErrUnknownFamily  = fmt.Errorf("%w: unsupported V2X message family", types.ErrMalformedInput)
	ErrNextHeader     = fmt.Errorf("%w: next header does not carry BTP", types.ErrMalformedInput)
	ErrStackMismatch  = fmt.Errorf("%w: family does not match stack", types.ErrInvalidArgument)
	ErrMissingBTPType = fmt.Errorf("%w: BTP packet type not set", types.ErrInvalidArgument)
)
