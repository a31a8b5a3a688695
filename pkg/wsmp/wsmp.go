// Package wsmp implements the WAVE Short Message Protocol header
// (IEEE 1609.3) used in front of SAE payloads.
//
// Only the basic WSMP-N / WSMP-T form without extension fields is
// produced: one N-header octet (subtype, option indicator, version), the
// TPID octet, the P-encoded PSID and the WSM length.
package wsmp

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/asn1len"
	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

// Version is the WSMP version number carried in the N-header
const Version = 3

// TPID values
const (
	TPIDPSID         uint8 = 0 // PSID only
	TPIDPSIDExtended uint8 = 1
)

var (
	ErrWrongHeader    = fmt.Errorf("%w: expected *wsmp.Header", types.ErrInvalidArgument)
	ErrVersion        = fmt.Errorf("%w: unsupported WSMP version", types.ErrMalformedInput)
	ErrExtensions     = fmt.Errorf("%w: WSMP extension fields not supported", types.ErrMalformedInput)
	ErrLengthMismatch = fmt.Errorf("%w: WSM length exceeds remaining bytes", types.ErrMalformedInput)
)

// Header is the decoded WSMP header
type Header struct {
	Subtype uint8
	Version uint8
	TPID    uint8
	PSID    uint32
	Length  int
}

// NewHeader creates a header for psid with default version and TPID
func NewHeader(psid uint32) *Header {
	return &Header{Version: Version, TPID: TPIDPSID, PSID: psid}
}

// String returns a diagnostic form of the header
func (h *Header) String() string {
	return fmt.Sprintf("WSMP{v=%d, tpid=%d, psid=%#x, len=%d}", h.Version, h.TPID, h.PSID, h.Length)
}

// Size returns the number of octets the header adds to a payload
func (h *Header) Size(payloadLen int) (int, error) {
	psid, err := PSIDSize(h.PSID)
	if err != nil {
		return 0, err
	}
	length, err := asn1len.PERSize(payloadLen)
	if err != nil {
		return 0, err
	}
	return 2 + psid + length, nil
}

// Codec frames and strips WSMP headers on a bitbuf.Buffer
type Codec struct{}

// EncodeHeader prepends hdr, which must be a *Header, in front of the
// payload in buf. Length is set from the payload.
func (Codec) EncodeHeader(hdr any, buf *bitbuf.Buffer) error {
	h, ok := hdr.(*Header)
	if !ok || h == nil {
		return ErrWrongHeader
	}
	if buf.HeadSpaceBits() != 0 {
		return bitbuf.ErrNotAligned
	}

	payloadLen := buf.ByteLength()
	size, err := h.Size(payloadLen)
	if err != nil {
		return err
	}
	if buf.HeadroomBytes() < size {
		return bitbuf.ErrNoHeadroom
	}

	if err := asn1len.PrependPER(buf, payloadLen); err != nil {
		return err
	}
	if err := PrependPSID(buf, h.PSID); err != nil {
		return err
	}
	if err := buf.PrependBits(uint32(h.TPID), 8); err != nil {
		return err
	}
	version := h.Version
	if version == 0 {
		version = Version
	}
	if err := buf.PrependBits(uint32(h.Subtype&0x0F)<<4|uint32(version&0x07), 8); err != nil {
		return err
	}
	h.Length = payloadLen
	return nil
}

// DecodeHeader consumes a WSMP header from the front of buf and returns it
// as a *Header
func (Codec) DecodeHeader(buf *bitbuf.Buffer) (any, error) {
	if buf.HeadSpaceBits() != 0 {
		return nil, bitbuf.ErrNotAligned
	}

	c := bitbuf.NewCursor(buf.Bytes())
	subtype, err := c.NextBits(4)
	if err != nil {
		return nil, err
	}
	options, err := c.NextBits(1)
	if err != nil {
		return nil, err
	}
	version, err := c.NextBits(3)
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}
	if options != 0 {
		return nil, ErrExtensions
	}
	tpid, err := c.NextByte()
	if err != nil {
		return nil, err
	}
	psid, err := DecodePSID(c)
	if err != nil {
		return nil, err
	}
	length, err := asn1len.DecodePER(c)
	if err != nil {
		return nil, err
	}
	if length > c.Remaining()/8 {
		return nil, fmt.Errorf("%w: %d > %d", ErrLengthMismatch, length, c.Remaining()/8)
	}

	if _, err := buf.ConsumeFront(c.ConsumedBytes()); err != nil {
		return nil, err
	}
	return &Header{
		Subtype: uint8(subtype),
		Version: uint8(version),
		TPID:    tpid,
		PSID:    psid,
		Length:  length,
	}, nil
}
