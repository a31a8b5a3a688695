// Package btp encodes the ETSI Basic Transport Protocol header (EN 302 636-5-1)
package btp

import (
	"encoding/binary"
	"fmt"

	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

// HeaderSize is the size of both header shapes
const HeaderSize = 4

// Well-known destination ports
const (
	PortCAM  uint16 = 2001
	PortDENM uint16 = 2002
)

// PacketType selects the header shape. It is supplied by the GeoNetworking
// layer and never inferred from the bytes.
type PacketType uint8

const (
	TypeUnset PacketType = iota
	TypeA                // interactive: destination + source port
	TypeB                // non-interactive: destination port + port info
)

// String returns string representation of PacketType
func (t PacketType) String() string {
	switch t {
	case TypeUnset:
		return "Unset"
	case TypeA:
		return "BTP-A"
	case TypeB:
		return "BTP-B"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

var ErrTypeUnset = fmt.Errorf("%w: BTP packet type not set", types.ErrInvalidArgument)

// Header holds the BTP ports. SrcPort is used by type A, DestPortInfo by
// type B.
type Header struct {
	Type         PacketType
	DestPort     uint16
	SrcPort      uint16
	DestPortInfo uint16
}

// String returns a diagnostic form of the header
func (h Header) String() string {
	switch h.Type {
	case TypeA:
		return fmt.Sprintf("%s{dst=%d, src=%d}", h.Type, h.DestPort, h.SrcPort)
	case TypeB:
		return fmt.Sprintf("%s{dst=%d, info=%d}", h.Type, h.DestPort, h.DestPortInfo)
	default:
		return h.Type.String()
	}
}

func (h *Header) second() uint16 {
	if h.Type == TypeA {
		return h.SrcPort
	}
	return h.DestPortInfo
}

func (h *Header) setSecond(v uint16) {
	if h.Type == TypeA {
		h.SrcPort = v
	} else {
		h.DestPortInfo = v
	}
}

func checkType(t PacketType) error {
	switch t {
	case TypeA, TypeB:
		return nil
	case TypeUnset:
		return ErrTypeUnset
	default:
		return fmt.Errorf("%w: BTP packet type %d", types.ErrInvalidArgument, t)
	}
}

// Encode prepends the header in front of the payload in buf
func Encode(buf *bitbuf.Buffer, h *Header) error {
	if h == nil {
		return fmt.Errorf("%w: nil BTP header", types.ErrInvalidArgument)
	}
	if err := checkType(h.Type); err != nil {
		return err
	}
	region, err := buf.PrependByteRegion(HeaderSize)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(region[0:2], h.DestPort)
	binary.BigEndian.PutUint16(region[2:4], h.second())
	return nil
}

// Decode consumes the header from the front of buf. h.Type must already
// be set.
func Decode(buf *bitbuf.Buffer, h *Header) error {
	if h == nil {
		return fmt.Errorf("%w: nil BTP header", types.ErrInvalidArgument)
	}
	if err := checkType(h.Type); err != nil {
		return err
	}
	if buf.HeadSpaceBits() != 0 {
		return bitbuf.ErrNotAligned
	}
	front, err := buf.ConsumeFront(HeaderSize)
	if err != nil {
		return err
	}
	h.DestPort = binary.BigEndian.Uint16(front[0:2])
	h.setSecond(binary.BigEndian.Uint16(front[2:4]))
	return nil
}
