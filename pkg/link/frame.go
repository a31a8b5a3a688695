package link

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/btp"
	"avaneesh/qcoder-go/pkg/types"
)

// Frame is the link header of one PC5 non-IP SDU
type Frame struct {
	Family     Family
	NextHeader NextHeader // ETSI only
}

// NewFrame creates the link header for a message on stack. BTP type is
// used on ETSI to fill the next header.
func NewFrame(stack types.Stack, btpType btp.PacketType) (Frame, error) {
	switch stack {
	case types.StackSAE:
		return Frame{Family: FamilyIEEE1609}, nil
	case types.StackETSI:
		switch btpType {
		case btp.TypeA:
			return Frame{Family: FamilyETSI, NextHeader: NextHeaderBTPA}, nil
		case btp.TypeB:
			return Frame{Family: FamilyETSI, NextHeader: NextHeaderBTPB}, nil
		default:
			return Frame{}, ErrMissingBTPType
		}
	default:
		return Frame{}, fmt.Errorf("%w: stack %d", ErrStackMismatch, stack)
	}
}

// Stack returns the protocol stack announced by the family
func (f Frame) Stack() (types.Stack, error) {
	switch f.Family {
	case FamilyIEEE1609:
		return types.StackSAE, nil
	case FamilyETSI:
		return types.StackETSI, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFamily, f.Family)
	}
}

// BTPType returns the BTP packet type announced by the next header
func (f Frame) BTPType() btp.PacketType {
	switch f.NextHeader {
	case NextHeaderBTPA:
		return btp.TypeA
	case NextHeaderBTPB:
		return btp.TypeB
	default:
		return btp.TypeUnset
	}
}

// HeaderSize returns the number of octets the frame header occupies
func (f Frame) HeaderSize() int {
	if f.Family == FamilyETSI {
		return ETSIHeaderSize
	}
	return SAEHeaderSize
}

// Encode prepends the link header in front of the frame in buf
func Encode(buf *bitbuf.Buffer, f Frame) error {
	if _, err := f.Stack(); err != nil {
		return err
	}
	if buf.ByteLength()+f.HeaderSize() > MaxFrameSize {
		return ErrFrameTooLong
	}
	region, err := buf.PrependByteRegion(f.HeaderSize())
	if err != nil {
		return err
	}
	region[0] = byte(f.Family)
	if f.Family == FamilyETSI {
		region[1] = byte(f.NextHeader)
	}
	return nil
}

// Decode strips the link header from the front of buf
func Decode(buf *bitbuf.Buffer) (Frame, error) {
	if buf.HeadSpaceBits() != 0 {
		return Frame{}, bitbuf.ErrNotAligned
	}
	p := buf.Bytes()
	if len(p) < SAEHeaderSize {
		return Frame{}, ErrFrameTooShort
	}

	f := Frame{Family: Family(p[0])}
	if _, err := f.Stack(); err != nil {
		return Frame{}, err
	}
	if f.Family == FamilyETSI {
		if len(p) < ETSIHeaderSize {
			return Frame{}, ErrFrameTooShort
		}
		f.NextHeader = NextHeader(p[1])
		if f.BTPType() == btp.TypeUnset {
			return Frame{}, fmt.Errorf("%w: %s", ErrNextHeader, f.NextHeader)
		}
	}

	if _, err := buf.ConsumeFront(f.HeaderSize()); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// String returns a string representation of the frame
func (f Frame) String() string {
	if f.Family == FamilyETSI {
		return fmt.Sprintf("Link{%s, nh=%s}", f.Family, f.NextHeader)
	}
	return fmt.Sprintf("Link{%s}", f.Family)
}
