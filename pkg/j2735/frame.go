// Package j2735 frames SAE J2735 messages in the UPER MessageFrame
// envelope. The message body is carried as an opaque open-type value; its
// field layout belongs to the application.
package j2735

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/asn1len"
	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

// DSRCmsgID values
const (
	MapData               = 18
	SignalPhaseAndTiming  = 19
	BasicSafetyMessage    = 20
	CommonSafetyRequest   = 21
	EmergencyVehicleAlert = 22
	IntersectionCollision = 23
	NMEACorrections       = 24
	ProbeDataManagement   = 25
	ProbeVehicleData      = 26
	RoadSideAlert         = 27
	RTCMCorrections       = 28
	SignalRequestMessage  = 29
	SignalStatusMessage   = 30
	TravelerInformation   = 31
	PersonalSafetyMessage = 32
)

const (
	messageIDBits = 15
	maxMessageID  = 1<<messageIDBits - 1
)

var (
	ErrWrongValue    = fmt.Errorf("%w: expected *j2735.MessageFrame or []byte", types.ErrInvalidArgument)
	ErrMessageID     = fmt.Errorf("%w: message id out of range", types.ErrInvalidArgument)
	ErrExtensionUsed = fmt.Errorf("%w: MessageFrame extension present", types.ErrMalformedInput)
)

// MessageFrame is the decoded envelope
type MessageFrame struct {
	ID    int
	Value []byte
}

// MessageID returns the DSRCmsgID of the frame
func (f *MessageFrame) MessageID() int {
	return f.ID
}

// Release drops the value so the frame can be reused
func (f *MessageFrame) Release() {
	f.Value = nil
}

// Name returns a short name for well-known message ids
func Name(id int) string {
	switch id {
	case MapData:
		return "MAP"
	case SignalPhaseAndTiming:
		return "SPAT"
	case BasicSafetyMessage:
		return "BSM"
	case EmergencyVehicleAlert:
		return "EVA"
	case RoadSideAlert:
		return "RSA"
	case SignalRequestMessage:
		return "SRM"
	case SignalStatusMessage:
		return "SSM"
	case TravelerInformation:
		return "TIM"
	case PersonalSafetyMessage:
		return "PSM"
	default:
		return fmt.Sprintf("msg-%d", id)
	}
}

// Codec encodes MessageFrames at the tail of a buffer
type Codec struct{}

// EncodeApplication appends the frame for v under msgID and returns the
// number of bytes written. v may be a *MessageFrame or the raw value bytes.
func (Codec) EncodeApplication(msgID int, v any, buf *bitbuf.Buffer) (int, error) {
	var value []byte
	switch frame := v.(type) {
	case *MessageFrame:
		if frame == nil {
			return 0, ErrWrongValue
		}
		value = frame.Value
	case []byte:
		value = frame
	default:
		return 0, ErrWrongValue
	}
	if msgID < 0 || msgID > maxMessageID {
		return 0, fmt.Errorf("%w: %d", ErrMessageID, msgID)
	}
	if _, err := asn1len.PERSize(len(value)); err != nil {
		return 0, err
	}

	before := buf.ByteLength()
	// extension marker, then messageId
	if err := buf.AppendBits(0, 1); err != nil {
		return 0, err
	}
	if err := buf.AppendBits(uint32(msgID), messageIDBits); err != nil {
		return 0, err
	}
	if err := asn1len.AppendPER(buf, len(value)); err != nil {
		return 0, err
	}
	if err := buf.AppendBytes(value); err != nil {
		return 0, err
	}
	if err := buf.PadToEvenOctet(); err != nil {
		return 0, err
	}
	return buf.ByteLength() - before, nil
}

// DecodeApplication consumes one MessageFrame from the front of buf
func (Codec) DecodeApplication(stack types.Stack, buf *bitbuf.Buffer) (any, int, error) {
	if stack != types.StackSAE {
		return nil, 0, fmt.Errorf("%w: J2735 frames are only carried on %s", types.ErrInvalidArgument, types.StackSAE)
	}
	if buf.HeadSpaceBits() != 0 {
		return nil, 0, bitbuf.ErrNotAligned
	}

	c := bitbuf.NewCursor(buf.Bytes())
	ext, err := c.NextBits(1)
	if err != nil {
		return nil, 0, err
	}
	if ext != 0 {
		return nil, 0, ErrExtensionUsed
	}
	id, err := c.NextBits(messageIDBits)
	if err != nil {
		return nil, 0, err
	}
	length, err := asn1len.DecodePER(c)
	if err != nil {
		return nil, 0, err
	}
	value, err := c.NextBytes(length)
	if err != nil {
		return nil, 0, err
	}
	c.SkipToOctet()

	consumed := c.ConsumedBytes()
	if _, err := buf.ConsumeFront(consumed); err != nil {
		return nil, 0, err
	}
	return &MessageFrame{ID: int(id), Value: value}, consumed, nil
}
