// Package etsi frames ETSI ITS facilities messages (CAM, DENM). Each
// message starts with the common ItsPduHeader; the body after it is kept
// opaque.
package etsi

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

// ProtocolVersion of the ItsPduHeader written by default
const ProtocolVersion = 2

// HeaderSize is the encoded ItsPduHeader size in octets
const HeaderSize = 6

var (
	ErrWrongValue     = fmt.Errorf("%w: expected *etsi.Message", types.ErrInvalidArgument)
	ErrUnexpectedType = fmt.Errorf("%w: unexpected ITS message id", types.ErrMalformedInput)
)

// ItsPduHeader is common to all facilities messages
type ItsPduHeader struct {
	ProtocolVersion uint8
	MessageID       types.ItsMessageID
	StationID       uint32
}

// Message is a facilities message with an opaque body
type Message struct {
	Header ItsPduHeader
	Body   []byte
}

// MessageID returns the ITS message id as a plain integer
func (m *Message) MessageID() int {
	return int(m.Header.MessageID)
}

// Release drops the body
func (m *Message) Release() {
	m.Body = nil
}

// String returns a diagnostic form of the message
func (m *Message) String() string {
	return fmt.Sprintf("%s{v=%d, station=%d, body=%d bytes}", m.Header.MessageID, m.Header.ProtocolVersion, m.Header.StationID, len(m.Body))
}

func appendHeader(buf *bitbuf.Buffer, h ItsPduHeader) error {
	version := h.ProtocolVersion
	if version == 0 {
		version = ProtocolVersion
	}
	if err := buf.AppendBits(uint32(version), 8); err != nil {
		return err
	}
	if err := buf.AppendBits(uint32(h.MessageID), 8); err != nil {
		return err
	}
	return buf.AppendBits(h.StationID, 32)
}

func decodeHeader(c *bitbuf.Cursor) (ItsPduHeader, error) {
	var h ItsPduHeader
	version, err := c.NextByte()
	if err != nil {
		return h, err
	}
	id, err := c.NextByte()
	if err != nil {
		return h, err
	}
	station, err := c.NextBits(32)
	if err != nil {
		return h, err
	}
	h.ProtocolVersion = version
	h.MessageID = types.ItsMessageID(id)
	h.StationID = station
	return h, nil
}

// messageCodec encodes and decodes one facilities message type
type messageCodec struct {
	id types.ItsMessageID
}

func (mc messageCodec) encode(msgID int, v any, buf *bitbuf.Buffer) (int, error) {
	msg, ok := v.(*Message)
	if !ok || msg == nil || buf == nil {
		return 0, ErrWrongValue
	}
	if msgID != int(mc.id) {
		return 0, fmt.Errorf("%w: %s codec asked to encode id %d", types.ErrInvalidArgument, mc.id, msgID)
	}
	if buf.TailroomBytes() < HeaderSize+len(msg.Body) {
		return 0, bitbuf.ErrNoTailroom
	}

	before := buf.ByteLength()
	h := msg.Header
	h.MessageID = mc.id
	if err := appendHeader(buf, h); err != nil {
		return 0, err
	}
	if err := buf.AppendBytes(msg.Body); err != nil {
		return 0, err
	}
	msg.Header.MessageID = mc.id
	return buf.ByteLength() - before, nil
}

func (mc messageCodec) decode(stack types.Stack, buf *bitbuf.Buffer) (any, int, error) {
	if stack != types.StackETSI {
		return nil, 0, fmt.Errorf("%w: %s is only carried on %s", types.ErrInvalidArgument, mc.id, types.StackETSI)
	}
	if buf.HeadSpaceBits() != 0 {
		return nil, 0, bitbuf.ErrNotAligned
	}

	c := bitbuf.NewCursor(buf.Bytes())
	h, err := decodeHeader(c)
	if err != nil {
		return nil, 0, err
	}
	if h.MessageID != mc.id {
		return nil, 0, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedType, h.MessageID, mc.id)
	}
	body, err := c.NextBytes(c.Remaining() / 8)
	if err != nil {
		return nil, 0, err
	}

	consumed := c.ConsumedBytes()
	if _, err := buf.ConsumeFront(consumed); err != nil {
		return nil, 0, err
	}
	return &Message{Header: h, Body: body}, consumed, nil
}
