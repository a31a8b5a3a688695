package qcoder

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/btp"
	"avaneesh/qcoder-go/pkg/ieee1609"
	"avaneesh/qcoder-go/pkg/types"
)

// Default buffer geometry
const (
	DefaultBufferSize = 2048
	DefaultHeadroom   = 256
)

// Message carries one V2X message through the pipeline. It is not safe
// for concurrent use; allocate one per in-flight message.
type Message struct {
	Stack types.Stack
	MsgID int

	Buf        *bitbuf.Buffer
	PayloadLen int

	// Outer layer state, opaque to the pipeline
	Link   any
	WSMP   any
	GeoNet any

	// Application structure, owned by the message
	App any

	BTP      btp.Header
	Security *ieee1609.Header
}

// NewMessage allocates a message with a fresh buffer
func NewMessage(stack types.Stack, size, headroom int) (*Message, error) {
	buf, err := bitbuf.Allocate(size, headroom)
	if err != nil {
		return nil, err
	}
	return &Message{Stack: stack, Buf: buf}, nil
}

// NewSAE creates an SAE message ready to encode app as msgID
func NewSAE(msgID int, app any, wsmpHeader any) (*Message, error) {
	m, err := NewMessage(types.StackSAE, DefaultBufferSize, DefaultHeadroom)
	if err != nil {
		return nil, err
	}
	m.MsgID = msgID
	m.App = app
	m.WSMP = wsmpHeader
	m.Security = ieee1609.NewUnsecured()
	return m, nil
}

// NewETSI creates an ETSI message ready to encode app as msgID behind
// the given BTP header
func NewETSI(msgID types.ItsMessageID, app any, hdr btp.Header) (*Message, error) {
	m, err := NewMessage(types.StackETSI, DefaultBufferSize, DefaultHeadroom)
	if err != nil {
		return nil, err
	}
	m.MsgID = int(msgID)
	m.App = app
	m.BTP = hdr
	return m, nil
}

// Load replaces the buffer content with a received frame
func (m *Message) Load(frame []byte) error {
	if m.Buf == nil {
		return fmt.Errorf("%w: message has no buffer", types.ErrInvalidArgument)
	}
	return m.Buf.Load(frame)
}

// Bytes returns the encoded frame. The slice aliases the buffer.
func (m *Message) Bytes() []byte {
	if m.Buf == nil {
		return nil
	}
	return m.Buf.Bytes()
}

// Release frees the application structure
func (m *Message) Release() {
	if r, ok := m.App.(Releaser); ok {
		r.Release()
	}
	m.App = nil
}

// Reset releases the application structure and clears per-message state
// so the message can be reused. The BTP packet type is kept since it is
// configured by the outer layer.
func (m *Message) Reset() {
	m.Release()
	if m.Buf != nil {
		m.Buf.Purge()
	}
	m.MsgID = 0
	m.PayloadLen = 0
	m.Link = nil
	m.WSMP = nil
	m.GeoNet = nil
	m.BTP = btp.Header{Type: m.BTP.Type}
	m.Security = nil
}

// String returns a diagnostic summary
func (m *Message) String() string {
	return fmt.Sprintf("Message{stack=%s, id=%d, payload=%d, buf=%v}", m.Stack, m.MsgID, m.PayloadLen, m.Buf)
}
