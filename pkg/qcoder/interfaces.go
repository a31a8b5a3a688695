package qcoder

import (
	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

// ApplicationCodec encodes and decodes application structures (J2735
// MessageFrame, CAM, DENM). Structures returned by DecodeApplication are
// owned by the caller.
type ApplicationCodec interface {
	// EncodeApplication appends v at the tail of buf and returns the
	// number of bytes written
	EncodeApplication(msgID int, v any, buf *bitbuf.Buffer) (int, error)

	// DecodeApplication consumes one structure from the front of buf and
	// returns it with the number of bytes consumed
	DecodeApplication(stack types.Stack, buf *bitbuf.Buffer) (any, int, error)
}

// HeaderCodec prepends and strips an outer header such as WSMP
type HeaderCodec interface {
	EncodeHeader(hdr any, buf *bitbuf.Buffer) error
	DecodeHeader(buf *bitbuf.Buffer) (any, error)
}

// Identified is implemented by application structures that know their
// message id. Decode copies it into Message.MsgID.
type Identified interface {
	MessageID() int
}

// Releaser is implemented by structures that hold resources to free
type Releaser interface {
	Release()
}

// Codecs groups the collaborators used by a Pipeline. A nil codec makes
// the operations that need it fail with types.ErrInvalidArgument.
type Codecs struct {
	WSMP  HeaderCodec
	J2735 ApplicationCodec
	CAM   ApplicationCodec
	DENM  ApplicationCodec
}
