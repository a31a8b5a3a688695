package channel

import (
	"context"
	"errors"

	"avaneesh/qcoder-go/pkg/qcoder"
)

var (
	ErrClosed       = errors.New("channel closed")
	ErrNoConnection = errors.New("no connection")
)

// ConnectionStateListener receives notifications about connection state changes
type ConnectionStateListener interface {
	// OnConnectionEstablished is called when a new connection is established
	OnConnectionEstablished()

	// OnConnectionLost is called when a connection is lost
	OnConnectionLost()
}

// PhysicalChannel moves complete link frames between hosts. UDP carries
// one frame per datagram; stream transports (TCP, QUIC) prefix every
// frame with its CER length.
type PhysicalChannel interface {
	// Read blocks until the next frame arrives or ctx is cancelled
	Read(ctx context.Context) ([]byte, error)

	// Write sends one frame. Must be safe for concurrent use.
	Write(ctx context.Context, data []byte) error

	// Close releases the transport and unblocks pending Read/Write calls
	Close() error

	// Statistics returns transport-level statistics
	Statistics() TransportStats

	// SetConnectionStateListener sets a listener for connection state
	// changes. Connectionless transports ignore it.
	SetConnectionStateListener(listener ConnectionStateListener)
}

// TransportStats provides transport-level statistics
type TransportStats struct {
	BytesSent     uint64
	BytesReceived uint64
	WriteErrors   uint64
	ReadErrors    uint64
	Connects      uint64 // connection-oriented transports only
	Disconnects   uint64
}

// SecurityService signs, encrypts, verifies and decrypts messages in
// place when the pipeline pauses for external security
type SecurityService interface {
	// Secure is called after Encode paused; the pipeline resumes with
	// EncodeContinue
	Secure(m *qcoder.Message) error

	// Verify is called after Decode paused; the pipeline resumes with
	// DecodeContinue
	Verify(m *qcoder.Message) error
}

// Direction of a frame relative to the local station
type Direction uint8

const (
	Inbound Direction = iota
	Outbound
)

// String returns string representation of Direction
func (d Direction) String() string {
	switch d {
	case Inbound:
		return "rx"
	case Outbound:
		return "tx"
	default:
		return "Unknown"
	}
}

// Observer sees every frame a Channel sends or successfully decodes
type Observer interface {
	ObserveFrame(dir Direction, raw []byte, m *qcoder.Message, res qcoder.Result)
}

// ChannelState represents the state of a channel
type ChannelState int

const (
	ChannelStateOpen ChannelState = iota
	ChannelStateClosed
)

// String returns string representation of ChannelState
func (s ChannelState) String() string {
	switch s {
	case ChannelStateOpen:
		return "Open"
	case ChannelStateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
