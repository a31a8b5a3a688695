package channel

import "sync/atomic"

// Statistics tracks channel-level statistics
type Statistics struct {
	// Link layer
	numFramesTx      uint64
	numFramesRx      uint64
	numBadLinkFrames uint64

	// Pipeline
	numDecodeErrors   uint64
	numEncodeErrors   uint64
	numPaused         uint64
	numSecurityErrors uint64

	// Routing
	numUnrouted uint64
}

// Snapshot is a point-in-time copy of Statistics
type Snapshot struct {
	FramesTx       uint64
	FramesRx       uint64
	BadLinkFrames  uint64
	DecodeErrors   uint64
	EncodeErrors   uint64
	Paused         uint64
	SecurityErrors uint64
	Unrouted       uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{}
}

// FrameTx increments transmitted frames
func (s *Statistics) FrameTx() {
	atomic.AddUint64(&s.numFramesTx, 1)
}

// FrameRx increments received frames that decoded successfully
func (s *Statistics) FrameRx() {
	atomic.AddUint64(&s.numFramesRx, 1)
}

// BadLinkFrame increments frames with an unusable link header
func (s *Statistics) BadLinkFrame() {
	atomic.AddUint64(&s.numBadLinkFrames, 1)
}

// DecodeError increments pipeline decode failures
func (s *Statistics) DecodeError() {
	atomic.AddUint64(&s.numDecodeErrors, 1)
}

// EncodeError increments pipeline encode failures
func (s *Statistics) EncodeError() {
	atomic.AddUint64(&s.numEncodeErrors, 1)
}

// Paused increments inbound frames dropped for lack of a security service
func (s *Statistics) Paused() {
	atomic.AddUint64(&s.numPaused, 1)
}

// SecurityError increments security service failures
func (s *Statistics) SecurityError() {
	atomic.AddUint64(&s.numSecurityErrors, 1)
}

// Unrouted increments decoded messages nobody handled
func (s *Statistics) Unrouted() {
	atomic.AddUint64(&s.numUnrouted, 1)
}

// GetFramesTx returns transmitted frames
func (s *Statistics) GetFramesTx() uint64 {
	return atomic.LoadUint64(&s.numFramesTx)
}

// GetFramesRx returns received frames
func (s *Statistics) GetFramesRx() uint64 {
	return atomic.LoadUint64(&s.numFramesRx)
}

// GetBadLinkFrames returns bad link frames
func (s *Statistics) GetBadLinkFrames() uint64 {
	return atomic.LoadUint64(&s.numBadLinkFrames)
}

// GetDecodeErrors returns decode failures
func (s *Statistics) GetDecodeErrors() uint64 {
	return atomic.LoadUint64(&s.numDecodeErrors)
}

// GetEncodeErrors returns encode failures
func (s *Statistics) GetEncodeErrors() uint64 {
	return atomic.LoadUint64(&s.numEncodeErrors)
}

// GetPaused returns inbound frames dropped while paused
func (s *Statistics) GetPaused() uint64 {
	return atomic.LoadUint64(&s.numPaused)
}

// GetSecurityErrors returns security service failures
func (s *Statistics) GetSecurityErrors() uint64 {
	return atomic.LoadUint64(&s.numSecurityErrors)
}

// GetUnrouted returns unrouted messages
func (s *Statistics) GetUnrouted() uint64 {
	return atomic.LoadUint64(&s.numUnrouted)
}

// Snapshot returns all counters at once
func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		FramesTx:       s.GetFramesTx(),
		FramesRx:       s.GetFramesRx(),
		BadLinkFrames:  s.GetBadLinkFrames(),
		DecodeErrors:   s.GetDecodeErrors(),
		EncodeErrors:   s.GetEncodeErrors(),
		Paused:         s.GetPaused(),
		SecurityErrors: s.GetSecurityErrors(),
		Unrouted:       s.GetUnrouted(),
	}
}

// Reset resets all statistics
func (s *Statistics) Reset() {
	atomic.StoreUint64(&s.numFramesTx, 0)
	atomic.StoreUint64(&s.numFramesRx, 0)
	atomic.StoreUint64(&s.numBadLinkFrames, 0)
	atomic.StoreUint64(&s.numDecodeErrors, 0)
	atomic.StoreUint64(&s.numEncodeErrors, 0)
	atomic.StoreUint64(&s.numPaused, 0)
	atomic.StoreUint64(&s.numSecurityErrors, 0)
	atomic.StoreUint64(&s.numUnrouted, 0)
}
