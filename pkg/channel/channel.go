package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"avaneesh/qcoder-go/pkg/internal/logger"
	"avaneesh/qcoder-go/pkg/link"
	"avaneesh/qcoder-go/pkg/qcoder"
	"avaneesh/qcoder-go/pkg/types"
)

var (
	ErrChannelClosed  = errors.New("channel is closed")
	ErrChannelOpen    = errors.New("channel is already open")
	ErrNoSecurity     = fmt.Errorf("%w: message needs a security service", types.ErrInvalidArgument)
	ErrIncompleteSend = errors.New("encode did not complete")
)

// Channel binds a PhysicalChannel to a Pipeline. Inbound frames are
// stripped of their link header, decoded into a fresh Message and routed
// to handlers; Send encodes a Message and writes it with its link header.
type Channel struct {
	id              string
	physicalChannel PhysicalChannel
	pipeline        *qcoder.Pipeline
	router          *Router
	stats           *Statistics
	logger          logger.Logger

	security   SecurityService
	observers  []Observer
	bufferSize int

	// State
	state   ChannelState
	stateMu sync.RWMutex

	// Concurrency
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Write queue for serializing writes
	writeQueue chan *writeRequest
}

// writeRequest represents a write request
type writeRequest struct {
	data []byte
	resp chan error
}

// Option configures a Channel
type Option func(*Channel)

// WithSecurity sets the service run when the pipeline pauses. Without
// one, paused inbound frames are counted and dropped and paused sends
// fail with ErrNoSecurity.
func WithSecurity(s SecurityService) Option {
	return func(c *Channel) { c.security = s }
}

// WithObserver adds an observer of sent and received frames
func WithObserver(o Observer) Option {
	return func(c *Channel) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithBufferSize sets the buffer size of inbound messages
func WithBufferSize(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// New creates a new channel
func New(id string, physical PhysicalChannel, pipeline *qcoder.Pipeline, log logger.Logger, opts ...Option) *Channel {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Channel{
		id:              id,
		physicalChannel: physical,
		pipeline:        pipeline,
		router:          NewRouter(),
		stats:           NewStatistics(),
		logger:          logger.OrNoOp(log),
		bufferSize:      qcoder.DefaultBufferSize,
		state:           ChannelStateClosed,
		ctx:             ctx,
		cancel:          cancel,
		writeQueue:      make(chan *writeRequest, 100),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the channel ID
func (c *Channel) ID() string {
	return c.id
}

// Router returns the router inbound messages are dispatched through
func (c *Channel) Router() *Router {
	return c.router
}

// Handle registers h for messages of stack with msgID
func (c *Channel) Handle(stack types.Stack, msgID int, h Handler) error {
	if err := c.router.AddHandler(RouteKey{Stack: stack, MsgID: msgID}, h); err != nil {
		return err
	}
	c.logger.Info("Channel %s: added handler for %s", c.id, RouteKey{Stack: stack, MsgID: msgID})
	return nil
}

// Open opens the channel and starts processing
func (c *Channel) Open() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.state == ChannelStateOpen {
		return ErrChannelOpen
	}
	if c.ctx.Err() != nil {
		return ErrChannelClosed
	}

	c.state = ChannelStateOpen
	c.logger.Info("Channel %s opening", c.id)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.readLoop()
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.writeLoop()
	}()

	c.logger.Info("Channel %s opened", c.id)
	return nil
}

// Close closes the channel and its physical channel
func (c *Channel) Close() error {
	c.stateMu.Lock()
	if c.state == ChannelStateClosed {
		c.stateMu.Unlock()
		return nil
	}
	c.state = ChannelStateClosed
	c.stateMu.Unlock()

	c.logger.Info("Channel %s closing", c.id)

	c.cancel()

	if err := c.physicalChannel.Close(); err != nil {
		c.logger.Error("Error closing physical channel: %v", err)
	}

	c.wg.Wait()

	c.logger.Info("Channel %s closed", c.id)
	return nil
}

// readLoop continuously reads from physical channel
func (c *Channel) readLoop() {
	c.logger.Debug("Channel %s read loop started", c.id)
	defer c.logger.Debug("Channel %s read loop stopped", c.id)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		data, err := c.physicalChannel.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return
			}
			c.logger.Error("Channel %s read error: %v", c.id, err)
			c.stats.BadLinkFrame()
			continue
		}

		c.handleFrame(data)
	}
}

// handleFrame decodes one inbound frame and routes the result
func (c *Channel) handleFrame(data []byte) {
	size := c.bufferSize
	if need := len(data) + qcoder.DefaultHeadroom + 1; need > size {
		size = need
	}
	m, err := qcoder.NewMessage(types.StackSAE, size, qcoder.DefaultHeadroom)
	if err != nil {
		c.logger.Error("Channel %s: %v", c.id, err)
		return
	}
	defer m.Release()

	if err := m.Load(data); err != nil {
		c.logger.Error("Channel %s: %v", c.id, err)
		c.stats.BadLinkFrame()
		return
	}

	frame, err := link.Decode(m.Buf)
	if err != nil {
		c.logger.Warn("Channel %s link error: %v", c.id, err)
		c.stats.BadLinkFrame()
		return
	}
	// Decode already checked the family
	m.Stack, _ = frame.Stack()
	m.Link = frame
	m.BTP.Type = frame.BTPType()

	res, err := c.pipeline.Decode(m)
	if err == nil && res.NeedsExternalSecurity() {
		if c.security == nil {
			c.logger.Debug("Channel %s: dropping secured %s frame", c.id, m.Stack)
			c.stats.Paused()
			c.observe(Inbound, data, m, res)
			return
		}
		if err := c.security.Verify(m); err != nil {
			c.logger.Warn("Channel %s security error: %v", c.id, err)
			c.stats.SecurityError()
			return
		}
		res, err = c.pipeline.DecodeContinue(m)
	}
	if err != nil {
		c.logger.Warn("Channel %s decode error: %v", c.id, err)
		c.stats.DecodeError()
		return
	}

	c.stats.FrameRx()
	c.logger.Debug("Channel %s received %s", c.id, m)
	c.observe(Inbound, data, m, res)

	if err := c.router.Route(m); err != nil {
		if errors.Is(err, ErrNoHandler) {
			c.stats.Unrouted()
			c.logger.Debug("Channel %s: %v", c.id, err)
			return
		}
		c.logger.Warn("Channel %s handler error: %v", c.id, err)
	}
}

func (c *Channel) observe(dir Direction, raw []byte, m *qcoder.Message, res qcoder.Result) {
	for _, o := range c.observers {
		o.ObserveFrame(dir, raw, m, res)
	}
}

// writeLoop processes write requests
func (c *Channel) writeLoop() {
	c.logger.Debug("Channel %s write loop started", c.id)
	defer c.logger.Debug("Channel %s write loop stopped", c.id)

	for {
		select {
		case <-c.ctx.Done():
			// Drain remaining requests with error
			for {
				select {
				case req := <-c.writeQueue:
					req.resp <- ErrChannelClosed
				default:
					return
				}
			}

		case req := <-c.writeQueue:
			err := c.physicalChannel.Write(c.ctx, req.data)
			if err != nil {
				c.logger.Error("Channel %s write error: %v", c.id, err)
			} else {
				c.stats.FrameTx()
			}
			req.resp <- err
		}
	}
}

// Write queues a complete link frame for transmission
func (c *Channel) Write(ctx context.Context, data []byte) error {
	c.stateMu.RLock()
	if c.state != ChannelStateOpen {
		c.stateMu.RUnlock()
		return ErrChannelClosed
	}
	c.stateMu.RUnlock()

	req := &writeRequest{
		data: data,
		resp: make(chan error, 1),
	}

	select {
	case c.writeQueue <- req:
	case <-c.ctx.Done():
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.resp
}

// Send encodes m, prepends its link header and writes the frame. It
// returns the number of bytes written. m keeps the encoded frame.
func (c *Channel) Send(ctx context.Context, m *qcoder.Message) (int, error) {
	res, err := c.pipeline.Encode(m)
	if err == nil && res.NeedsExternalSecurity() {
		if c.security == nil {
			c.stats.EncodeError()
			return 0, ErrNoSecurity
		}
		if err := c.security.Secure(m); err != nil {
			c.stats.SecurityError()
			return 0, err
		}
		res, err = c.pipeline.EncodeContinue(m)
	}
	if err != nil {
		c.stats.EncodeError()
		return 0, err
	}
	if !res.Done() {
		c.stats.EncodeError()
		return 0, fmt.Errorf("%w: %s", ErrIncompleteSend, res)
	}

	frame, err := link.NewFrame(m.Stack, m.BTP.Type)
	if err != nil {
		c.stats.EncodeError()
		return 0, err
	}
	if err := link.Encode(m.Buf, frame); err != nil {
		c.stats.EncodeError()
		return 0, err
	}
	m.Link = frame

	data := append([]byte(nil), m.Bytes()...)
	if err := c.Write(ctx, data); err != nil {
		return 0, err
	}

	c.logger.Debug("Channel %s sent %s", c.id, m)
	c.observe(Outbound, data, m, res)
	return len(data), nil
}

// Statistics returns channel statistics
func (c *Channel) Statistics() *Statistics {
	return c.stats
}

// PhysicalStatistics returns physical channel statistics
func (c *Channel) PhysicalStatistics() TransportStats {
	return c.physicalChannel.Statistics()
}

// State returns the current channel state
func (c *Channel) State() ChannelState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// String returns string representation of channel
func (c *Channel) String() string {
	return fmt.Sprintf("Channel{ID=%s, State=%s, Handlers=%d}",
		c.id, c.State(), c.router.HandlerCount())
}
