package channel

import (
	"errors"
	"fmt"
	"sync"

	"avaneesh/qcoder-go/pkg/qcoder"
	"avaneesh/qcoder-go/pkg/types"
)

var ErrNoHandler = errors.New("no handler for message")

// Handler consumes decoded messages. The message is released after
// HandleMessage returns; handlers must copy anything they keep.
type Handler interface {
	HandleMessage(m *qcoder.Message) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(m *qcoder.Message) error

// HandleMessage calls f(m)
func (f HandlerFunc) HandleMessage(m *qcoder.Message) error {
	return f(m)
}

// RouteKey identifies a message kind: J2735 message id on SAE, ITS
// messageID on ETSI
type RouteKey struct {
	Stack types.Stack
	MsgID int
}

// String returns string representation of RouteKey
func (k RouteKey) String() string {
	if k.Stack == types.StackETSI {
		return fmt.Sprintf("%s/%s", k.Stack, types.ItsMessageID(k.MsgID))
	}
	return fmt.Sprintf("%s/%d", k.Stack, k.MsgID)
}

// Router dispatches decoded messages to handlers by stack and message id
type Router struct {
	handlers map[RouteKey]Handler
	fallback Handler
	mu       sync.RWMutex
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{
		handlers: make(map[RouteKey]Handler),
	}
}

// AddHandler registers h for key
func (r *Router) AddHandler(key RouteKey, h Handler) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler", types.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("handler for %s already exists", key)
	}

	r.handlers[key] = h
	return nil
}

// RemoveHandler removes the handler for key
func (r *Router) RemoveHandler(key RouteKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.handlers, key)
}

// SetFallback sets the handler for messages no other handler claims.
// nil removes it.
func (r *Router) SetFallback(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fallback = h
}

// Route delivers m to its handler, or the fallback
func (r *Router) Route(m *qcoder.Message) error {
	key := RouteKey{Stack: m.Stack, MsgID: m.MsgID}

	r.mu.RLock()
	h, exists := r.handlers[key]
	if !exists {
		h = r.fallback
	}
	r.mu.RUnlock()

	if h == nil {
		return fmt.Errorf("%w: %s", ErrNoHandler, key)
	}
	return h.HandleMessage(m)
}

// HandlerCount returns the number of registered handlers, fallback excluded
func (r *Router) HandlerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers)
}

// Clear removes all handlers and the fallback
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = make(map[RouteKey]Handler)
	r.fallback = nil
}
