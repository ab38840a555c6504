package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelTransportClosed is returned when a channel transport is written to after being closed.
var ErrChannelTransportClosed = errors.New("fetcher: channel transport closed")

// FrameHandler receives every frame the runtime sends.
type FrameHandler func(context.Context, Frame) error

// NewCallbackTransport adapts a FrameHandler into a Transport so callers can
// plug arbitrary functions without defining structs.
func NewCallbackTransport(name string, fn FrameHandler) Transport {
	if name == "" {
		name = "callback"
	}
	return &callbackTransport{name: name, fn: fn}
}

// NewChannelTransport exposes frames via a channel; it returns the transport,
// the read-only channel, and a close function that the caller should invoke
// during shutdown. Send blocks until the frame is received or ctx is done.
func NewChannelTransport(name string, buffer int) (Transport, <-chan Frame, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Frame, buffer)
	t := &channelTransport{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return t, ch, func() { t.close() }
}

type callbackTransport struct {
	name string
	fn   FrameHandler
}

func (t *callbackTransport) Send(ctx context.Context, f Frame) error {
	if t.fn == nil {
		return fmt.Errorf("callback transport %q: nil handler", t.name)
	}
	return t.fn(ctx, copyFrame(f))
}

func (t *callbackTransport) Name() string { return t.name }

type channelTransport struct {
	name   string
	ch     chan Frame
	closed chan struct{}
	mu     sync.RWMutex
	once   sync.Once
}

func (t *channelTransport) Send(ctx context.Context, f Frame) error {
	// the read lock keeps close from closing ch under a blocked send
	t.mu.RLock()
	defer t.mu.RUnlock()

	select {
	case <-t.closed:
		return ErrChannelTransportClosed
	default:
	}

	select {
	case <-t.closed:
		return ErrChannelTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	case t.ch <- copyFrame(f):
		return nil
	}
}

func (t *channelTransport) Name() string { return t.name }

func (t *channelTransport) close() {
	t.once.Do(func() {
		close(t.closed)
		t.mu.Lock()
		close(t.ch)
		t.mu.Unlock()
	})
}

func copyFrame(f Frame) Frame {
	f.Data = append([]byte(nil), f.Data...)
	return f
}
