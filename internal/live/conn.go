package live

import (
	"errors"
	"sync"
)

var (
	// ErrConnClosed is returned by Send after Close.
	ErrConnClosed = errors.New("live connection closed")
	// ErrConnBacklogged is returned when the client is not draining its buffer.
	ErrConnBacklogged = errors.New("live connection backlogged")
)

// ChannelConn buffers frames for a stream handler to drain.
type ChannelConn struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewChannelConn constructs a connection holding up to buffer undelivered frames.
func NewChannelConn(buffer int) *ChannelConn {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelConn{
		frames: make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// Send queues frame without blocking.
func (c *ChannelConn) Send(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.frames <- frame:
		return nil
	default:
		return ErrConnBacklogged
	}
}

// Frames is drained by the stream handler.
func (c *ChannelConn) Frames() <-chan []byte {
	return c.frames
}

// Done is closed once the connection is closed.
func (c *ChannelConn) Done() <-chan struct{} {
	return c.done
}

func (c *ChannelConn) Close() {
	c.once.Do(func() { close(c.done) })
}
