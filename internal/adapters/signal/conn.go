package signal

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Space/internal/core"
	"github.com/gorilla/websocket"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// WSConn is the slice of *websocket.Conn the pumps use, kept as an interface
// so conn tests run without a live socket.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	SetReadLimit(limit int64)
	Close() error
}

var _ WSConn = (*websocket.Conn)(nil)

type outFrame struct {
	data      core.Frame
	lifecycle bool
}

// wsSignalConn is the bounded outbound queue in front of one WebSocket.
// State frames (TrySend) evict the oldest state frame when the queue is
// full; lifecycle frames (Send) wait for a slot up to sendTimeout. Either
// failure mode surfaces as ErrBackpressure so the caller can apply policy.
type wsSignalConn struct {
	ws WSConn

	mu     sync.Mutex
	queue  []outFrame
	limit  int
	closed bool

	wake  chan struct{}
	space chan struct{}
	done  chan struct{}
	once  sync.Once

	sendTimeout time.Duration
}

func newWSSignalConn(ws WSConn, queueSize int, sendTimeout time.Duration) *wsSignalConn {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &wsSignalConn{
		ws:          ws,
		queue:       make([]outFrame, 0, queueSize),
		limit:       queueSize,
		wake:        make(chan struct{}, 1),
		space:       make(chan struct{}, 1),
		done:        make(chan struct{}),
		sendTimeout: sendTimeout,
	}
}

// TrySend enqueues a state frame. When the queue is full it evicts the
// oldest state frame to make room; a queue full of lifecycle frames
// reports backpressure instead.
func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	if len(c.queue) >= c.limit && !c.evictOldestStateLocked() {
		c.mu.Unlock()
		return ErrBackpressure
	}
	c.queue = append(c.queue, outFrame{data: f})
	c.mu.Unlock()
	c.signal(c.wake)
	return nil
}

// Send enqueues a lifecycle frame, waiting for queue space up to the send
// timeout. Lifecycle frames are never evicted once enqueued.
func (c *wsSignalConn) Send(f core.Frame) error {
	var timeout <-chan time.Time
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrConnClosed
		}
		if len(c.queue) < c.limit {
			c.queue = append(c.queue, outFrame{data: f, lifecycle: true})
			c.mu.Unlock()
			c.signal(c.wake)
			return nil
		}
		c.mu.Unlock()

		if timeout == nil {
			timer := time.NewTimer(c.sendTimeout)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-c.space:
		case <-c.done:
			return ErrConnClosed
		case <-timeout:
			return ErrBackpressure
		}
	}
}

func (c *wsSignalConn) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		_ = c.ws.Close()
	})
}

// pop hands the writer the next frame in submission order.
func (c *wsSignalConn) pop() (outFrame, bool) {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return outFrame{}, false
	}
	f := c.queue[0]
	c.queue = c.queue[1:]
	c.mu.Unlock()
	c.signal(c.space)
	return f, true
}

// evictOldestStateLocked drops the frontmost state frame. Caller holds mu.
func (c *wsSignalConn) evictOldestStateLocked() bool {
	for i, f := range c.queue {
		if !f.lifecycle {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (c *wsSignalConn) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
