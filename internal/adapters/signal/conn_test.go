package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Space/internal/core"
)

type stubWS struct {
	closed bool
}

func (s *stubWS) ReadMessage() (int, []byte, error)        { return 0, nil, errors.New("stub") }
func (s *stubWS) WriteMessage(_ int, _ []byte) error       { return nil }
func (s *stubWS) SetWriteDeadline(time.Time) error         { return nil }
func (s *stubWS) SetReadDeadline(time.Time) error          { return nil }
func (s *stubWS) SetPongHandler(func(string) error)        {}
func (s *stubWS) SetReadLimit(int64)                       {}
func (s *stubWS) Close() error                             { s.closed = true; return nil }

func drain(c *wsSignalConn) []string {
	var out []string
	for {
		f, ok := c.pop()
		if !ok {
			return out
		}
		out = append(out, string(f.data))
	}
}

func TestTrySendEvictsOldestState(t *testing.T) {
	c := newWSSignalConn(&stubWS{}, 2, time.Second)
	for _, s := range []string{"a", "b", "c"} {
		if err := c.TrySend(core.Frame(s)); err != nil {
			t.Fatalf("TrySend %s: %v", s, err)
		}
	}
	if got := drain(c); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("expected oldest frame evicted, got %v", got)
	}
}

func TestLifecycleFramesAreNeverEvicted(t *testing.T) {
	c := newWSSignalConn(&stubWS{}, 2, time.Second)
	if err := c.Send(core.Frame("l1")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := c.TrySend(core.Frame("s1")); err != nil {
		t.Fatalf("TrySend: %v", err)
	}
	// Full queue: the state frame makes room, the lifecycle frame stays.
	if err := c.TrySend(core.Frame("s2")); err != nil {
		t.Fatalf("TrySend with evictable state frame: %v", err)
	}
	// Now the queue is lifecycle + state; evicting keeps working on state.
	if err := c.TrySend(core.Frame("s3")); err != nil {
		t.Fatalf("TrySend: %v", err)
	}
	got := drain(c)
	if len(got) != 2 || got[0] != "l1" || got[1] != "s3" {
		t.Fatalf("unexpected queue %v", got)
	}
}

func TestTrySendBackpressureWhenOnlyLifecycleQueued(t *testing.T) {
	c := newWSSignalConn(&stubWS{}, 2, time.Second)
	_ = c.Send(core.Frame("l1"))
	_ = c.Send(core.Frame("l2"))
	if err := c.TrySend(core.Frame("s1")); !errors.Is(err, ErrBackpressure) {
		t.Fatalf("expected ErrBackpressure, got %v", err)
	}
}

func TestSendTimesOutWhenFull(t *testing.T) {
	c := newWSSignalConn(&stubWS{}, 1, 20*time.Millisecond)
	_ = c.Send(core.Frame("l1"))

	start := time.Now()
	err := c.Send(core.Frame("l2"))
	if !errors.Is(err, ErrBackpressure) {
		t.Fatalf("expected ErrBackpressure, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Send returned before the timeout elapsed")
	}
}

func TestSendUnblocksWhenWriterDrains(t *testing.T) {
	c := newWSSignalConn(&stubWS{}, 1, time.Second)
	_ = c.Send(core.Frame("l1"))

	done := make(chan error, 1)
	go func() { done <- c.Send(core.Frame("l2")) }()

	time.Sleep(10 * time.Millisecond)
	if _, ok := c.pop(); !ok {
		t.Fatal("expected a queued frame")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send after drain: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after the queue drained")
	}
}

func TestCloseRejectsFurtherSends(t *testing.T) {
	ws := &stubWS{}
	c := newWSSignalConn(ws, 4, time.Second)
	c.Close()
	c.Close() // idempotent

	if !ws.closed {
		t.Error("underlying socket not closed")
	}
	if err := c.TrySend(core.Frame("x")); !errors.Is(err, ErrConnClosed) {
		t.Errorf("TrySend after close: %v", err)
	}
	if err := c.Send(core.Frame("x")); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Send after close: %v", err)
	}
}

func TestCloseUnblocksWaitingSend(t *testing.T) {
	c := newWSSignalConn(&stubWS{}, 1, time.Minute)
	_ = c.Send(core.Frame("l1"))

	done := make(chan error, 1)
	go func() { done <- c.Send(core.Frame("l2")) }()

	time.Sleep(10 * time.Millisecond)
	c.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrConnClosed) {
			t.Fatalf("expected ErrConnClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock on close")
	}
}

func TestPopPreservesSubmissionOrder(t *testing.T) {
	c := newWSSignalConn(&stubWS{}, 8, time.Second)
	_ = c.TrySend(core.Frame("s1"))
	_ = c.Send(core.Frame("l1"))
	_ = c.TrySend(core.Frame("s2"))

	got := drain(c)
	want := []string{"s1", "l1", "s2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order broken: got %v want %v", got, want)
		}
	}
}
