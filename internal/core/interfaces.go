package core

// Frame is one encoded outbound message.
type Frame []byte

type SessionID string

// Class selects the overflow policy the transport applies to a frame.
type Class int

const (
	// ClassState frames (position updates) tolerate loss: a later frame
	// supersedes an older one, so overflow evicts the oldest state frame.
	ClassState Class = iota
	// ClassLifecycle frames (joins, leaves, chat, signaling, snapshots)
	// must not be silently dropped; the sender blocks up to a bounded
	// timeout and a failure marks the peer as chronically unresponsive.
	ClassLifecycle
)

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues a state frame without blocking.
	TrySend(Frame) error
	// Send enqueues a lifecycle frame, blocking up to the connection's
	// send timeout.
	Send(Frame) error
	Close()
}
