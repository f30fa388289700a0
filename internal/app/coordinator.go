package app

import (
	"context"
	"errors"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
	"github.com/dkeye/Space/internal/protocol"
	"github.com/rs/zerolog/log"
)

// State machine violations surfaced to the client as error replies.
var (
	ErrUnknownSession   = errors.New("unknown session")
	ErrNotSubscribed    = errors.New("not subscribed to this space")
	ErrNotJoined        = errors.New("not joined to this space")
	ErrIdentityMismatch = errors.New("user id does not belong to this session")
	ErrSpaceFull        = errors.New("space is at capacity")
)

// Coordinator drives the per-(session, space) lifecycle:
// Unsubscribed -> Subscribed -> Joined -> (Left | Disconnected).
// It is the only component that mutates room and registry state, so the
// locking discipline has a single enforcement point. Transport disconnects
// funnel into Disconnect, which performs the same cleanup as an explicit
// leave.
type Coordinator struct {
	Registry  *Registry
	Rooms     core.RoomFactory
	Directory SpaceDirectory
	Policy    Policy
	Metrics   *Metrics
	Throttle  *PositionThrottle
}

// Connect binds a freshly upgraded connection to the registry. Identity is
// supplied by the external identity provider and trusted from here on.
func (c *Coordinator) Connect(sid core.SessionID, user *domain.User, conn core.SignalConnection, cancel context.CancelFunc) {
	c.Registry.Bind(sid, user, conn, cancel)
	c.Metrics.ConnectionOpened()
}

// Subscribe attaches the session to a room, creating it lazily with the
// attributes the space directory reports. Subscribing to a different space
// while joined elsewhere performs the implicit leave first, so a user is
// never present in two rooms.
func (c *Coordinator) Subscribe(ctx context.Context, sid core.SessionID, spaceID domain.SpaceID) (domain.Space, error) {
	sess, ok := c.Registry.Lookup(sid)
	if !ok {
		return domain.Space{}, ErrUnknownSession
	}
	space, err := c.Directory.Lookup(ctx, spaceID)
	if err != nil {
		return domain.Space{}, err
	}
	if sess.Subscribed == spaceID {
		// Idempotent re-subscribe; the room attachment is already live.
		return space, nil
	}
	if sess.Subscribed != "" {
		c.detach(sess, true)
	}
	c.attach(sid, sess.Conn, space)
	c.Registry.SetSubscribed(sid, spaceID)
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("space", string(spaceID)).Msg("subscribed")
	return space, nil
}

// Join inserts the session's user as a participant and returns the room
// snapshot taken after the insert, so the joiner sees everyone present
// including itself. Re-joining overwrites the previous entry.
func (c *Coordinator) Join(sid core.SessionID, uid domain.UserID, spaceID domain.SpaceID, pos domain.Position) (core.RoomSnapshot, error) {
	sess, room, err := c.authorize(sid, uid, spaceID)
	if err != nil {
		return core.RoomSnapshot{}, err
	}
	// The room enforces capacity atomically with the insert.
	if err := room.UpsertParticipant(sid, domain.NewParticipant(sess.User, pos)); err != nil {
		if errors.Is(err, core.ErrRoomFull) {
			return core.RoomSnapshot{}, ErrSpaceFull
		}
		return core.RoomSnapshot{}, err
	}
	c.Registry.SetJoined(sid, true)
	snap := room.Snapshot()

	c.broadcast(room, sid, protocol.EventUserJoined, protocol.UserJoined{
		Event:    protocol.EventUserJoined,
		UserID:   uid,
		SpaceID:  spaceID,
		UserData: sess.User.Profile,
		X:        pos.X,
		Y:        pos.Y,
	}, core.ClassLifecycle)
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("user", string(uid)).Str("space", string(spaceID)).Msg("joined")
	return snap, nil
}

// Move records a participant's new position and fans out position_update to
// the rest of the room. State is always recorded; the fan-out is coalesced
// by the position throttle.
func (c *Coordinator) Move(sid core.SessionID, uid domain.UserID, spaceID domain.SpaceID, pos domain.Position, dir domain.Direction, moving bool) error {
	sess, room, err := c.authorize(sid, uid, spaceID)
	if err != nil {
		return err
	}
	if !sess.Joined {
		return ErrNotJoined
	}
	effective, ok := room.UpdatePosition(uid, pos, dir, moving)
	if !ok {
		return ErrNotJoined
	}
	if !c.Throttle.Allow(uid) {
		return nil
	}
	c.broadcast(room, sid, protocol.EventPositionUpdate, protocol.PositionUpdate{
		Event:     protocol.EventPositionUpdate,
		UserID:    uid,
		SpaceID:   spaceID,
		NX:        pos.X,
		NY:        pos.Y,
		Direction: effective,
		IsMoving:  moving,
	}, core.ClassState)
	return nil
}

// Chat fans a chat message out to the rest of the room. Nothing is
// persisted; durable history is an external concern.
func (c *Coordinator) Chat(sid core.SessionID, uid domain.UserID, spaceID domain.SpaceID, content string) error {
	sess, room, err := c.authorize(sid, uid, spaceID)
	if err != nil {
		return err
	}
	if !sess.Joined {
		return ErrNotJoined
	}
	c.broadcast(room, sid, protocol.EventChatMessage, protocol.ChatMessage{
		Event:     protocol.EventChatMessage,
		UserID:    uid,
		UserName:  sess.User.Profile.Username,
		SpaceID:   spaceID,
		Message:   content,
		Timestamp: protocol.Timestamp(),
	}, core.ClassLifecycle)
	return nil
}

// SetStream toggles one of the participant's media stream slots and
// broadcasts the corresponding <KIND>_STREAM_STARTED/STOPPED event.
func (c *Coordinator) SetStream(sid core.SessionID, uid domain.UserID, spaceID domain.SpaceID, kind domain.MediaKind, streamID string, start bool) error {
	sess, room, err := c.authorize(sid, uid, spaceID)
	if err != nil {
		return err
	}
	if !sess.Joined {
		return ErrNotJoined
	}
	if !room.SetStream(uid, kind, streamID, start) {
		return ErrNotJoined
	}
	event := protocol.StreamEventName(kind, start)
	c.broadcast(room, sid, event, protocol.StreamEvent{
		Event:     event,
		UserID:    uid,
		UserName:  sess.User.Profile.Username,
		SpaceID:   spaceID,
		StreamID:  streamID,
		Timestamp: protocol.Timestamp(),
	}, core.ClassLifecycle)
	return nil
}

// Relay forwards an opaque signaling payload to the addressed participant's
// session. No retry, no buffering: an absent recipient means the payload is
// dropped and nobody else ever sees it.
func (c *Coordinator) Relay(sid core.SessionID, spaceID domain.SpaceID, sig protocol.WebRTCSignal) error {
	sess, ok := c.Registry.Lookup(sid)
	if !ok {
		return ErrUnknownSession
	}
	if sess.Subscribed != spaceID {
		return ErrNotSubscribed
	}
	if !sess.Joined {
		return ErrNotJoined
	}
	room, ok := c.Rooms.Get(spaceID)
	if !ok {
		return ErrNotSubscribed
	}
	toSID, conn, ok := room.SessionOf(domain.UserID(sig.ToUserID))
	if !ok {
		c.Metrics.SignalDropped()
		log.Debug().Str("module", "app.coordinator").Str("to", sig.ToUserID).Str("space", string(spaceID)).Msg("signal recipient absent, dropped")
		return nil
	}
	frame, err := protocol.Encode(protocol.SignalForward{
		Event:      protocol.EventSignalForward,
		SignalType: sig.SignalType,
		FromUserID: sess.User.ID,
		SpaceID:    spaceID,
		Data:       sig.Data,
		Timestamp:  protocol.Timestamp(),
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("encode signal forward")
		return nil
	}
	if err := conn.Send(core.Frame(frame)); err != nil {
		c.Metrics.SignalDropped()
		c.applyBackpressure(room, core.PublishResult{Dropped: []core.SessionID{toSID}})
		return nil
	}
	c.Metrics.SignalRelayed()
	return nil
}

// Leave handles an explicit left event: the participant is removed,
// user_left is broadcast, and the session detaches from the room. A second
// leave for the same (user, space) is a harmless no-op.
func (c *Coordinator) Leave(sid core.SessionID, uid domain.UserID, spaceID domain.SpaceID) error {
	sess, ok := c.Registry.Lookup(sid)
	if !ok {
		return ErrUnknownSession
	}
	if uid != sess.User.ID {
		return ErrIdentityMismatch
	}
	if sess.Subscribed != spaceID {
		log.Debug().Str("module", "app.coordinator").Str("sid", string(sid)).Str("space", string(spaceID)).Msg("duplicate leave ignored")
		return nil
	}
	c.detach(sess, true)
	c.Registry.SetSubscribed(sid, "")
	return nil
}

// Disconnect reconciles state after a transport close. It is safe to call
// more than once; the registry entry acts as the exactly-once gate.
func (c *Coordinator) Disconnect(sid core.SessionID) {
	sess, ok := c.Registry.Lookup(sid)
	if !ok {
		return
	}
	c.detach(sess, true)
	c.Registry.Unbind(sid)
	c.Metrics.ConnectionClosed()
	log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Msg("session disconnected")
}

// authorize checks the structural preconditions shared by all in-room
// operations: the session exists, owns the user id, and is subscribed to the
// addressed space.
func (c *Coordinator) authorize(sid core.SessionID, uid domain.UserID, spaceID domain.SpaceID) (Session, core.RoomService, error) {
	sess, ok := c.Registry.Lookup(sid)
	if !ok {
		return Session{}, nil, ErrUnknownSession
	}
	if uid != sess.User.ID {
		return Session{}, nil, ErrIdentityMismatch
	}
	if spaceID == "" || sess.Subscribed != spaceID {
		return Session{}, nil, ErrNotSubscribed
	}
	room, ok := c.Rooms.Get(spaceID)
	if !ok {
		return Session{}, nil, ErrNotSubscribed
	}
	return sess, room, nil
}

// attach subscribes the connection to the space's room, retrying when it
// loses the race against room garbage collection.
func (c *Coordinator) attach(sid core.SessionID, conn core.SignalConnection, space domain.Space) core.RoomService {
	for {
		room := c.Rooms.GetOrCreate(space)
		if room.Subscribe(sid, conn) {
			return room
		}
	}
}

// detach removes the participant (broadcasting user_left when announce is
// set), drops the room subscription, and garbage-collects the room once it
// is fully empty.
func (c *Coordinator) detach(sess Session, announce bool) {
	if sess.Subscribed == "" {
		return
	}
	room, ok := c.Rooms.Get(sess.Subscribed)
	if ok {
		if sess.Joined && room.RemoveParticipant(sess.ID, sess.User.ID) {
			c.Throttle.Forget(sess.User.ID)
			c.Registry.SetJoined(sess.ID, false)
			if announce {
				c.broadcast(room, sess.ID, protocol.EventUserLeft, protocol.UserLeft{
					Event:   protocol.EventUserLeft,
					UserID:  sess.User.ID,
					SpaceID: sess.Subscribed,
				}, core.ClassLifecycle)
			}
		}
		room.Unsubscribe(sess.ID)
	}
	c.Rooms.Remove(sess.Subscribed)
}

func (c *Coordinator) broadcast(room core.RoomService, from core.SessionID, event string, v any, cl core.Class) {
	frame, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("event", event).Msg("encode broadcast")
		return
	}
	res := room.Broadcast(from, core.Frame(frame), cl)
	c.Metrics.ObserveBroadcast(event, res.SentTo, len(res.Dropped))
	if cl == core.ClassLifecycle {
		c.applyBackpressure(room, res)
	}
}

func (c *Coordinator) applyBackpressure(room core.RoomService, res core.PublishResult) {
	if c.Policy == nil {
		return
	}
	for _, sid := range res.Dropped {
		if c.Policy.OnBackpressure(room, sid) == KickSession {
			c.Metrics.SessionKicked()
			c.Registry.Cancel(sid)
		}
	}
}
