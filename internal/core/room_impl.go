package core

import (
	"sync"

	"github.com/dkeye/Space/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	space domain.Space

	mu           sync.RWMutex
	closed       bool
	subscribers  map[SessionID]SignalConnection
	participants map[domain.UserID]*domain.Participant
	byUser       map[domain.UserID]SessionID

	// sendMu serializes fan-out: broadcasts submitted in order are
	// observed in that order by every subscriber, while registry
	// mutations never wait behind a slow enqueue.
	sendMu sync.Mutex
}

func NewRoomService(space domain.Space) RoomService {
	return &roomImpl{
		space:        space,
		subscribers:  make(map[SessionID]SignalConnection),
		participants: make(map[domain.UserID]*domain.Participant),
		byUser:       make(map[domain.UserID]SessionID),
	}
}

func (r *roomImpl) Space() domain.Space { return r.space }

func (r *roomImpl) ParticipantCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

func (r *roomImpl) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

func (r *roomImpl) Subscribe(sid SessionID, conn SignalConnection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.subscribers[sid] = conn
	log.Debug().Str("module", "core.room").Str("space", string(r.space.ID)).Str("sid", string(sid)).Msg("session subscribed")
	return true
}

func (r *roomImpl) Unsubscribe(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, sid)
}

func (r *roomImpl) UpsertParticipant(sid SessionID, p *domain.Participant) error {
	uid := p.User.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, present := r.byUser[uid]
	// The capacity check and the insert share the lock, so two sessions
	// racing into a nearly-full room cannot both pass it.
	if !present {
		if cap := r.space.Capacity; cap > 0 && len(r.participants) >= cap {
			return ErrRoomFull
		}
	}
	// A re-join simply overwrites the previous entry; if the user was
	// present through another session, that session loses ownership.
	if present && prev != sid {
		log.Warn().Str("module", "core.room").Str("space", string(r.space.ID)).Str("user", string(uid)).Msg("participant rebound to new session")
	}
	r.participants[uid] = p
	r.byUser[uid] = sid
	log.Info().Str("module", "core.room").Str("space", string(r.space.ID)).Str("sid", string(sid)).Str("user", string(uid)).Msg("participant added")
	return nil
}

func (r *roomImpl) RemoveParticipant(sid SessionID, uid domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[uid]; !ok {
		return false
	}
	// Ownership check: after a reconnect rebinds the user to a new
	// session, the old session's cleanup must not evict the live entry.
	if r.byUser[uid] != sid {
		log.Debug().Str("module", "core.room").Str("space", string(r.space.ID)).Str("sid", string(sid)).Str("user", string(uid)).Msg("stale remove ignored")
		return false
	}
	delete(r.participants, uid)
	delete(r.byUser, uid)
	log.Info().Str("module", "core.room").Str("space", string(r.space.ID)).Str("user", string(uid)).Msg("participant removed")
	return true
}

func (r *roomImpl) UpdatePosition(uid domain.UserID, pos domain.Position, dir domain.Direction, moving bool) (domain.Direction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[uid]
	if !ok {
		return "", false
	}
	p.Position = pos
	if dir.Valid() {
		p.Direction = dir
	}
	p.IsMoving = moving
	return p.Direction, true
}

func (r *roomImpl) SetStream(uid domain.UserID, kind domain.MediaKind, streamID string, active bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[uid]
	if !ok {
		return false
	}
	if active {
		p.Streams[kind] = streamID
	} else {
		delete(p.Streams, kind)
	}
	return true
}

func (r *roomImpl) SessionOf(uid domain.UserID) (SessionID, SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.byUser[uid]
	if !ok {
		return "", nil, false
	}
	conn, ok := r.subscribers[sid]
	return sid, conn, ok
}

func (r *roomImpl) Snapshot() RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := RoomSnapshot{
		Space:     r.space,
		Users:     make(map[domain.UserID]domain.Profile, len(r.participants)),
		Positions: make(map[domain.UserID]domain.Position, len(r.participants)),
		Media:     make(map[domain.UserID]map[domain.MediaKind]string, len(r.participants)),
	}
	for uid, p := range r.participants {
		snap.Users[uid] = p.User.Profile
		snap.Positions[uid] = p.Position
		streams := make(map[domain.MediaKind]string, len(p.Streams))
		for k, v := range p.Streams {
			streams[k] = v
		}
		snap.Media[uid] = streams
	}
	return snap
}

func (r *roomImpl) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(r.subscribers) > 0 || len(r.participants) > 0 {
		return false
	}
	r.closed = true
	log.Info().Str("module", "core.room").Str("space", string(r.space.ID)).Msg("room closed")
	return true
}

type recipient struct {
	sid  SessionID
	conn SignalConnection
}

func (r *roomImpl) Broadcast(from SessionID, f Frame, cl Class) PublishResult {
	// Taking sendMu before the recipient snapshot makes the snapshot
	// order match the delivery order.
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.RLock()
	recipients := make([]recipient, 0, len(r.subscribers))
	for sid, conn := range r.subscribers {
		if sid == from {
			continue
		}
		recipients = append(recipients, recipient{sid: sid, conn: conn})
	}
	r.mu.RUnlock()

	res := PublishResult{}
	for _, rc := range recipients {
		var err error
		if cl == ClassLifecycle {
			err = rc.conn.Send(f)
		} else {
			err = rc.conn.TrySend(f)
		}
		if err != nil {
			res.Dropped = append(res.Dropped, rc.sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("space", string(r.space.ID)).Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
