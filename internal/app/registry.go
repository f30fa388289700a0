package app

import (
	"context"
	"sync"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	User       *domain.User
	Conn       core.SignalConnection
	Subscribed domain.SpaceID
	Joined     bool
	Cancel     context.CancelFunc
}

// Session is a read-only copy of a registry entry, safe to use outside the
// registry lock.
type Session struct {
	ID         core.SessionID
	User       *domain.User
	Conn       core.SignalConnection
	Subscribed domain.SpaceID
	Joined     bool
}

// Registry is the table of live connection sessions. It owns nothing about
// rooms; the coordinator keeps it and the room registry consistent.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (r *Registry) Bind(sid core.SessionID, user *domain.User, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{User: user, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("bound session")
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *Registry) Lookup(sid core.SessionID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return Session{}, false
	}
	return Session{ID: sid, User: e.User, Conn: e.Conn, Subscribed: e.Subscribed, Joined: e.Joined}, true
}

func (r *Registry) SetSubscribed(sid core.SessionID, space domain.SpaceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Subscribed = space
		e.Joined = false
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("space", string(space)).Msg("updated subscription")
	}
}

func (r *Registry) SetJoined(sid core.SessionID, joined bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Joined = joined
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cancel fires the session's cancel func, tearing down its pumps. Cleanup
// then follows the normal disconnect path.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
