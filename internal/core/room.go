package core

import (
	"errors"

	"github.com/dkeye/Space/internal/domain"
)

// ErrRoomFull rejects a new participant once the space's capacity is
// reached. Re-upserting a user already present never hits it.
var ErrRoomFull = errors.New("room at capacity")

// PublishResult reports delivery stats/backpressure to the coordinator.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

// RoomSnapshot is a point-in-time copy of a room's participant state. It is
// what a late joiner receives; nothing in it aliases the room's internal maps.
type RoomSnapshot struct {
	Space     domain.Space
	Users     map[domain.UserID]domain.Profile
	Positions map[domain.UserID]domain.Position
	Media     map[domain.UserID]map[domain.MediaKind]string
}

// RoomService is the core-facing API of a room. It owns the subscriber and
// participant maps but never touches transport resources.
//
// UpsertParticipant takes ownership of the passed Participant; callers must
// not retain references to it. Everything handed back out is a copy.
type RoomService interface {
	Space() domain.Space
	ParticipantCount() int
	SubscriberCount() int
	Snapshot() RoomSnapshot

	// Subscribe attaches a session's connection to the fan-out set. It
	// reports false when the room has already been closed, in which case
	// the caller must obtain a fresh room from the factory.
	Subscribe(sid SessionID, conn SignalConnection) bool
	Unsubscribe(sid SessionID)

	// UpsertParticipant inserts or rebinds the participant, enforcing the
	// space's capacity atomically: a new user in a full room gets
	// ErrRoomFull, a user already present always succeeds.
	UpsertParticipant(sid SessionID, p *domain.Participant) error
	// RemoveParticipant deletes the participant only while sid still owns
	// it, so a stale session's cleanup cannot evict a re-joined user.
	RemoveParticipant(sid SessionID, uid domain.UserID) bool
	// UpdatePosition records the new position and returns the effective
	// facing direction (the previous one when dir is empty or unknown).
	UpdatePosition(uid domain.UserID, pos domain.Position, dir domain.Direction, moving bool) (domain.Direction, bool)
	SetStream(uid domain.UserID, kind domain.MediaKind, streamID string, active bool) bool
	SessionOf(uid domain.UserID) (SessionID, SignalConnection, bool)

	// CloseIfEmpty marks the room closed when no subscribers and no
	// participants remain, reporting whether it did so.
	CloseIfEmpty() bool

	// Broadcast delivers one frame to every subscriber except from.
	// Frames submitted through it are observed by every subscriber in
	// submission order.
	Broadcast(from SessionID, f Frame, cl Class) PublishResult
}

type RoomInfo struct {
	ID               domain.SpaceID `json:"id"`
	MapID            domain.MapID   `json:"map_id"`
	ParticipantCount int            `json:"participant_count"`
}

// RoomFactory creates rooms lazily and garbage-collects empty ones.
type RoomFactory interface {
	GetOrCreate(space domain.Space) RoomService
	Get(id domain.SpaceID) (RoomService, bool)
	Remove(id domain.SpaceID)
	List() []RoomInfo
}
