package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Space/internal/domain"
)

// fakeConn records frames in arrival order.
type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
}

func (c *fakeConn) TrySend(f Frame) error { return c.push(f) }
func (c *fakeConn) Send(f Frame) error    { return c.push(f) }
func (c *fakeConn) Close()                {}

func (c *fakeConn) push(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("peer unresponsive")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) received() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func newTestRoom() RoomService {
	return NewRoomService(domain.Space{ID: "office-1", MapID: "map-default"})
}

func mustUser(t *testing.T, id, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(domain.UserID(id), name, "")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	return u
}

func mustUpsert(t *testing.T, room RoomService, sid SessionID, p *domain.Participant) {
	t.Helper()
	if err := room.UpsertParticipant(sid, p); err != nil {
		t.Fatalf("UpsertParticipant: %v", err)
	}
}

func TestBroadcastExcludesOriginator(t *testing.T) {
	room := newTestRoom()
	a, b := &fakeConn{}, &fakeConn{}
	room.Subscribe("sid-a", a)
	room.Subscribe("sid-b", b)

	res := room.Broadcast("sid-a", Frame(`{"event":"position_update"}`), ClassState)
	if res.SentTo != 1 {
		t.Fatalf("expected 1 delivery, got %d", res.SentTo)
	}
	if len(a.received()) != 0 {
		t.Error("originator received its own broadcast")
	}
	if len(b.received()) != 1 {
		t.Errorf("expected 1 frame at b, got %d", len(b.received()))
	}
}

func TestBroadcastReportsDropped(t *testing.T) {
	room := newTestRoom()
	slow := &fakeConn{fail: true}
	room.Subscribe("sid-slow", slow)

	res := room.Broadcast("sid-x", Frame(`{}`), ClassLifecycle)
	if res.SentTo != 0 || len(res.Dropped) != 1 || res.Dropped[0] != "sid-slow" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	room := newTestRoom()
	u := mustUser(t, "u1", "alice")
	p := domain.NewParticipant(u, domain.Position{X: 100, Y: 100})
	p.Streams[domain.MediaAudio] = "stream-1"
	mustUpsert(t, room, "sid-a", p)

	snap := room.Snapshot()
	snap.Positions["u1"] = domain.Position{X: -1, Y: -1}
	snap.Media["u1"][domain.MediaAudio] = "tampered"
	delete(snap.Users, "u1")

	again := room.Snapshot()
	if got := again.Positions["u1"]; got.X != 100 || got.Y != 100 {
		t.Errorf("room position mutated through snapshot: %+v", got)
	}
	if again.Media["u1"][domain.MediaAudio] != "stream-1" {
		t.Error("room media mutated through snapshot")
	}
	if _, ok := again.Users["u1"]; !ok {
		t.Error("room users mutated through snapshot")
	}
}

func TestSnapshotIncludesEveryParticipant(t *testing.T) {
	room := newTestRoom()
	for _, id := range []string{"u1", "u2", "u3"} {
		u := mustUser(t, id, "user-"+id)
		mustUpsert(t, room, SessionID("sid-"+id), domain.NewParticipant(u, domain.Position{}))
	}
	snap := room.Snapshot()
	if len(snap.Users) != 3 || len(snap.Positions) != 3 || len(snap.Media) != 3 {
		t.Fatalf("incomplete snapshot: %d users, %d positions, %d media", len(snap.Users), len(snap.Positions), len(snap.Media))
	}
}

func TestRemoveParticipantIdempotent(t *testing.T) {
	room := newTestRoom()
	u := mustUser(t, "u1", "alice")
	mustUpsert(t, room, "sid-a", domain.NewParticipant(u, domain.Position{}))

	if !room.RemoveParticipant("sid-a", "u1") {
		t.Fatal("first removal should report true")
	}
	if room.RemoveParticipant("sid-a", "u1") {
		t.Fatal("second removal should be a no-op")
	}
}

func TestRemoveParticipantRequiresOwningSession(t *testing.T) {
	room := newTestRoom()
	u := mustUser(t, "u1", "alice")
	mustUpsert(t, room, "sid-1", domain.NewParticipant(u, domain.Position{}))
	// Reconnect: the user re-joins through a new session.
	mustUpsert(t, room, "sid-2", domain.NewParticipant(u, domain.Position{X: 5}))

	if room.RemoveParticipant("sid-1", "u1") {
		t.Fatal("stale session must not remove the rebound participant")
	}
	if room.ParticipantCount() != 1 {
		t.Fatal("participant lost to a stale removal")
	}
	if !room.RemoveParticipant("sid-2", "u1") {
		t.Fatal("owning session removal should succeed")
	}
}

func TestUpsertEnforcesCapacity(t *testing.T) {
	room := NewRoomService(domain.Space{ID: "tiny", MapID: "m", Capacity: 1})
	a := mustUser(t, "u1", "alice")
	b := mustUser(t, "u2", "bob")

	mustUpsert(t, room, "sid-1", domain.NewParticipant(a, domain.Position{}))
	if err := room.UpsertParticipant("sid-2", domain.NewParticipant(b, domain.Position{})); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	// A user already present re-joins regardless of capacity.
	if err := room.UpsertParticipant("sid-3", domain.NewParticipant(a, domain.Position{X: 9})); err != nil {
		t.Fatalf("re-join of a present user must not hit capacity: %v", err)
	}
	if room.ParticipantCount() != 1 {
		t.Fatalf("expected 1 participant, got %d", room.ParticipantCount())
	}
}

func TestCloseIfEmpty(t *testing.T) {
	room := newTestRoom()
	conn := &fakeConn{}
	room.Subscribe("sid-a", conn)

	if room.CloseIfEmpty() {
		t.Fatal("room with a subscriber must not close")
	}
	room.Unsubscribe("sid-a")
	if !room.CloseIfEmpty() {
		t.Fatal("empty room should close")
	}
	if room.Subscribe("sid-b", conn) {
		t.Fatal("subscribe to a closed room must be rejected")
	}
}

func TestSessionOfResolvesThroughSubscription(t *testing.T) {
	room := newTestRoom()
	conn := &fakeConn{}
	room.Subscribe("sid-a", conn)
	u := mustUser(t, "u1", "alice")
	mustUpsert(t, room, "sid-a", domain.NewParticipant(u, domain.Position{}))

	sid, got, ok := room.SessionOf("u1")
	if !ok || sid != "sid-a" || got != SignalConnection(conn) {
		t.Fatal("expected to resolve u1 to its connection")
	}
	if _, _, ok := room.SessionOf("ghost"); ok {
		t.Fatal("unknown user must not resolve")
	}
}

func TestUpdatePositionRequiresParticipant(t *testing.T) {
	room := newTestRoom()
	if _, ok := room.UpdatePosition("u1", domain.Position{X: 1}, domain.DirectionLeft, true); ok {
		t.Fatal("position update for absent participant must fail")
	}
	u := mustUser(t, "u1", "alice")
	mustUpsert(t, room, "sid-a", domain.NewParticipant(u, domain.Position{}))
	dir, ok := room.UpdatePosition("u1", domain.Position{X: 150, Y: 100}, domain.DirectionLeft, true)
	if !ok || dir != domain.DirectionLeft {
		t.Fatalf("position update should succeed with direction left, got %q", dir)
	}
	// An empty direction keeps the previous facing.
	dir, ok = room.UpdatePosition("u1", domain.Position{X: 151, Y: 100}, "", true)
	if !ok || dir != domain.DirectionLeft {
		t.Fatalf("expected direction to stick, got %q", dir)
	}
	snap := room.Snapshot()
	if got := snap.Positions["u1"]; got.X != 151 || got.Y != 100 {
		t.Errorf("position not applied: %+v", got)
	}
}

func TestSetStreamToggles(t *testing.T) {
	room := newTestRoom()
	u := mustUser(t, "u1", "alice")
	mustUpsert(t, room, "sid-a", domain.NewParticipant(u, domain.Position{}))

	if !room.SetStream("u1", domain.MediaVideo, "vid-1", true) {
		t.Fatal("start stream should succeed")
	}
	if got := room.Snapshot().Media["u1"][domain.MediaVideo]; got != "vid-1" {
		t.Errorf("stream not recorded: %q", got)
	}
	if !room.SetStream("u1", domain.MediaVideo, "", false) {
		t.Fatal("stop stream should succeed")
	}
	if _, ok := room.Snapshot().Media["u1"][domain.MediaVideo]; ok {
		t.Error("stream not cleared")
	}
}
