package app

import (
	"sync"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.SpaceID]core.RoomService
}

func NewRoomManager() core.RoomFactory {
	return &RoomManagerImpl{rooms: make(map[domain.SpaceID]core.RoomService)}
}

func (f *RoomManagerImpl) GetOrCreate(space domain.Space) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[space.ID]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[space.ID]; ok {
		return room
	}
	room = core.NewRoomService(space)
	f.rooms[space.ID] = room
	log.Info().Str("module", "app.rooms").Str("space", string(space.ID)).Str("map", string(space.MapID)).Msg("room created")
	return room
}

func (f *RoomManagerImpl) Get(id domain.SpaceID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

// Remove deletes the room if it is empty. Closing under the manager lock
// keeps GetOrCreate from handing out a room that is about to disappear.
func (f *RoomManagerImpl) Remove(id domain.SpaceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return
	}
	if room.CloseIfEmpty() {
		delete(f.rooms, id)
		log.Info().Str("module", "app.rooms").Str("space", string(id)).Msg("room removed")
	}
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		out = append(out, core.RoomInfo{ID: id, MapID: r.Space().MapID, ParticipantCount: r.ParticipantCount()})
	}
	return out
}
