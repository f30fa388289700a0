package app

import "github.com/dkeye/Space/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickSession
)

// Policy decides what to do with a subscriber that failed a lifecycle
// delivery. The default treats a chronically unresponsive client as
// disconnected.
type Policy interface {
	OnBackpressure(room core.RoomService, sid core.SessionID) BackpressureAction
}

type KickPolicy struct{}

func (KickPolicy) OnBackpressure(room core.RoomService, sid core.SessionID) BackpressureAction {
	return KickSession
}
