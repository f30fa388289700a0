package domain

type (
	SpaceID string
	MapID   string
)

// Space holds the static attributes of a virtual space as reported by the
// space directory. MapID is fixed at first subscribe and never changes for
// the lifetime of the room built on top of it.
type Space struct {
	ID       SpaceID `json:"id"`
	MapID    MapID   `json:"map_id"`
	Capacity int     `json:"capacity"` // 0 means unbounded
}
