package domain

// Direction is the facing direction of a participant's avatar.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return true
	}
	return false
}

// MediaKind identifies one of the media stream slots a participant may hold.
type MediaKind string

const (
	MediaAudio  MediaKind = "audio"
	MediaVideo  MediaKind = "video"
	MediaScreen MediaKind = "screen"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaAudio, MediaVideo, MediaScreen:
		return true
	}
	return false
}

// Position is a point on the space's plane.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Participant is a user's live state inside one room: last position, facing
// direction, movement flag and the set of active media streams keyed by kind.
// Stream identifiers are opaque to the engine.
type Participant struct {
	User      *User
	Position  Position
	Direction Direction
	IsMoving  bool
	Streams   map[MediaKind]string
}

func NewParticipant(user *User, pos Position) *Participant {
	return &Participant{
		User:      user,
		Position:  pos,
		Direction: DirectionDown,
		Streams:   make(map[MediaKind]string),
	}
}
