// Package protocol defines the wire catalog of the space synchronization
// protocol: every frame is a JSON object carrying an `event` discriminator,
// decoded into a typed payload before any handler touches shared state.
package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dkeye/Space/internal/domain"
)

// Inbound event kinds.
const (
	EventSubscribe    = "subscribe"
	EventJoin         = "join"
	EventPositionMove = "position_move"
	EventSendChat     = "send_chat_message"
	EventLeft         = "left"
	EventWebRTCSignal = "webrtc_signal"
	EventPing         = "ping"
)

// Outbound event kinds.
const (
	EventSubscribed     = "subscribed"
	EventSpaceState     = "space_state"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventPositionUpdate = "position_update"
	EventChatMessage    = "CHAT_MESSAGE"
	EventSignalForward  = "WEBRTC_SIGNAL"
	EventError          = "error"
	EventPong           = "pong"
)

var (
	ErrMalformed = errors.New("malformed envelope")
	ErrNoEvent   = errors.New("missing event tag")
)

// Envelope is the decoded discriminator plus the raw frame for a second,
// kind-specific decode pass.
type Envelope struct {
	Event string
	raw   []byte
}

func DecodeEnvelope(data []byte) (Envelope, error) {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, ErrMalformed
	}
	if head.Event == "" {
		return Envelope{}, ErrNoEvent
	}
	return Envelope{Event: head.Event, raw: data}, nil
}

// Bind decodes the full frame into a typed payload struct.
func (e Envelope) Bind(v any) error {
	return json.Unmarshal(e.raw, v)
}

// ParseStreamEvent reports whether event is a media stream toggle
// (start_<kind>_stream / stop_<kind>_stream) and, if so, which kind it
// addresses and whether it starts the stream.
func ParseStreamEvent(event string) (kind domain.MediaKind, start bool, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(event, "start_"):
		start, rest = true, strings.TrimPrefix(event, "start_")
	case strings.HasPrefix(event, "stop_"):
		rest = strings.TrimPrefix(event, "stop_")
	default:
		return "", false, false
	}
	rest, found := strings.CutSuffix(rest, "_stream")
	if !found {
		return "", false, false
	}
	kind = domain.MediaKind(rest)
	if !kind.Valid() {
		return "", false, false
	}
	return kind, start, true
}

// StreamEventName maps a media kind to its outbound broadcast name,
// e.g. AUDIO_STREAM_STARTED.
func StreamEventName(kind domain.MediaKind, started bool) string {
	suffix := "_STREAM_STOPPED"
	if started {
		suffix = "_STREAM_STARTED"
	}
	return strings.ToUpper(string(kind)) + suffix
}

// Timestamp is the wire clock: unix milliseconds.
func Timestamp() int64 {
	return time.Now().UnixMilli()
}

// ----- inbound payloads -----

type Subscribe struct {
	SpaceID string `json:"space_id"`
}

type Join struct {
	UserID  string  `json:"user_id"`
	SpaceID string  `json:"space_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type PositionMove struct {
	UserID    string  `json:"user_id"`
	SpaceID   string  `json:"space_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction,omitempty"`
	IsMoving  *bool   `json:"isMoving,omitempty"`
}

type SendChat struct {
	SenderID string `json:"sender_id"`
	SpaceID  string `json:"space_id"`
	Content  string `json:"content"`
}

type Left struct {
	UserID  string `json:"user_id"`
	SpaceID string `json:"space_id"`
}

type WebRTCSignal struct {
	SignalType string          `json:"signal_type"`
	ToUserID   string          `json:"to_user_id"`
	SpaceID    string          `json:"space_id"`
	Data       json.RawMessage `json:"data"`
}

type StreamToggle struct {
	UserID   string `json:"user_id"`
	SpaceID  string `json:"space_id"`
	StreamID string `json:"stream_id,omitempty"`
}

// ----- outbound payloads -----

type Subscribed struct {
	Event   string         `json:"event"`
	SpaceID domain.SpaceID `json:"space_id"`
}

type SpaceState struct {
	Event     string                                        `json:"event"`
	SpaceID   domain.SpaceID                                `json:"space_id"`
	MapID     domain.MapID                                  `json:"map_id"`
	Users     map[domain.UserID]domain.Profile              `json:"users"`
	Positions map[domain.UserID]domain.Position             `json:"positions"`
	MediaInfo map[domain.UserID]map[domain.MediaKind]string `json:"media_info"`
}

type UserJoined struct {
	Event    string         `json:"event"`
	UserID   domain.UserID  `json:"user_id"`
	SpaceID  domain.SpaceID `json:"space_id"`
	UserData domain.Profile `json:"user_data"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
}

type UserLeft struct {
	Event   string         `json:"event"`
	UserID  domain.UserID  `json:"user_id"`
	SpaceID domain.SpaceID `json:"space_id"`
}

type PositionUpdate struct {
	Event     string           `json:"event"`
	UserID    domain.UserID    `json:"user_id"`
	SpaceID   domain.SpaceID   `json:"space_id"`
	NX        float64          `json:"nx"`
	NY        float64          `json:"ny"`
	Direction domain.Direction `json:"direction"`
	IsMoving  bool             `json:"isMoving"`
}

type ChatMessage struct {
	Event     string         `json:"event"`
	UserID    domain.UserID  `json:"user_id"`
	UserName  string         `json:"user_name"`
	SpaceID   domain.SpaceID `json:"space_id"`
	Message   string         `json:"message"`
	Timestamp int64          `json:"timestamp"`
}

type SignalForward struct {
	Event      string          `json:"event"`
	SignalType string          `json:"signal_type"`
	FromUserID domain.UserID   `json:"from_user_id"`
	SpaceID    domain.SpaceID  `json:"space_id"`
	Data       json.RawMessage `json:"data"`
	Timestamp  int64           `json:"timestamp"`
}

type StreamEvent struct {
	Event     string         `json:"event"`
	UserID    domain.UserID  `json:"user_id"`
	UserName  string         `json:"user_name"`
	SpaceID   domain.SpaceID `json:"space_id"`
	StreamID  string         `json:"stream_id"`
	Timestamp int64          `json:"timestamp"`
}

type ErrorReply struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// Encode marshals an outbound payload. Payload structs are plain data, so a
// marshal failure indicates a programming error and is surfaced to the caller
// rather than swallowed.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
