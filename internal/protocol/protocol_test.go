package protocol

import (
	"encoding/json"
	"testing"

	"github.com/dkeye/Space/internal/domain"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		event   string
		wantErr error
	}{
		{"valid", `{"event":"join","user_id":"u1"}`, "join", nil},
		{"missing tag", `{"user_id":"u1"}`, "", ErrNoEvent},
		{"not json", `joined?`, "", ErrMalformed},
		{"not an object", `[1,2,3]`, "", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.data))
			if err != tt.wantErr {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if env.Event != tt.event {
				t.Errorf("event = %q, want %q", env.Event, tt.event)
			}
		})
	}
}

func TestEnvelopeBind(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"position_move","user_id":"u1","space_id":"s1","x":150,"y":100,"direction":"left"}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	var p PositionMove
	if err := env.Bind(&p); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if p.UserID != "u1" || p.SpaceID != "s1" || p.X != 150 || p.Y != 100 || p.Direction != "left" {
		t.Errorf("unexpected payload %+v", p)
	}
	if p.IsMoving != nil {
		t.Error("isMoving should stay nil when absent")
	}
}

func TestParseStreamEvent(t *testing.T) {
	tests := []struct {
		event string
		kind  domain.MediaKind
		start bool
		ok    bool
	}{
		{"start_audio_stream", domain.MediaAudio, true, true},
		{"stop_audio_stream", domain.MediaAudio, false, true},
		{"start_video_stream", domain.MediaVideo, true, true},
		{"stop_screen_stream", domain.MediaScreen, false, true},
		{"start_hologram_stream", "", false, false},
		{"start_audio", "", false, false},
		{"join", "", false, false},
	}
	for _, tt := range tests {
		kind, start, ok := ParseStreamEvent(tt.event)
		if ok != tt.ok || kind != tt.kind || start != tt.start {
			t.Errorf("ParseStreamEvent(%q) = (%q,%v,%v), want (%q,%v,%v)",
				tt.event, kind, start, ok, tt.kind, tt.start, tt.ok)
		}
	}
}

func TestStreamEventName(t *testing.T) {
	if got := StreamEventName(domain.MediaAudio, true); got != "AUDIO_STREAM_STARTED" {
		t.Errorf("got %q", got)
	}
	if got := StreamEventName(domain.MediaScreen, false); got != "SCREEN_STREAM_STOPPED" {
		t.Errorf("got %q", got)
	}
}

func TestSignalDataStaysOpaque(t *testing.T) {
	raw := `{"event":"webrtc_signal","signal_type":"offer","to_user_id":"u2","space_id":"s1","data":{"sdp":"v=0...","nested":{"k":1}}}`
	env, err := DecodeEnvelope([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	var sig WebRTCSignal
	if err := env.Bind(&sig); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	fwd := SignalForward{
		Event:      EventSignalForward,
		SignalType: sig.SignalType,
		FromUserID: "u1",
		SpaceID:    "s1",
		Data:       sig.Data,
		Timestamp:  1234,
	}
	out, err := Encode(fwd)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(decoded["data"]) != `{"sdp":"v=0...","nested":{"k":1}}` {
		t.Errorf("signal payload was rewritten: %s", decoded["data"])
	}
}
