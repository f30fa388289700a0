package signal

import (
	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
	"github.com/dkeye/Space/internal/protocol"
)

// handleStreamToggle serves the start_<kind>_stream / stop_<kind>_stream
// family. Starting requires a stream id; stopping clears whatever is set.
func (ctl *SignalWSController) handleStreamToggle(sid core.SessionID, c *wsSignalConn, env protocol.Envelope, kind domain.MediaKind, start bool) {
	var p protocol.StreamToggle
	if err := env.Bind(&p); err != nil || p.UserID == "" || p.SpaceID == "" {
		ctl.Coord.Metrics.ProtocolError()
		ctl.sendError(c, env.Event, "user_id and space_id are required")
		return
	}
	if start && p.StreamID == "" {
		ctl.Coord.Metrics.ProtocolError()
		ctl.sendError(c, env.Event, "stream_id is required")
		return
	}
	if err := ctl.Coord.SetStream(sid, domain.UserID(p.UserID), domain.SpaceID(p.SpaceID), kind, p.StreamID, start); err != nil {
		ctl.sendError(c, env.Event, err.Error())
	}
}
