package signal

import (
	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
	"github.com/dkeye/Space/internal/protocol"
)

// handleWebRTCSignal forwards an opaque peer negotiation payload. The
// engine never inspects Data; it only addresses the frame.
func (ctl *SignalWSController) handleWebRTCSignal(sid core.SessionID, c *wsSignalConn, env protocol.Envelope) {
	var p protocol.WebRTCSignal
	if err := env.Bind(&p); err != nil || p.SignalType == "" || p.ToUserID == "" || p.SpaceID == "" {
		ctl.Coord.Metrics.ProtocolError()
		ctl.sendError(c, env.Event, "signal_type, to_user_id and space_id are required")
		return
	}
	if err := ctl.Coord.Relay(sid, domain.SpaceID(p.SpaceID), p); err != nil {
		ctl.sendError(c, env.Event, err.Error())
	}
}
