package signal

import (
	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
	"github.com/dkeye/Space/internal/protocol"
)

func (ctl *SignalWSController) handleMove(sid core.SessionID, c *wsSignalConn, env protocol.Envelope) {
	var p protocol.PositionMove
	if err := env.Bind(&p); err != nil || p.UserID == "" || p.SpaceID == "" {
		ctl.Coord.Metrics.ProtocolError()
		ctl.sendError(c, env.Event, "user_id and space_id are required")
		return
	}
	moving := p.IsMoving != nil && *p.IsMoving
	err := ctl.Coord.Move(sid,
		domain.UserID(p.UserID),
		domain.SpaceID(p.SpaceID),
		domain.Position{X: p.X, Y: p.Y},
		domain.Direction(p.Direction),
		moving,
	)
	if err != nil {
		ctl.sendError(c, env.Event, err.Error())
	}
}
