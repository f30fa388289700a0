package signal

import (
	"context"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
	"github.com/dkeye/Space/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleSubscribe(ctx context.Context, sid core.SessionID, c *wsSignalConn, env protocol.Envelope) {
	var p protocol.Subscribe
	if err := env.Bind(&p); err != nil || p.SpaceID == "" {
		ctl.Coord.Metrics.ProtocolError()
		ctl.sendError(c, env.Event, "space_id is required")
		return
	}

	space, err := ctl.Coord.Subscribe(ctx, sid, domain.SpaceID(p.SpaceID))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("space", p.SpaceID).Msg("subscribe rejected")
		ctl.sendError(c, env.Event, err.Error())
		return
	}
	ctl.sendJSON(c, protocol.Subscribed{
		Event:   protocol.EventSubscribed,
		SpaceID: space.ID,
	})
}

func (ctl *SignalWSController) handleJoin(sid core.SessionID, c *wsSignalConn, env protocol.Envelope) {
	var p protocol.Join
	if err := env.Bind(&p); err != nil || p.UserID == "" || p.SpaceID == "" {
		ctl.Coord.Metrics.ProtocolError()
		ctl.sendError(c, env.Event, "user_id and space_id are required")
		return
	}

	snap, err := ctl.Coord.Join(sid, domain.UserID(p.UserID), domain.SpaceID(p.SpaceID), domain.Position{X: p.X, Y: p.Y})
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("space", p.SpaceID).Msg("join rejected")
		ctl.sendError(c, env.Event, err.Error())
		return
	}
	ctl.sendJSON(c, protocol.SpaceState{
		Event:     protocol.EventSpaceState,
		SpaceID:   snap.Space.ID,
		MapID:     snap.Space.MapID,
		Users:     snap.Users,
		Positions: snap.Positions,
		MediaInfo: snap.Media,
	})
}

func (ctl *SignalWSController) handleLeft(sid core.SessionID, c *wsSignalConn, env protocol.Envelope) {
	var p protocol.Left
	if err := env.Bind(&p); err != nil || p.UserID == "" || p.SpaceID == "" {
		ctl.Coord.Metrics.ProtocolError()
		ctl.sendError(c, env.Event, "user_id and space_id are required")
		return
	}
	if err := ctl.Coord.Leave(sid, domain.UserID(p.UserID), domain.SpaceID(p.SpaceID)); err != nil {
		ctl.sendError(c, env.Event, err.Error())
	}
}

func (ctl *SignalWSController) handleChat(sid core.SessionID, c *wsSignalConn, env protocol.Envelope) {
	var p protocol.SendChat
	if err := env.Bind(&p); err != nil || p.SenderID == "" || p.SpaceID == "" || p.Content == "" {
		ctl.Coord.Metrics.ProtocolError()
		ctl.sendError(c, env.Event, "sender_id, space_id and content are required")
		return
	}
	if err := ctl.Coord.Chat(sid, domain.UserID(p.SenderID), domain.SpaceID(p.SpaceID), p.Content); err != nil {
		ctl.sendError(c, env.Event, err.Error())
	}
}
