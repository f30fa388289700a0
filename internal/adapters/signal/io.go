package signal

import (
	"context"
	"time"

	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// writePump drains the outbound queue onto the socket and keeps the
// connection alive with pings. Closing the conn on exit unblocks the
// read pump, so a canceled context tears the whole session down.
func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	ping := func() error {
		_ = c.ws.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout))
		if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
			log.Error().Err(err).Str("module", "signal").Msg("writePump ping error")
			return err
		}
		return nil
	}

	for {
		if f, ok := c.pop(); ok {
			if err := c.ws.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, f.data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
			// Sustained outbound traffic must not starve the keepalive.
			select {
			case <-ticker.C:
				if ping() != nil {
					return
				}
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-c.done:
			return
		case <-c.wake:
		case <-ticker.C:
			if ping() != nil {
				return
			}
		}
	}
}

// readPump pulls inbound frames and dispatches them. Every exit path runs
// the disconnect cleanup exactly once; the registry entry is the gate.
func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.Coord.Disconnect(sid)
	}()

	c.ws.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.ws.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(ctx, sid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleEvent(ctx context.Context, sid core.SessionID, c *wsSignalConn, data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		ctl.Coord.Metrics.ProtocolError()
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad frame")
		ctl.sendError(c, "", "malformed frame")
		return
	}
	ctl.Coord.Metrics.ObserveEvent(env.Event)

	switch env.Event {
	case protocol.EventPing:
		ctl.handlePing(c)
	case protocol.EventSubscribe:
		ctl.handleSubscribe(ctx, sid, c, env)
	case protocol.EventJoin:
		ctl.handleJoin(sid, c, env)
	case protocol.EventPositionMove:
		ctl.handleMove(sid, c, env)
	case protocol.EventSendChat:
		ctl.handleChat(sid, c, env)
	case protocol.EventLeft:
		ctl.handleLeft(sid, c, env)
	case protocol.EventWebRTCSignal:
		ctl.handleWebRTCSignal(sid, c, env)
	default:
		if kind, start, ok := protocol.ParseStreamEvent(env.Event); ok {
			ctl.handleStreamToggle(sid, c, env, kind, start)
			return
		}
		ctl.Coord.Metrics.ProtocolError()
		log.Warn().Str("module", "signal").Str("event", env.Event).Msg("unknown event")
		ctl.sendError(c, env.Event, "unknown event")
	}
}
