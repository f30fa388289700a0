package signal

import (
	"context"
	"net/http"

	"github.com/dkeye/Space/internal/app"
	"github.com/dkeye/Space/internal/config"
	"github.com/dkeye/Space/internal/core"
	"github.com/dkeye/Space/internal/domain"
	"github.com/dkeye/Space/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type SignalWSController struct {
	Coord *app.Coordinator
	Cfg   *config.Config
}

func NewSignalWSController(coord *app.Coordinator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{Coord: coord, Cfg: cfg}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSpace upgrades the request and runs one session until the socket
// dies or the session is kicked. Identity is resolved by the identity
// middleware before the upgrade.
func (ctl *SignalWSController) HandleSpace(ctx context.Context, c *gin.Context) {
	user, err := domain.NewUser(
		domain.UserID(c.GetString("user_id")),
		c.GetString("user_name"),
		c.GetString("avatar"),
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWSSignalConn(ws, ctl.Cfg.SendQueueSize, ctl.Cfg.SendTimeout)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Connect(sid, user, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

// sendJSON delivers a direct reply to one session through its lifecycle
// queue, so replies keep their order relative to broadcasts.
func (ctl *SignalWSController) sendJSON(c *wsSignalConn, v any) {
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.Send(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}

func (ctl *SignalWSController) sendError(c *wsSignalConn, event, msg string) {
	if event != "" {
		msg = event + ": " + msg
	}
	ctl.sendJSON(c, protocol.ErrorReply{Event: protocol.EventError, Message: msg})
}
