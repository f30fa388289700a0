package signal

import (
	"github.com/dkeye/Space/internal/protocol"
)

func (ctl *SignalWSController) handlePing(c *wsSignalConn) {
	ctl.sendJSON(c, map[string]any{
		"event":     protocol.EventPong,
		"timestamp": protocol.Timestamp(),
	})
}
