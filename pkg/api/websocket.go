package api

import (
	"context"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/ZentaChain/lcdrelay/pkg/protocol"
)

// handleWebSocket handles GET /ws. The upgraded connection carries one
// frame per binary message and is served by the registry like a TCP
// terminal until it closes.
func (s *Server) handleWebSocket(c *gin.Context) {
	wsConn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("client", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}
	wsConn.SetReadLimit(protocol.HeaderSize + protocol.MaxPayloadSize)

	conn := websocket.NetConn(context.Background(), wsConn, websocket.MessageBinary)
	s.registry.Serve(conn)
}
