package network

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/coder/websocket"

	"github.com/ZentaChain/lcdrelay/pkg/protocol"
)

// Transports accepted by Dial
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// WebSocketPath is the relay HTTP path that accepts terminal connections
const WebSocketPath = "/ws"

var ErrUnknownTransport = errors.New("unknown transport")

// Dial connects to a relay. For "ws" addr is the relay's HTTP address; the
// returned conn carries one frame per binary message.
func Dial(ctx context.Context, transport, addr string) (net.Conn, error) {
	switch transport {
	case TransportTCP:
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial relay %s: %w", addr, err)
		}
		return conn, nil

	case TransportWebSocket:
		url := "ws://" + addr + WebSocketPath
		wsConn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial relay %s: %w", url, err)
		}
		wsConn.SetReadLimit(protocol.HeaderSize + protocol.MaxPayloadSize)
		return websocket.NetConn(context.WithoutCancel(ctx), wsConn, websocket.MessageBinary), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, transport)
	}
}
