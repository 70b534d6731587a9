package network

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ZentaChain/lcdrelay/pkg/protocol"
	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

var (
	ErrSendFailed     = errors.New("send failed")
	ErrNotInitialized = errors.New("no id assigned yet")
	ErrLinkClosed     = errors.New("link closed")
)

// Link is the terminal side of a relay connection. It applies INIT, MESSAGE
// and ROSTER envelopes to the shared terminal state and sends MESSAGE
// envelopes on behalf of the UI. There is no reconnect; once Run returns the
// link is dead.
type Link struct {
	conn  net.Conn
	state *terminal.State
	log   zerolog.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	id     int
	closed bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewLink wraps an established relay connection
func NewLink(conn net.Conn, state *terminal.State, log zerolog.Logger) *Link {
	return &Link{
		conn:  conn,
		state: state,
		log:   log,
		done:  make(chan struct{}),
	}
}

// ID returns the relay-assigned id, or 0 before INIT
func (l *Link) ID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id
}

func (l *Link) setID(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.id = id
}

// Send writes a MESSAGE from this terminal to receiverID. Failures wrap
// ErrSendFailed and leave the link running. Text the relay could not decode
// (not UTF-8, or over the payload limit) is rejected before anything is
// written.
func (l *Link) Send(text string, receiverID int) error {
	l.mu.Lock()
	id, closed := l.id, l.closed
	l.mu.Unlock()

	if closed {
		return fmt.Errorf("%w: %w", ErrSendFailed, ErrLinkClosed)
	}
	if id == 0 {
		return fmt.Errorf("%w: %w", ErrSendFailed, ErrNotInitialized)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := protocol.WriteEnvelope(l.conn, protocol.NewTextMessage(id, receiverID, text)); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// Done is closed when the receive loop has stopped
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// Close closes the transport, which stops Run
func (l *Link) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	var err error
	l.closeOnce.Do(func() {
		err = l.conn.Close()
	})
	return err
}

// RemoteAddr returns the relay address
func (l *Link) RemoteAddr() string {
	return remoteAddr(l.conn)
}
