package network

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZentaChain/lcdrelay/pkg/protocol"
)

// SessionState represents the lifecycle state of a relay session.
type SessionState string

const (
	// StateConnecting means the transport is accepted but has no id yet.
	StateConnecting SessionState = "connecting"
	// StateHandshaking means the id is assigned and INIT is being written.
	StateHandshaking SessionState = "handshaking"
	// StateActive means the session is registered and reading envelopes.
	StateActive SessionState = "active"
	// StateClosed means the transport is gone and the id is released.
	StateClosed SessionState = "closed"
)

// Session is the relay side of one connected terminal.
//
// Lifecycle:
//  1. Registry.Accept assigns the id and writes INIT → Handshaking
//  2. run broadcasts the roster and starts reading → Active
//  3. Read or decode failure → Closed, Registry.Remove exactly once
type Session struct {
	id          int
	trace       string
	conn        net.Conn
	registry    *Registry
	log         zerolog.Logger
	connectedAt time.Time

	// writeMu serializes frames from the broadcast and route paths.
	writeMu sync.Mutex

	mu    sync.Mutex
	state SessionState

	closeOnce sync.Once
}

// SessionInfo describes a live session
type SessionInfo struct {
	ID          int          `json:"id"`
	Trace       string       `json:"trace"`
	Remote      string       `json:"remote"`
	State       SessionState `json:"state"`
	ConnectedAt time.Time    `json:"connectedAt"`
}

func newSession(id int, trace string, conn net.Conn, r *Registry) *Session {
	return &Session{
		id:          id,
		trace:       trace,
		conn:        conn,
		registry:    r,
		log:         r.log.With().Int("session_id", id).Str("trace", trace).Logger(),
		connectedAt: time.Now(),
		state:       StateConnecting,
	}
}

// ID returns the relay-assigned id
func (s *Session) ID() int {
	return s.id
}

// State returns the current session state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Info returns a description of the session
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:          s.id,
		Trace:       s.trace,
		Remote:      remoteAddr(s.conn),
		State:       s.State(),
		ConnectedAt: s.connectedAt,
	}
}

// write sends one complete frame
func (s *Session) write(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if d := s.registry.writeTimeout; d > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
			return err
		}
	}

	_, err := s.conn.Write(frame)
	return err
}

func (s *Session) closeTransport() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}

// run announces the new member and reads envelopes until the transport
// fails, then releases the id.
func (s *Session) run() {
	defer func() {
		s.setState(StateClosed)
		s.closeTransport()
		s.registry.Remove(s.id)
	}()

	s.setState(StateActive)
	s.registry.BroadcastRoster()

	for {
		frame, err := protocol.ReadFrame(s.conn)
		if err != nil {
			s.logReadError(err)
			return
		}

		if err := s.handleFrame(frame); err != nil {
			s.log.Warn().Err(err).Msg("undecodable envelope, closing")
			return
		}
	}
}

// handleFrame dispatches one inbound frame. A returned error ends the session.
func (s *Session) handleFrame(frame *protocol.Frame) error {
	env, err := frame.Envelope()
	if err != nil {
		return err
	}

	switch env.Kind {
	case protocol.KindMessage:
		s.registry.Route(env, frame.Raw())

	case protocol.KindInit, protocol.KindRoster:
		// Terminals never originate these.
		s.registry.violations.Add(1)
		s.log.Warn().Str("kind", env.Kind.String()).Msg("protocol violation, ignoring")
		s.registry.emit(Event{SessionID: s.id, Trace: s.trace, Name: EventViolation})

	default:
		s.log.Warn().Uint16("kind", uint16(env.Kind)).Msg("unknown envelope kind, ignoring")
	}

	return nil
}

func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		s.log.Info().Msg("session disconnected")
	case protocol.IsProtocolError(err):
		s.log.Warn().Err(err).Msg("protocol error, closing")
	default:
		s.log.Info().Err(err).Msg("read failed, closing")
	}
}
