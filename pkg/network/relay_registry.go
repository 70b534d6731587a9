package network

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ZentaChain/lcdrelay/pkg/protocol"
)

var (
	ErrRegistryClosed = errors.New("registry closed")
)

// EventName identifies a session lifecycle or routing event
type EventName string

const (
	EventJoined    EventName = "joined"
	EventLeft      EventName = "left"
	EventRouted    EventName = "routed"
	EventDropped   EventName = "dropped"
	EventViolation EventName = "violation"
)

// Event is emitted to the attached EventSink after the registry lock has
// been released. Peer is the receiver id for routed/dropped events.
type Event struct {
	SessionID int
	Trace     string
	Name      EventName
	Peer      int
	At        time.Time
}

// EventSink receives registry events
type EventSink func(Event)

// Stats is a point-in-time view of registry counters
type Stats struct {
	Accepted   uint64 `json:"accepted"`
	Active     int    `json:"active"`
	Routed     uint64 `json:"routed"`
	Dropped    uint64 `json:"dropped"`
	Violations uint64 `json:"violations"`
	NextID     int    `json:"nextId"`
}

// Registry is the relay-wide table of live sessions and the roster of their
// ids in join order. sessions and roster are guarded by one lock and are
// never observable out of sync.
type Registry struct {
	mu       sync.Mutex
	nextID   int
	sessions map[int]*Session
	roster   []int
	closed   bool

	writeTimeout time.Duration
	sink         EventSink
	log          zerolog.Logger

	accepted   atomic.Uint64
	routed     atomic.Uint64
	dropped    atomic.Uint64
	violations atomic.Uint64
}

// NewRegistry creates an empty registry
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[int]*Session),
		log:      log,
	}
}

// SetWriteTimeout bounds every transport write. Zero disables the deadline.
// Must be called before the first Accept.
func (r *Registry) SetWriteTimeout(d time.Duration) {
	r.writeTimeout = d
}

// AttachEventSink attaches a sink for session events. Must be called before
// the first Accept.
func (r *Registry) AttachEventSink(sink EventSink) {
	r.sink = sink
}

// Serve registers conn and runs its session until the connection ends. It
// is meant to be run in its own goroutine per connection.
func (r *Registry) Serve(conn net.Conn) {
	s, err := r.Accept(conn)
	if err != nil {
		r.log.Info().Err(err).Str("remote", remoteAddr(conn)).Msg("connection rejected")
		conn.Close()
		return
	}
	s.run()
}

// Accept assigns the next id to conn, writes its INIT and registers the
// session. Ids start at 1 and are never reused. INIT is written while the
// lock is held so no ROSTER or MESSAGE can overtake it.
func (r *Registry) Accept(conn net.Conn) (*Session, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}

	r.nextID++
	id := r.nextID
	s := newSession(id, uuid.NewString(), conn, r)

	s.setState(StateHandshaking)
	if err := s.write(protocol.NewInit(id).Encode()); err != nil {
		r.mu.Unlock()
		s.setState(StateClosed)
		return nil, fmt.Errorf("failed to send INIT to session %d: %w", id, err)
	}

	r.sessions[id] = s
	r.roster = append(r.roster, id)
	r.mu.Unlock()

	r.accepted.Add(1)
	s.log.Info().Str("remote", remoteAddr(conn)).Msg("session joined")
	r.emit(Event{SessionID: id, Trace: s.trace, Name: EventJoined})

	return s, nil
}

// BroadcastRoster writes the current roster to every session in roster
// order. The whole fan-out happens under the registry lock so overlapping
// broadcasts never interleave snapshots. Peers whose write fails are closed
// and removed once the lock is released.
func (r *Registry) BroadcastRoster() {
	r.mu.Lock()
	frame := protocol.NewRoster(r.roster).Encode()

	var failed []int
	for _, id := range r.roster {
		s := r.sessions[id]
		if err := s.write(frame); err != nil {
			s.log.Info().Err(err).Msg("roster write failed")
			s.closeTransport()
			failed = append(failed, id)
		}
	}
	r.mu.Unlock()

	for _, id := range failed {
		r.Remove(id)
	}
}

// Route forwards the raw MESSAGE frame to env.ReceiverID if that id is in
// the roster. Otherwise the message is dropped silently. Returns whether
// the frame was delivered to the receiver's transport.
func (r *Registry) Route(env *protocol.Envelope, raw []byte) bool {
	r.mu.Lock()
	var target *Session
	if slices.Contains(r.roster, env.ReceiverID) {
		target = r.sessions[env.ReceiverID]
	}
	r.mu.Unlock()

	if target == nil {
		r.dropped.Add(1)
		r.log.Debug().Int("sender", env.SenderID).Int("receiver", env.ReceiverID).Msg("receiver not in roster, dropping")
		r.emit(Event{SessionID: env.SenderID, Name: EventDropped, Peer: env.ReceiverID})
		return false
	}

	if err := target.write(raw); err != nil {
		target.log.Info().Err(err).Msg("forward failed")
		target.closeTransport()
		r.Remove(target.id)
		return false
	}

	r.routed.Add(1)
	r.emit(Event{SessionID: env.SenderID, Name: EventRouted, Peer: env.ReceiverID})
	return true
}

// Remove deletes the session and its roster entry, then broadcasts the new
// roster. Removing an unknown id is a no-op.
func (r *Registry) Remove(id int) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, id)
	if i := slices.Index(r.roster, id); i >= 0 {
		r.roster = slices.Delete(r.roster, i, i+1)
	}
	r.mu.Unlock()

	s.closeTransport()
	s.log.Info().Msg("session left")
	r.emit(Event{SessionID: id, Trace: s.trace, Name: EventLeft})

	r.BroadcastRoster()
}

// Close rejects further accepts and closes every session transport. The
// session loops then remove themselves.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for _, id := range r.roster {
		sessions = append(sessions, r.sessions[id])
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.closeTransport()
	}
}

// Snapshot returns a copy of the roster
func (r *Registry) Snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.roster)
}

// Contains reports whether id is currently registered
func (r *Registry) Contains(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

// Sessions returns descriptions of the live sessions in roster order
func (r *Registry) Sessions() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]SessionInfo, 0, len(r.roster))
	for _, id := range r.roster {
		infos = append(infos, r.sessions[id].Info())
	}
	return infos
}

// Stats returns registry counters
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	active := len(r.sessions)
	next := r.nextID + 1
	r.mu.Unlock()

	return Stats{
		Accepted:   r.accepted.Load(),
		Active:     active,
		Routed:     r.routed.Load(),
		Dropped:    r.dropped.Load(),
		Violations: r.violations.Load(),
		NextID:     next,
	}
}

func (r *Registry) emit(e Event) {
	if r.sink == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	r.sink(e)
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
