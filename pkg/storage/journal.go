package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	ErrJournalClosed = errors.New("journal closed")
)

const (
	// DefaultRecentLimit is used by Recent when limit is not positive
	DefaultRecentLimit = 50
	// MaxRecentLimit caps Recent
	MaxRecentLimit = 1000

	queueSize       = 256
	cleanupInterval = time.Hour
)

// Event is one journaled session event. Message text is never stored.
type Event struct {
	ID        int64     `json:"id"`
	SessionID int       `json:"sessionId"`
	TraceID   string    `json:"traceId,omitempty"`
	Name      string    `json:"event"`
	Peer      int       `json:"peer,omitempty"`
	At        time.Time `json:"at"`
}

// Journal stores session lifecycle and routing events in SQLite. Enqueue
// hands events to a background writer so callers on the relay hot path do
// not wait for the disk.
type Journal struct {
	db        *sql.DB
	retention time.Duration
	log       zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	dropped atomic.Uint64

	stop chan struct{}
	wg   sync.WaitGroup
}

// OpenJournal opens or creates the journal at path. A positive retention
// prunes older events once an hour.
func OpenJournal(path string, retention time.Duration, log zerolog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	j := &Journal{
		db:        db,
		retention: retention,
		log:       log,
		queue:     make(chan Event, queueSize),
		stop:      make(chan struct{}),
	}

	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	j.wg.Add(1)
	go j.writeLoop()

	if retention > 0 {
		j.wg.Add(1)
		go j.cleanupLoop()
	}

	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		trace_id TEXT NOT NULL DEFAULT '',
		event TEXT NOT NULL,
		peer INTEGER NOT NULL DEFAULT 0,
		at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_events_at ON session_events(at);
	CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id);
	`

	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (j *Journal) isClosed() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.closed
}

// Record writes e synchronously
func (j *Journal) Record(ctx context.Context, e Event) error {
	if j.isClosed() {
		return ErrJournalClosed
	}
	return j.insert(ctx, e)
}

func (j *Journal) insert(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	query := `
		INSERT INTO session_events (session_id, trace_id, event, peer, at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := j.db.ExecContext(ctx, query, e.SessionID, e.TraceID, e.Name, e.Peer, e.At.UnixNano()); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Enqueue schedules e for the background writer. When the queue is full the
// event is dropped and counted.
func (j *Journal) Enqueue(e Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	select {
	case j.queue <- e:
	default:
		j.dropped.Add(1)
		j.log.Warn().Str("event", e.Name).Msg("journal queue full, dropping event")
	}
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()

	for e := range j.queue {
		if err := j.insert(context.Background(), e); err != nil {
			j.log.Warn().Err(err).Msg("journal write failed")
		}
	}
}

// Recent returns up to limit events, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Event, error) {
	if j.isClosed() {
		return nil, ErrJournalClosed
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)

	query := `
		SELECT id, session_id, trace_id, event, peer, at
		FROM session_events
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		var at int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.TraceID, &e.Name, &e.Peer, &at); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.At = time.Unix(0, at)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Counts returns the number of stored events per event name
func (j *Journal) Counts(ctx context.Context) (map[string]int, error) {
	if j.isClosed() {
		return nil, ErrJournalClosed
	}

	rows, err := j.db.QueryContext(ctx, `SELECT event, COUNT(*) FROM session_events GROUP BY event`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// Prune deletes events recorded before cutoff
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if j.isClosed() {
		return 0, ErrJournalClosed
	}

	result, err := j.db.ExecContext(ctx, `DELETE FROM session_events WHERE at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return result.RowsAffected()
}

func (j *Journal) cleanupLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			count, err := j.Prune(context.Background(), time.Now().Add(-j.retention))
			if err != nil {
				j.log.Warn().Err(err).Msg("journal cleanup failed")
				continue
			}
			if count > 0 {
				j.log.Info().Int64("count", count).Msg("pruned journal events")
			}
		}
	}
}

// Dropped returns the number of events lost to a full queue
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Close flushes queued events and closes the database
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrJournalClosed
	}
	j.closed = true
	close(j.queue)
	close(j.stop)
	j.mu.Unlock()

	j.wg.Wait()
	return j.db.Close()
}
