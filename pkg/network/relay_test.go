package network

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/lcdrelay/pkg/protocol"
)

const testTimeout = 2 * time.Second

func startRelay(t *testing.T) (*RelayServer, string) {
	t.Helper()

	rs := NewRelayServer(0, NewRegistry(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, rs.Start())
	t.Cleanup(func() { rs.Stop() })

	port := rs.Addr().(*net.TCPAddr).Port
	return rs, fmt.Sprintf("127.0.0.1:%d", port)
}

// rawTerminal speaks the wire protocol directly
type rawTerminal struct {
	t    *testing.T
	conn net.Conn
	id   int
}

func connect(t *testing.T, addr string) *rawTerminal {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	rt := &rawTerminal{t: t, conn: conn}
	env := rt.next()
	require.Equal(t, protocol.KindInit, env.Kind)
	rt.id = env.ReceiverID
	return rt
}

func (rt *rawTerminal) nextFrame() *protocol.Frame {
	rt.t.Helper()
	require.NoError(rt.t, rt.conn.SetReadDeadline(time.Now().Add(testTimeout)))
	f, err := protocol.ReadFrame(rt.conn)
	require.NoError(rt.t, err)
	return f
}

func (rt *rawTerminal) next() *protocol.Envelope {
	rt.t.Helper()
	env, err := rt.nextFrame().Envelope()
	require.NoError(rt.t, err)
	return env
}

// expectRoster reads until a ROSTER equal to want arrives
func (rt *rawTerminal) expectRoster(want ...int) {
	rt.t.Helper()
	for {
		env := rt.next()
		if env.Kind == protocol.KindRoster && equalIDs(env.Roster, want) {
			return
		}
		require.NotEqual(rt.t, protocol.KindMessage, env.Kind, "unexpected message while waiting for roster %v", want)
	}
}

// expectMessage skips rosters and returns the next MESSAGE frame
func (rt *rawTerminal) expectMessage() *protocol.Frame {
	rt.t.Helper()
	for {
		f := rt.nextFrame()
		if f.Header.Kind == protocol.KindMessage {
			return f
		}
	}
}

func (rt *rawTerminal) send(env *protocol.Envelope) {
	rt.t.Helper()
	require.NoError(rt.t, protocol.WriteEnvelope(rt.conn, env))
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestJoinLeaveRoster(t *testing.T) {
	rs, addr := startRelay(t)

	t1 := connect(t, addr)
	t1.expectRoster(1)

	t2 := connect(t, addr)
	t2.expectRoster(1, 2)
	t1.expectRoster(1, 2)

	t3 := connect(t, addr)
	t3.expectRoster(1, 2, 3)
	t1.expectRoster(1, 2, 3)
	t2.expectRoster(1, 2, 3)

	assert.Equal(t, []int{1, 2, 3}, []int{t1.id, t2.id, t3.id})

	t2.conn.Close()
	t1.expectRoster(1, 3)
	t3.expectRoster(1, 3)

	assert.Equal(t, []int{1, 3}, rs.Registry().Snapshot())

	// ids are never reused
	t4 := connect(t, addr)
	assert.Equal(t, 4, t4.id)
	t4.expectRoster(1, 3, 4)
}

func TestRouteMessage(t *testing.T) {
	rs, addr := startRelay(t)

	t1 := connect(t, addr)
	t1.expectRoster(1)
	t2 := connect(t, addr)
	t2.expectRoster(1, 2)
	t3 := connect(t, addr)
	t3.expectRoster(1, 2, 3)

	sent := protocol.NewTextMessage(1, 3, "Hi")
	t1.send(sent)

	f := t3.expectMessage()
	assert.Equal(t, sent.Encode(), f.Raw(), "frame is forwarded unchanged")
	env, err := f.Envelope()
	require.NoError(t, err)
	assert.Equal(t, 1, env.SenderID)
	assert.Equal(t, "Hi", env.Text)

	// unknown receiver: dropped, sender keeps its session
	t1.send(protocol.NewTextMessage(1, 99, "lost"))
	t1.send(protocol.NewTextMessage(1, 3, "after"))

	env, err = t3.expectMessage().Envelope()
	require.NoError(t, err)
	assert.Equal(t, "after", env.Text)

	require.Eventually(t, func() bool {
		return rs.Registry().Stats().Routed == 2
	}, testTimeout, 10*time.Millisecond)

	stats := rs.Registry().Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 3, stats.Active)
	assert.Equal(t, 4, stats.NextID)
}

func TestProtocolViolationsIgnored(t *testing.T) {
	rs, addr := startRelay(t)

	t1 := connect(t, addr)
	t1.expectRoster(1)
	t2 := connect(t, addr)
	t2.expectRoster(1, 2)

	t1.send(protocol.NewInit(5))
	t1.send(protocol.NewRoster([]int{7}))

	unknown := append(protocol.NewHeader(protocol.Kind(0x99), 8).Encode(), make([]byte, 8)...)
	_, err := t1.conn.Write(unknown)
	require.NoError(t, err)

	t1.send(protocol.NewTextMessage(1, 2, "still here"))

	env, err := t2.expectMessage().Envelope()
	require.NoError(t, err)
	assert.Equal(t, "still here", env.Text)

	assert.Equal(t, uint64(2), rs.Registry().Stats().Violations)
	assert.True(t, rs.Registry().Contains(1))
}

func TestMalformedFrameClosesSession(t *testing.T) {
	rs, addr := startRelay(t)

	t1 := connect(t, addr)
	t1.expectRoster(1)
	t2 := connect(t, addr)
	t2.expectRoster(1, 2)

	bad := protocol.NewHeader(protocol.KindMessage, 0)
	bad.Magic = 0xDEADBEEF
	_, err := t2.conn.Write(bad.Encode())
	require.NoError(t, err)

	t1.expectRoster(1)
	assert.False(t, rs.Registry().Contains(2))
}

func TestConcurrentAccepts(t *testing.T) {
	rs, addr := startRelay(t)

	const n = 20
	ids := make([]int, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			conn, err := net.Dial("tcp", addr)
			if !assert.NoError(t, err) {
				return
			}
			t.Cleanup(func() { conn.Close() })

			conn.SetReadDeadline(time.Now().Add(testTimeout))
			f, err := protocol.ReadFrame(conn)
			if !assert.NoError(t, err) {
				return
			}
			env, err := f.Envelope()
			if assert.NoError(t, err) {
				assert.Equal(t, protocol.KindInit, env.Kind)
				ids[i] = env.ReceiverID
			}
		}(i)
	}
	wg.Wait()

	sort.Ints(ids)
	for i, id := range ids {
		assert.Equal(t, i+1, id)
	}

	require.Eventually(t, func() bool {
		return len(rs.Registry().Snapshot()) == n
	}, testTimeout, 10*time.Millisecond)
}

func tcpPair(t *testing.T) (server, client net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	select {
	case server = <-accepted:
	case <-time.After(testTimeout):
		t.Fatal("accept timed out")
	}

	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

// brokenConn fails every Write once broken is set
type brokenConn struct {
	net.Conn
	broken atomic.Bool
}

func (c *brokenConn) Write(b []byte) (int, error) {
	if c.broken.Load() {
		return 0, errors.New("connection reset")
	}
	return c.Conn.Write(b)
}

// acceptPair registers a healthy session 1 and a session 2 whose writes can
// be broken, and consumes both INITs.
func acceptPair(t *testing.T, reg *Registry) (healthy net.Conn, broken *brokenConn, brokenClient net.Conn) {
	t.Helper()

	server1, client1 := tcpPair(t)
	server2, client2 := tcpPair(t)
	broken = &brokenConn{Conn: server2}

	_, err := reg.Accept(server1)
	require.NoError(t, err)
	_, err = reg.Accept(broken)
	require.NoError(t, err)

	for _, c := range []net.Conn{client1, client2} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(testTimeout)))
		f, err := protocol.ReadFrame(c)
		require.NoError(t, err)
		require.Equal(t, protocol.KindInit, f.Header.Kind)
	}
	return client1, broken, client2
}

func readRoster(t *testing.T, c net.Conn) []int {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(testTimeout)))
	f, err := protocol.ReadFrame(c)
	require.NoError(t, err)
	env, err := f.Envelope()
	require.NoError(t, err)
	require.Equal(t, protocol.KindRoster, env.Kind)
	return env.Roster
}

func TestBroadcastRosterSurvivesFailedPeer(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	client1, broken, client2 := acceptPair(t, reg)

	broken.broken.Store(true)
	reg.BroadcastRoster()

	assert.Equal(t, []int{1, 2}, readRoster(t, client1))
	assert.Equal(t, []int{1}, readRoster(t, client1))
	assert.Equal(t, []int{1}, reg.Snapshot())
	assert.False(t, reg.Contains(2))

	require.NoError(t, client2.SetReadDeadline(time.Now().Add(testTimeout)))
	_, err := protocol.ReadFrame(client2)
	assert.Error(t, err, "failed peer's transport is closed")
}

func TestRouteFailedForwardRemovesReceiver(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	client1, broken, _ := acceptPair(t, reg)

	broken.broken.Store(true)
	msg := protocol.NewTextMessage(1, 2, "Hi")
	assert.False(t, reg.Route(msg, msg.Encode()))

	assert.Equal(t, []int{1}, reg.Snapshot())
	assert.Equal(t, []int{1}, readRoster(t, client1))

	stats := reg.Stats()
	assert.Zero(t, stats.Routed)
	assert.Equal(t, 1, stats.Active)
}

func TestRemoveIdempotent(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	server, client := tcpPair(t)
	s, err := reg.Accept(server)
	require.NoError(t, err)
	assert.Equal(t, 1, s.ID())
	assert.Equal(t, StateHandshaking, s.State())
	assert.Equal(t, []int{1}, reg.Snapshot())

	f, err := protocol.ReadFrame(client)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindInit, f.Header.Kind)

	reg.Remove(1)
	reg.Remove(1)
	reg.Remove(42)

	assert.Empty(t, reg.Snapshot())
	assert.Equal(t, 0, reg.Stats().Active)
	assert.Equal(t, uint64(1), reg.Stats().Accepted)
}

func TestAcceptAfterClose(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	reg.Close()

	server, _ := tcpPair(t)
	_, err := reg.Accept(server)
	assert.ErrorIs(t, err, ErrRegistryClosed)
}

func TestRegistrySessions(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	server, _ := tcpPair(t)
	_, err := reg.Accept(server)
	require.NoError(t, err)

	infos := reg.Sessions()
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].ID)
	assert.NotEmpty(t, infos[0].Trace)
	assert.NotEmpty(t, infos[0].Remote)
}

func TestEventSink(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())

	var mu sync.Mutex
	var names []EventName
	reg.AttachEventSink(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		assert.False(t, e.At.IsZero())
		names = append(names, e.Name)
	})

	rs := NewRelayServer(0, reg, zerolog.Nop())
	require.NoError(t, rs.Start())
	defer rs.Stop()
	addr := fmt.Sprintf("127.0.0.1:%d", rs.Addr().(*net.TCPAddr).Port)

	t1 := connect(t, addr)
	t1.expectRoster(1)
	t2 := connect(t, addr)
	t2.expectRoster(1, 2)

	t1.send(protocol.NewTextMessage(1, 2, "x"))
	t2.expectMessage()
	t1.send(protocol.NewTextMessage(1, 9, "x"))
	t1.send(protocol.NewInit(1))
	t1.conn.Close()
	t2.expectRoster(2)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(names) == 6
	}, testTimeout, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventName{EventJoined, EventJoined, EventRouted, EventDropped, EventViolation, EventLeft}, names)
}

func TestServerStopClosesSessions(t *testing.T) {
	rs, addr := startRelay(t)

	t1 := connect(t, addr)
	t1.expectRoster(1)

	require.NoError(t, rs.Stop())

	require.NoError(t, t1.conn.SetReadDeadline(time.Now().Add(testTimeout)))
	for {
		if _, err := protocol.ReadFrame(t1.conn); err != nil {
			break
		}
	}

	require.Eventually(t, func() bool {
		return len(rs.Registry().Snapshot()) == 0
	}, testTimeout, 10*time.Millisecond)
}
