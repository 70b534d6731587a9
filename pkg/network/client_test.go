package network

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/lcdrelay/pkg/protocol"
	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

func newPipeLink(t *testing.T) (*Link, *terminal.State, net.Conn, chan error) {
	t.Helper()

	relaySide, terminalSide := net.Pipe()
	t.Cleanup(func() { relaySide.Close() })

	state := terminal.NewState()
	link := NewLink(terminalSide, state, zerolog.Nop())

	result := make(chan error, 1)
	go func() { result <- link.Run() }()

	return link, state, relaySide, result
}

func TestLinkAppliesEnvelopes(t *testing.T) {
	link, state, relay, _ := newPipeLink(t)

	require.NoError(t, protocol.WriteEnvelope(relay, protocol.NewInit(2)))
	require.NoError(t, protocol.WriteEnvelope(relay, protocol.NewRoster([]int{1, 2, 3})))
	require.NoError(t, protocol.WriteEnvelope(relay, protocol.NewTextMessage(1, 2, "Hi")))

	require.Eventually(t, func() bool {
		return state.InboxLen() == 1
	}, testTimeout, 5*time.Millisecond)

	assert.Equal(t, 2, link.ID())
	assert.Equal(t, 2, state.Self())
	assert.Equal(t, []int{1, 3}, state.Peers())
	assert.Equal(t, []terminal.Message{{SenderID: 1, Text: "Hi"}}, state.Inbox())
}

func TestLinkIgnoresUnknownKind(t *testing.T) {
	_, state, relay, _ := newPipeLink(t)

	unknown := append(protocol.NewHeader(protocol.Kind(0x42), 4).Encode(), 1, 2, 3, 4)
	_, err := relay.Write(unknown)
	require.NoError(t, err)

	require.NoError(t, protocol.WriteEnvelope(relay, protocol.NewTextMessage(5, 0, "ok")))

	require.Eventually(t, func() bool {
		return state.InboxLen() == 1
	}, testTimeout, 5*time.Millisecond)
}

func TestLinkSend(t *testing.T) {
	link, _, relay, _ := newPipeLink(t)

	err := link.Send("early", 3)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, protocol.WriteEnvelope(relay, protocol.NewInit(2)))
	require.Eventually(t, func() bool { return link.ID() == 2 }, testTimeout, 5*time.Millisecond)

	received := make(chan *protocol.Frame, 1)
	go func() {
		f, err := protocol.ReadFrame(relay)
		if err == nil {
			received <- f
		}
	}()

	require.NoError(t, link.Send("Hi", 3))

	select {
	case f := <-received:
		assert.Equal(t, protocol.NewTextMessage(2, 3, "Hi").Encode(), f.Raw())
	case <-time.After(testTimeout):
		t.Fatal("relay did not receive message")
	}
}

func TestLinkSendRejectsUndecodableText(t *testing.T) {
	link, _, relay, _ := newPipeLink(t)

	require.NoError(t, protocol.WriteEnvelope(relay, protocol.NewInit(2)))
	require.Eventually(t, func() bool { return link.ID() == 2 }, testTimeout, 5*time.Millisecond)

	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"too large", strings.Repeat("A", protocol.MaxPayloadSize), protocol.ErrPayloadTooLarge},
		{"invalid utf-8", "caf\xe9", protocol.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := link.Send(tt.text, 3)
			assert.ErrorIs(t, err, ErrSendFailed)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	select {
	case <-link.Done():
		t.Fatal("link stopped after a rejected send")
	default:
	}

	received := make(chan *protocol.Frame, 1)
	go func() {
		f, err := protocol.ReadFrame(relay)
		if err == nil {
			received <- f
		}
	}()

	require.NoError(t, link.Send("Hi", 3))

	select {
	case f := <-received:
		assert.Equal(t, protocol.NewTextMessage(2, 3, "Hi").Encode(), f.Raw())
	case <-time.After(testTimeout):
		t.Fatal("relay did not receive message")
	}
}

func TestLinkSendFailure(t *testing.T) {
	link, _, relay, result := newPipeLink(t)

	require.NoError(t, protocol.WriteEnvelope(relay, protocol.NewInit(1)))
	require.Eventually(t, func() bool { return link.ID() == 1 }, testTimeout, 5*time.Millisecond)

	relay.Close()

	select {
	case err := <-result:
		assert.NoError(t, err, "peer close is a clean shutdown")
	case <-time.After(testTimeout):
		t.Fatal("Run did not return")
	}
	<-link.Done()

	err := link.Send("late", 2)
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestLinkProtocolError(t *testing.T) {
	link, _, relay, result := newPipeLink(t)

	h := protocol.NewHeader(protocol.KindInit, 8)
	h.Version = 0x0900
	_, err := relay.Write(h.Encode())
	require.NoError(t, err)

	select {
	case err := <-result:
		assert.True(t, protocol.IsProtocolError(err))
		assert.ErrorIs(t, err, protocol.ErrInvalidVersion)
	case <-time.After(testTimeout):
		t.Fatal("Run did not return")
	}

	select {
	case <-link.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestTerminalsEndToEnd(t *testing.T) {
	_, addr := startRelay(t)
	ctx := context.Background()

	links := make([]*Link, 3)
	states := make([]*terminal.State, 3)
	for i := range links {
		conn, err := Dial(ctx, TransportTCP, addr)
		require.NoError(t, err)

		states[i] = terminal.NewState()
		links[i] = NewLink(conn, states[i], zerolog.Nop())
		go links[i].Run()
		t.Cleanup(func() { links[i].Close() })

		want := i + 1
		require.Eventually(t, func() bool { return links[i].ID() == want }, testTimeout, 5*time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return len(states[0].Peers()) == 2 && len(states[2].Peers()) == 2
	}, testTimeout, 5*time.Millisecond)

	links[1].Close()

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]int{3}, states[0].Peers()) &&
			assert.ObjectsAreEqual([]int{1}, states[2].Peers())
	}, testTimeout, 5*time.Millisecond)

	require.NoError(t, links[0].Send("Hi", 3))
	require.NoError(t, links[0].Send("nobody", 99))
	require.NoError(t, links[0].Send("Bye", 3))

	require.Eventually(t, func() bool {
		return states[2].InboxLen() == 2
	}, testTimeout, 5*time.Millisecond)

	assert.Equal(t, []terminal.Message{{SenderID: 1, Text: "Hi"}, {SenderID: 1, Text: "Bye"}}, states[2].Inbox())
	assert.Zero(t, states[0].InboxLen())
}

func TestDialUnknownTransport(t *testing.T) {
	_, err := Dial(context.Background(), "udp", "127.0.0.1:1")
	assert.ErrorIs(t, err, ErrUnknownTransport)
}
