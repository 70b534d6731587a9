package network

import (
	"errors"
	"io"
	"net"

	"github.com/ZentaChain/lcdrelay/pkg/protocol"
	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

// Run receives envelopes from the relay until the connection ends. A clean
// close returns nil; a protocol error is returned after closing the
// transport.
func (l *Link) Run() error {
	defer close(l.done)
	defer l.Close()

	for {
		frame, err := protocol.ReadFrame(l.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				l.log.Info().Msg("relay connection closed")
				return nil
			}
			l.log.Warn().Err(err).Msg("receive failed")
			return err
		}

		env, err := frame.Envelope()
		if err != nil {
			l.log.Warn().Err(err).Msg("undecodable envelope from relay")
			return err
		}

		l.handleEnvelope(env)
	}
}

func (l *Link) handleEnvelope(env *protocol.Envelope) {
	switch env.Kind {
	case protocol.KindInit:
		l.setID(env.ReceiverID)
		l.state.SetSelf(env.ReceiverID)
		l.log.Info().Int("id", env.ReceiverID).Msg("assigned id")

	case protocol.KindMessage:
		l.state.AppendMessage(terminal.Message{SenderID: env.SenderID, Text: env.Text})
		l.log.Debug().Int("from", env.SenderID).Msg("message received")

	case protocol.KindRoster:
		l.state.ReplacePeers(env.Roster, l.ID())
		l.log.Debug().Ints("roster", env.Roster).Msg("roster updated")

	default:
		l.log.Warn().Uint16("kind", uint16(env.Kind)).Msg("unknown envelope kind, ignoring")
	}
}
