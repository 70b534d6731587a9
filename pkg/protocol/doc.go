// Package protocol implements the relay wire protocol.
//
// Every envelope travels as one frame: a 16-byte header followed by a
// kind-specific payload.
//
// # Header Format
//
//   - Magic (4 bytes): Protocol identifier (0x4C434452 = "LCDR")
//   - Version (2 bytes): Protocol version (0x0100 = v1.0)
//   - Kind (2 bytes): Envelope kind
//   - Length (4 bytes): Payload length, at most MaxPayloadSize
//   - Flags (2 bytes): Feature flags (none defined)
//   - Reserved (2 bytes): Reserved for future use
//
// # Envelope Kinds
//
//   - INIT: relay→terminal, sent once, ReceiverID is the assigned id
//   - MESSAGE: either direction, SenderID, ReceiverID and Text
//   - ROSTER: relay→terminal on every membership change, the live ids in
//     join order
//
// # Payload Encoding
//
// Big-endian throughout. Every known payload starts with SenderID and
// ReceiverID as int32. MESSAGE appends a uint32 length and the UTF-8 text;
// ROSTER appends a uint32 count and that many int32 ids.
//
// A frame that cannot be decoded yields a *ProtocolError. Receivers treat it
// exactly like a transport disconnect. Frames of an unknown kind decode to an
// Envelope with only Kind set and are ignored by the receiver.
//
// # Usage Example
//
//	env := protocol.NewTextMessage(1, 3, "Hi")
//	if err := protocol.WriteEnvelope(conn, env); err != nil {
//	    return err
//	}
//
//	frame, err := protocol.ReadFrame(conn)
//	if err != nil {
//	    return err
//	}
//	env, err = frame.Envelope()
package protocol
