package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// idsSize is the fixed sender/receiver prefix of every known payload
const idsSize = 4 + 4

// Envelope is the unit exchanged between a terminal and the relay. Only the
// fields relevant to Kind are meaningful.
type Envelope struct {
	Kind       Kind
	SenderID   int
	ReceiverID int
	Text       string // MESSAGE only
	Roster     []int  // ROSTER only
}

// NewInit builds the INIT envelope announcing a terminal's assigned id
func NewInit(id int) *Envelope {
	return &Envelope{Kind: KindInit, ReceiverID: id}
}

// NewTextMessage builds a MESSAGE envelope
func NewTextMessage(senderID, receiverID int, text string) *Envelope {
	return &Envelope{Kind: KindMessage, SenderID: senderID, ReceiverID: receiverID, Text: text}
}

// NewRoster builds a ROSTER envelope. The ids are copied.
func NewRoster(ids []int) *Envelope {
	roster := make([]int, len(ids))
	copy(roster, ids)
	return &Envelope{Kind: KindRoster, Roster: roster}
}

func (e *Envelope) payloadSize() int {
	size := idsSize
	switch e.Kind {
	case KindMessage:
		size += 4 + len(e.Text)
	case KindRoster:
		size += 4 + 4*len(e.Roster)
	}
	return size
}

// Validate reports whether e encodes to a frame that Decode accepts:
// MESSAGE text must be UTF-8 and the payload must fit MaxPayloadSize.
func (e *Envelope) Validate() error {
	if e.Kind == KindMessage && !utf8.ValidString(e.Text) {
		return fmt.Errorf("%w: text is not utf-8", ErrMalformed)
	}
	if size := e.payloadSize(); size > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, size)
	}
	return nil
}

// EncodePayload encodes the kind-specific payload. The result is only
// decodable when Validate returns nil.
func (e *Envelope) EncodePayload() []byte {
	buf := make([]byte, e.payloadSize())
	offset := 0

	binary.BigEndian.PutUint32(buf[offset:], uint32(int32(e.SenderID)))
	offset += 4

	binary.BigEndian.PutUint32(buf[offset:], uint32(int32(e.ReceiverID)))
	offset += 4

	switch e.Kind {
	case KindMessage:
		binary.BigEndian.PutUint32(buf[offset:], uint32(len(e.Text)))
		offset += 4
		copy(buf[offset:], e.Text)

	case KindRoster:
		binary.BigEndian.PutUint32(buf[offset:], uint32(len(e.Roster)))
		offset += 4
		for _, id := range e.Roster {
			binary.BigEndian.PutUint32(buf[offset:], uint32(int32(id)))
			offset += 4
		}
	}

	return buf
}

// DecodePayload decodes a payload of the given kind into e. Unknown kinds
// decode to an envelope carrying only the kind.
func (e *Envelope) DecodePayload(kind Kind, buf []byte) error {
	*e = Envelope{Kind: kind}
	if !kind.Known() {
		return nil
	}

	if len(buf) < idsSize {
		return &ProtocolError{Op: "decode " + kind.String(), Err: ErrTruncated}
	}

	e.SenderID = int(int32(binary.BigEndian.Uint32(buf[0:4])))
	e.ReceiverID = int(int32(binary.BigEndian.Uint32(buf[4:8])))
	rest := buf[idsSize:]

	switch kind {
	case KindInit:
		if len(rest) != 0 {
			return &ProtocolError{Op: "decode INIT", Err: ErrMalformed}
		}

	case KindMessage:
		if len(rest) < 4 {
			return &ProtocolError{Op: "decode MESSAGE", Err: ErrTruncated}
		}
		textLen := binary.BigEndian.Uint32(rest[0:4])
		rest = rest[4:]
		if uint64(len(rest)) != uint64(textLen) {
			return &ProtocolError{Op: "decode MESSAGE", Err: fmt.Errorf("%w: text length %d, have %d", ErrMalformed, textLen, len(rest))}
		}
		if !utf8.Valid(rest) {
			return &ProtocolError{Op: "decode MESSAGE", Err: fmt.Errorf("%w: text is not utf-8", ErrMalformed)}
		}
		e.Text = string(rest)

	case KindRoster:
		if len(rest) < 4 {
			return &ProtocolError{Op: "decode ROSTER", Err: ErrTruncated}
		}
		count := binary.BigEndian.Uint32(rest[0:4])
		rest = rest[4:]
		if uint64(len(rest)) != uint64(count)*4 {
			return &ProtocolError{Op: "decode ROSTER", Err: fmt.Errorf("%w: %d ids, have %d bytes", ErrMalformed, count, len(rest))}
		}
		e.Roster = make([]int, count)
		for i := range e.Roster {
			e.Roster[i] = int(int32(binary.BigEndian.Uint32(rest[i*4:])))
		}
	}

	return nil
}

// Encode encodes the complete frame (header + payload)
func (e *Envelope) Encode() []byte {
	payload := e.EncodePayload()
	header := NewHeader(e.Kind, len(payload))

	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(payload))
	buf.Write(header.Encode())
	buf.Write(payload)
	return buf.Bytes()
}

// Decode decodes a complete frame produced by Encode
func Decode(frame []byte) (*Envelope, error) {
	f, err := ReadFrame(bytes.NewReader(frame))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ProtocolError{Op: "decode", Err: ErrTruncated}
		}
		return nil, err
	}
	return f.Envelope()
}

// Frame is one raw frame as read off the transport
type Frame struct {
	Header  *Header
	Payload []byte
}

// Raw returns the frame's exact wire bytes
func (f *Frame) Raw() []byte {
	raw := make([]byte, 0, HeaderSize+len(f.Payload))
	raw = append(raw, f.Header.Encode()...)
	return append(raw, f.Payload...)
}

// Envelope decodes the frame's payload
func (f *Frame) Envelope() (*Envelope, error) {
	env := &Envelope{}
	if err := env.DecodePayload(f.Header.Kind, f.Payload); err != nil {
		return nil, err
	}
	return env, nil
}

// ReadFrame reads one frame. io.EOF is returned only when the stream ends
// cleanly on a frame boundary.
func ReadFrame(r io.Reader) (*Frame, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, header.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &ProtocolError{Op: "read payload", Err: ErrTruncated}
		}
		return nil, err
	}

	return &Frame{Header: header, Payload: payload}, nil
}

// WriteEnvelope validates e and writes it as a complete frame with a single
// Write call. Nothing is written when validation fails.
func WriteEnvelope(w io.Writer, e *Envelope) error {
	if err := e.Validate(); err != nil {
		return &ProtocolError{Op: "encode " + e.Kind.String(), Err: err}
	}
	_, err := w.Write(e.Encode())
	return err
}
