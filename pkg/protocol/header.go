package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidMagic    = errors.New("invalid protocol magic")
	ErrInvalidVersion  = errors.New("unsupported protocol version")
	ErrInvalidHeader   = errors.New("invalid header")
	ErrTruncated       = errors.New("truncated frame")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrMalformed       = errors.New("malformed payload")
)

// ProtocolError reports a frame that could not be decoded. Callers treat it
// the same as a transport disconnect.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// Header represents the frame header
type Header struct {
	Magic    uint32 // Magic number (0x4C434452)
	Version  uint16 // Protocol version
	Kind     Kind   // Envelope kind
	Length   uint32 // Payload length
	Flags    uint16 // Feature flags
	Reserved uint16 // Reserved for future use
}

// NewHeader creates a header for a payload of the given kind and length
func NewHeader(kind Kind, length int) *Header {
	return &Header{
		Magic:   ProtocolMagic,
		Version: ProtocolVersion,
		Kind:    kind,
		Length:  uint32(length),
		Flags:   FlagNone,
	}
}

// Encode encodes the header to bytes
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)

	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Kind))
	binary.BigEndian.PutUint32(buf[8:12], h.Length)
	binary.BigEndian.PutUint16(buf[12:14], h.Flags)
	binary.BigEndian.PutUint16(buf[14:16], h.Reserved)

	return buf
}

// Decode decodes the header from bytes
func (h *Header) Decode(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrInvalidHeader
	}

	h.Magic = binary.BigEndian.Uint32(buf[0:4])
	h.Version = binary.BigEndian.Uint16(buf[4:6])
	h.Kind = Kind(binary.BigEndian.Uint16(buf[6:8]))
	h.Length = binary.BigEndian.Uint32(buf[8:12])
	h.Flags = binary.BigEndian.Uint16(buf[12:14])
	h.Reserved = binary.BigEndian.Uint16(buf[14:16])

	return nil
}

// Validate validates the header
func (h *Header) Validate() error {
	if h.Magic != ProtocolMagic {
		return ErrInvalidMagic
	}

	if h.Version != ProtocolVersion {
		return ErrInvalidVersion
	}

	if h.Length > MaxPayloadSize {
		return ErrPayloadTooLarge
	}

	return nil
}

// ReadHeader reads and validates a header from an io.Reader. A clean EOF
// before the first byte is returned as io.EOF; anything else is a
// ProtocolError or the underlying transport error.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)

	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &ProtocolError{Op: "read header", Err: ErrTruncated}
		}
		return nil, err
	}

	header := &Header{}
	if err := header.Decode(buf); err != nil {
		return nil, &ProtocolError{Op: "decode header", Err: err}
	}

	if err := header.Validate(); err != nil {
		return nil, &ProtocolError{Op: "validate header", Err: err}
	}

	return header, nil
}

// WriteHeader writes a header to an io.Writer
func WriteHeader(w io.Writer, h *Header) error {
	_, err := w.Write(h.Encode())
	return err
}
