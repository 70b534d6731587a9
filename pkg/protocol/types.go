package protocol

// Protocol constants
const (
	// Magic number for relay frames ('LCDR')
	ProtocolMagic = 0x4C434452

	// Protocol version
	ProtocolVersion = 0x0100 // v1.0

	// Header size
	HeaderSize = 16

	// MaxPayloadSize bounds a single frame's payload
	MaxPayloadSize = 64 * 1024
)

// Kind discriminates the envelope payload
type Kind uint16

// Envelope kinds
const (
	KindInit    Kind = 0x0001 // relay→terminal, carries the assigned id
	KindMessage Kind = 0x0002 // either direction, carries text
	KindRoster  Kind = 0x0003 // relay→terminal, carries the live ids
)

// Flags
const (
	FlagNone uint16 = 0x0000
)

// String returns the wire name of the kind
func (k Kind) String() string {
	switch k {
	case KindInit:
		return "INIT"
	case KindMessage:
		return "MESSAGE"
	case KindRoster:
		return "ROSTER"
	default:
		return "UNKNOWN"
	}
}

// Known reports whether k is one of the defined kinds
func (k Kind) Known() bool {
	return k == KindInit || k == KindMessage || k == KindRoster
}
