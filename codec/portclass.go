package codec

// PortClass is a transport-level tag chosen per command, selecting which
// kind of port a record routes through.
type PortClass uint8

const (
	// Lossless routes through a ring that blocks/rejects on full rather
	// than drop the record.
	Lossless PortClass = iota
	// BestEffort routes through a ring that drops the record on full.
	BestEffort
	// Coalesce routes through a mailbox, where a new send supersedes any
	// unread pending value.
	Coalesce
)

func (c PortClass) String() string {
	switch c {
	case Lossless:
		return "Lossless"
	case BestEffort:
		return "BestEffort"
	case Coalesce:
		return "Coalesce"
	default:
		return "PortClass(?)"
	}
}

// PortRole assigns a port within an endpoint.
type PortRole uint8

const (
	RoleCmdLossless PortRole = iota
	RoleCmdBestEffort
	RoleCmdMailbox
	RoleReplies
	// RoleSlotPool is the base role value for SlotPool(k); add k to
	// address the k-th slot pool attached to the endpoint.
	RoleSlotPool
)

// Encoded is the wire shape a Codec produces: a port class selecting the
// route, an envelope header, and the payload bytes.
type Encoded struct {
	Class    PortClass
	Envelope Envelope
	Payload  []byte
}

// Codec maps a typed value of T to its wire Encoded form and back.
// Encoders are pure; the fabric never interprets payload bytes itself.
// Decoders validate (tag, version, length) against an expected schema
// and return a *Error on mismatch rather than panicking.
type Codec[T any] interface {
	Encode(v T) (Encoded, error)
	Decode(e Envelope, payload []byte) (T, error)
}
