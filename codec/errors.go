package codec

import "errors"

// ErrShortHeader is returned when a buffer is too small to hold an Envelope.
var ErrShortHeader = errors.New("codec: buffer shorter than envelope header")

// ErrReservedFlags is returned when a decoded envelope sets a flags bit
// beyond bit 0 (skip record), which the fabric reserves for future use.
var ErrReservedFlags = errors.New("codec: reserved envelope flags set")

// ErrUnknownTag is returned by a Codec when a decoded envelope's tag does
// not match any command/report this codec knows how to decode.
var ErrUnknownTag = errors.New("codec: unknown tag")

// ErrVersionMismatch is returned when a decoded envelope's version does
// not match the schema revision this codec expects for its tag.
var ErrVersionMismatch = errors.New("codec: version mismatch")

// ErrLengthViolation is returned when a decoded envelope's length does
// not match what the tag's schema requires.
var ErrLengthViolation = errors.New("codec: payload length violation")

// Error wraps one of the sentinel errors above with the offending tag,
// version, and length, so a diagnostic log can name the bad record
// without aborting the caller's decode loop.
type Error struct {
	Tag     uint8
	Version uint8
	Length  uint32
	Err     error
}

func (e *Error) Error() string {
	return "codec: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
