// Package codec maps typed commands and reports onto the wire shapes the
// transport primitives carry: an Envelope header plus a payload, tagged
// with the PortClass that selects which kind of port to route them through.
package codec

import "encoding/binary"

// EnvelopeSize is the fixed header size in bytes, per the wire layout:
//
//	offset  size  field
//	0       1     tag
//	1       1     version
//	2       1     flags
//	3       1     reserved (0)
//	4       4     length (LE u32, payload bytes)
const EnvelopeSize = 8

// Alignment is the byte alignment every ring record (envelope + payload)
// is padded to.
const Alignment = 8

// TagSkip marks a skip-record inserted by the message ring when a record
// would otherwise straddle the buffer's physical end.
const TagSkip = 0x00

// FlagSkipRecord is envelope flags bit 0: this record carries no payload
// of interest and exists only to round-trip the ring's wrap logic.
const FlagSkipRecord = uint8(1 << 0)

// reservedFlagsMask covers every flags bit except bit 0.
const reservedFlagsMask = ^FlagSkipRecord

// Envelope is the fixed header attached to every ring payload.
type Envelope struct {
	Tag     uint8
	Version uint8
	Flags   uint8
	Length  uint32 // payload byte count, excluding the envelope
}

// SkipRecord reports whether the envelope's skip-record flag is set.
func (e Envelope) SkipRecord() bool {
	return e.Flags&FlagSkipRecord != 0
}

// PaddedLength returns EnvelopeSize + Length rounded up to Alignment.
func (e Envelope) PaddedLength() int {
	return padTo(EnvelopeSize+int(e.Length), Alignment)
}

func padTo(n, align int) int {
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}

// Encode writes the envelope header into dst[0:EnvelopeSize].
// dst must be at least EnvelopeSize bytes.
func (e Envelope) Encode(dst []byte) {
	dst[0] = e.Tag
	dst[1] = e.Version
	dst[2] = e.Flags
	dst[3] = 0
	binary.LittleEndian.PutUint32(dst[4:8], e.Length)
}

// DecodeEnvelope reads an envelope header from src[0:EnvelopeSize].
// Returns ErrReservedFlags if any reserved flag bit is set.
func DecodeEnvelope(src []byte) (Envelope, error) {
	if len(src) < EnvelopeSize {
		return Envelope{}, ErrShortHeader
	}
	e := Envelope{
		Tag:     src[0],
		Version: src[1],
		Flags:   src[2],
		Length:  binary.LittleEndian.Uint32(src[4:8]),
	}
	if e.Flags&reservedFlagsMask != 0 {
		return Envelope{}, ErrReservedFlags
	}
	return e, nil
}
