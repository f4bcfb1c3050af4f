// Package mailbox implements C3 of the transport fabric: a single-cell
// coalescing container guarded by a seqlock, carrying at most one
// pending (envelope, payload) value at a time.
//
// The protocol is ported from the seqlock idiom used for BBO ticks over
// mmap'd shared memory: the writer bumps a sequence counter to odd,
// writes the fields with plain stores (no atomics needed once the
// counter is odd — only one writer ever exists), then bumps the counter
// to even. A reader snapshots the counter before and after copying the
// payload and only accepts the read if both snapshots match and are
// even — otherwise it was torn by a concurrent write and the reader
// retries.
package mailbox

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/fabric/codec"
)

// MaxRetries bounds how many times TryRecv re-samples the sequence
// counter before giving up and reporting empty, per the spec's
// "bounded-retry" reader.
const MaxRetries = 8

// Mailbox is a single-producer single-consumer coalescing cell. Payload
// capacity is fixed at construction; sends longer than that fail. A
// successful TryRecv consumes the pending value: a later TryRecv with no
// intervening Send reports empty.
type Mailbox struct {
	seq     atomix.Uint64 // even = stable, odd = writing
	pending atomix.Bool   // an unread value is currently held
	header  [codec.EnvelopeSize]byte
	payload []byte
	cap     int
}

// New creates a mailbox with the given payload capacity.
func New(payloadCap int) *Mailbox {
	return &Mailbox{
		payload: make([]byte, payloadCap),
		cap:     payloadCap,
	}
}

// Send atomically supersedes any unread pending value. Returns whether
// the send overwrote a value that TryRecv had not yet observed
// (coalesced) versus landing in an empty cell (accepted). Returns
// ErrPayloadTooLarge if len(payload) exceeds the mailbox's capacity.
func (m *Mailbox) Send(e codec.Envelope, payload []byte) (coalesced bool, err error) {
	if len(payload) > m.cap {
		return false, &ErrPayloadTooLarge{Length: len(payload), Capacity: m.cap}
	}

	seq := m.seq.LoadRelaxed()
	m.seq.StoreRelaxed(seq + 1) // now odd: write in progress

	e.Length = uint32(len(payload))
	e.Encode(m.header[:])
	copy(m.payload, payload)

	m.seq.StoreRelease(seq + 2) // now even: write complete
	coalesced = m.pending.LoadRelaxed()
	m.pending.StoreRelease(true)
	return coalesced, nil
}

// TryRecv consumes the current pending value, if any. Returns
// ErrWouldBlock if no value is pending (either nothing was ever sent, or
// the last sent value was already received), or if MaxRetries
// consecutive reads were torn by a concurrent writer (the writer is
// starving the reader — vanishingly rare at mailbox send rates).
func (m *Mailbox) TryRecv() (codec.Envelope, []byte, error) {
	if !m.pending.LoadAcquire() {
		return codec.Envelope{}, nil, ErrWouldBlock
	}

	var headerCopy [codec.EnvelopeSize]byte
	for attempt := 0; attempt < MaxRetries; attempt++ {
		s1 := m.seq.LoadAcquire()
		if s1&1 != 0 {
			continue // writer in progress, retry
		}

		copy(headerCopy[:], m.header[:])
		payloadCopy := make([]byte, len(m.payload))
		copy(payloadCopy, m.payload)

		s2 := m.seq.LoadAcquire()
		if s1 != s2 {
			continue // torn by a concurrent write, retry
		}

		e, err := codec.DecodeEnvelope(headerCopy[:])
		if err != nil {
			return codec.Envelope{}, nil, err
		}
		m.pending.StoreRelease(false)
		return e, payloadCopy[:e.Length], nil
	}
	return codec.Envelope{}, nil, ErrWouldBlock
}
