// Package msgring implements C2 of the transport fabric: a framed,
// single-producer/single-consumer lock-free byte ring carrying
// (envelope, payload) records between a scheduler island and a worker
// island.
//
// The algorithm is the teacher's cached-index SPSC ring generalized from
// fixed-size typed slots to variable-length framed byte records: producer
// and consumer each cache the other side's index locally and only
// refresh it via an acquire load when their own cached view says the
// ring is full or empty, cutting cross-core cache traffic on the hot
// path.
package msgring

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/fabric/codec"
)

type pad [64]byte

// MinCapacity is the smallest ring capacity the fabric accepts.
const MinCapacity = 64

// Ring is an SPSC byte ring of capacity C (power of two, >= MinCapacity,
// 8-byte aligned). head is the consumer index, tail the producer index;
// both are monotonically increasing logical positions — physical offset
// is position & capMask.
type Ring struct {
	_          pad
	tail       atomix.Uint64 // producer writes here
	_          pad
	cachedHead uint64 // producer's cached view of head
	_          pad
	head       atomix.Uint64 // consumer writes here
	_          pad
	cachedTail uint64 // consumer's cached view of tail
	_          pad

	buf      []byte
	capacity uint64
	capMask  uint64
}

// New wraps buf as a message ring. len(buf) must be a power of two and
// >= MinCapacity; together these imply a multiple of 8, since
// MinCapacity is itself a power of two no smaller than 8.
func New(buf []byte) (*Ring, error) {
	n := len(buf)
	if n < MinCapacity || n&(n-1) != 0 {
		return nil, &ErrInvalidCapacity{Requested: uint32(n), Minimum: MinCapacity}
	}
	return &Ring{
		buf:      buf,
		capacity: uint64(n),
		capMask:  uint64(n - 1),
	}, nil
}

// Cap returns the ring's byte capacity.
func (r *Ring) Cap() int {
	return int(r.capacity)
}

// Grant is a producer-held handle over the payload region of a not-yet-
// published record. The caller fills Payload() and then calls Commit to
// publish the record; if Commit is never called the write is simply
// abandoned — tail never advances, so the consumer never observes it and
// the same physical bytes are reused on the next TryProduce.
type Grant struct {
	ring        *Ring
	payload     []byte
	pendingTail uint64
}

// Payload returns the mutable region the caller writes the record's
// payload bytes into.
func (g *Grant) Payload() []byte {
	return g.payload
}

// Commit publishes the record: a release store of tail, making the
// envelope and payload bytes already written acquire-visible to the
// consumer.
func (g *Grant) Commit() {
	g.ring.tail.StoreRelease(g.pendingTail)
}

// TryProduce reserves room for a record of payloadLen payload bytes
// tagged with (tag, version, flags). On success it writes the envelope
// header (and, if the record would straddle the ring's physical end, a
// preceding skip-record) and returns a Grant over the payload region.
// Returns ErrWouldBlock if there isn't enough free capacity.
func (r *Ring) TryProduce(tag, version, flags uint8, payloadLen int) (*Grant, error) {
	recordSize := padTo(codec.EnvelopeSize+payloadLen, codec.Alignment)
	if recordSize > int(r.capacity) {
		return nil, &ErrInvalidCapacity{Requested: uint32(recordSize), Minimum: uint32(r.capacity)}
	}

	tail := r.tail.LoadRelaxed()
	physPos := tail & r.capMask
	remain := r.capacity - physPos

	var skipLen uint64
	if remain < uint64(recordSize) {
		skipLen = remain
	}
	total := skipLen + uint64(recordSize)

	free := r.capacity - (tail - r.cachedHead)
	if free < total {
		r.cachedHead = r.head.LoadAcquire()
		free = r.capacity - (tail - r.cachedHead)
		if free < total {
			return nil, ErrWouldBlock
		}
	}

	if skipLen > 0 {
		skip := codec.Envelope{Tag: codec.TagSkip, Flags: codec.FlagSkipRecord, Length: uint32(skipLen - codec.EnvelopeSize)}
		skip.Encode(r.buf[physPos : physPos+codec.EnvelopeSize])
		physPos = 0
	}

	e := codec.Envelope{Tag: tag, Version: version, Flags: flags, Length: uint32(payloadLen)}
	e.Encode(r.buf[physPos : physPos+codec.EnvelopeSize])
	payloadOff := physPos + codec.EnvelopeSize

	return &Grant{
		ring:        r,
		payload:     r.buf[payloadOff : payloadOff+uint64(payloadLen)],
		pendingTail: tail + total,
	}, nil
}

// Record is a consumer-held, read-only view over a published record.
// Release acknowledges it, advancing head past it.
type Record struct {
	ring        *Ring
	Envelope    codec.Envelope
	payload     []byte
	pendingHead uint64
}

// Payload returns the record's payload bytes. The slice is only valid
// until Release is called.
func (rec *Record) Payload() []byte {
	return rec.payload
}

// Release acknowledges the record, advancing head with a release store.
func (rec *Record) Release() {
	rec.ring.head.StoreRelease(rec.pendingHead)
}

// TryConsume returns the next published record, transparently skipping
// any skip-records the producer inserted for wrap handling. Returns
// ErrWouldBlock if the ring is empty.
func (r *Ring) TryConsume() (*Record, error) {
	head := r.head.LoadRelaxed()

	for {
		if head >= r.cachedTail {
			r.cachedTail = r.tail.LoadAcquire()
			if head >= r.cachedTail {
				return nil, ErrWouldBlock
			}
		}

		physPos := head & r.capMask
		e, err := codec.DecodeEnvelope(r.buf[physPos : physPos+codec.EnvelopeSize])
		if err != nil {
			return nil, err
		}
		recordSize := uint64(e.PaddedLength())

		if e.Tag == codec.TagSkip && e.SkipRecord() {
			head += recordSize
			r.head.StoreRelease(head)
			continue
		}

		payloadOff := physPos + codec.EnvelopeSize
		return &Record{
			ring:        r,
			Envelope:    e,
			payload:     r.buf[payloadOff : payloadOff+uint64(e.Length)],
			pendingHead: head + recordSize,
		}, nil
	}
}

func padTo(n, align int) int {
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}
