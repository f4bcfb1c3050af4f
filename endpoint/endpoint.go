// Package endpoint implements C6 of the transport fabric: the
// ServiceAdapter that bundles one service's ports — a Lossless command
// ring, a BestEffort command ring, a Coalesce mailbox, a reply ring, and
// zero or more slot pools — behind a single submit/drain surface.
package endpoint

import (
	"code.hybscloud.com/fabric/codec"
	"code.hybscloud.com/fabric/mailbox"
	"code.hybscloud.com/fabric/msgring"
	"code.hybscloud.com/fabric/slotpool"
)

// Policy is the caller-requested delivery semantics for TrySubmit. Per
// spec §4.5's selector precedence, a caller-supplied Policy always wins
// over the codec's own PortClass default.
type Policy uint8

const (
	// Must behaves identically to Lossless: the command ring with
	// WouldBlock-on-full semantics. Kept distinct from Lossless because
	// the reducer policies in §4.8 name both.
	Must Policy = iota
	Lossless
	BestEffort
	Coalesce
)

// PolicyFromPortClass maps a codec's default PortClass to the Policy a
// caller gets when it supplies none explicitly.
func PolicyFromPortClass(c codec.PortClass) Policy {
	switch c {
	case codec.Lossless:
		return Lossless
	case codec.BestEffort:
		return BestEffort
	case codec.Coalesce:
		return Coalesce
	default:
		return Lossless
	}
}

// Outcome reports what TrySubmit actually did.
type Outcome uint8

const (
	// Accepted means the record was enqueued (ring) or landed in an
	// empty mailbox cell.
	Accepted Outcome = iota
	// Dropped means a BestEffort submit found its ring full; the record
	// was not enqueued and no error is raised.
	Dropped
	// Coalesced means a Coalesce submit overwrote an unread pending
	// mailbox value.
	Coalesced
	// WouldBlock means a Lossless/Must submit found its ring full; the
	// caller (the scheduler) must requeue the originating intent.
	WouldBlock
	// Closed means the endpoint's underlying channel has been torn down;
	// the caller promotes this to health.fatal.
	Closed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "Accepted"
	case Dropped:
		return "Dropped"
	case Coalesced:
		return "Coalesced"
	case WouldBlock:
		return "WouldBlock"
	case Closed:
		return "Closed"
	default:
		return "Outcome(?)"
	}
}

// Endpoint bundles the ports that together expose one service: three
// command ports (addressed by Policy) plus one reply port plus a set of
// slot pools for zero-copy bulk payloads.
type Endpoint struct {
	cmdLossless   *msgring.Ring
	cmdBestEffort *msgring.Ring
	cmdMailbox    *mailbox.Mailbox
	replies       *msgring.Ring
	pools         []*slotpool.Pool
	closed        bool
}

// Builder assembles an Endpoint from its constituent ports. Ports left
// unset stay nil; submitting to a nil port panics with a nil pointer
// dereference, since that is a fabric-layout bug, not a runtime
// condition.
type Builder struct {
	ep Endpoint
}

// NewBuilder starts a new Endpoint assembly.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithCmdLossless attaches the ring backing Must/Lossless submits.
func (b *Builder) WithCmdLossless(r *msgring.Ring) *Builder {
	b.ep.cmdLossless = r
	return b
}

// WithCmdBestEffort attaches the ring backing BestEffort submits.
func (b *Builder) WithCmdBestEffort(r *msgring.Ring) *Builder {
	b.ep.cmdBestEffort = r
	return b
}

// WithCmdMailbox attaches the mailbox backing Coalesce submits.
func (b *Builder) WithCmdMailbox(m *mailbox.Mailbox) *Builder {
	b.ep.cmdMailbox = m
	return b
}

// WithReplies attaches the reply ring Drain reads from.
func (b *Builder) WithReplies(r *msgring.Ring) *Builder {
	b.ep.replies = r
	return b
}

// WithPool appends a slot pool, addressable by its index (role
// RoleSlotPool + k).
func (b *Builder) WithPool(p *slotpool.Pool) *Builder {
	b.ep.pools = append(b.ep.pools, p)
	return b
}

// Build finalizes the Endpoint. Command/reply ports may be left nil if a
// given service genuinely has no use for that port class — callers must
// not submit against an unset port.
func (b *Builder) Build() *Endpoint {
	ep := b.ep
	return &ep
}

// Pool returns the k-th attached slot pool.
func (e *Endpoint) Pool(k int) *slotpool.Pool {
	return e.pools[k]
}

// Close marks the endpoint closed; subsequent submits report Closed.
func (e *Endpoint) Close() {
	e.closed = true
}

// TrySubmit encodes and routes cmd according to policy, per §4.5:
//   - Must/Lossless  -> cmdLossless ring; WouldBlock on full.
//   - BestEffort      -> cmdBestEffort ring; full reports Dropped, not an error.
//   - Coalesce        -> mailbox; always succeeds (absent Closed), reporting
//     Coalesced when it superseded an unread value, Accepted otherwise.
func (e *Endpoint) TrySubmit(enc codec.Encoded, policy Policy) (Outcome, error) {
	if e.closed {
		return Closed, nil
	}

	switch policy {
	case Must, Lossless:
		g, err := e.cmdLossless.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
		if err != nil {
			if msgring.IsWouldBlock(err) {
				return WouldBlock, nil
			}
			return WouldBlock, err
		}
		copy(g.Payload(), enc.Payload)
		g.Commit()
		return Accepted, nil

	case BestEffort:
		g, err := e.cmdBestEffort.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
		if err != nil {
			if msgring.IsWouldBlock(err) {
				return Dropped, nil
			}
			return Dropped, err
		}
		copy(g.Payload(), enc.Payload)
		g.Commit()
		return Accepted, nil

	case Coalesce:
		coalesced, err := e.cmdMailbox.Send(enc.Envelope, enc.Payload)
		if err != nil {
			return Dropped, err
		}
		if coalesced {
			return Coalesced, nil
		}
		return Accepted, nil

	default:
		return Dropped, nil
	}
}

// Report is a decoded reply-ring record handed back to the caller.
type Report struct {
	Envelope codec.Envelope
	Payload  []byte
}

// Drain decodes up to max pending reply-ring records. Payload slices are
// owned copies — safe to retain past the next Drain call, unlike the
// ring's own zero-copy Record.Payload().
func (e *Endpoint) Drain(max int) []Report {
	if e.replies == nil {
		return nil
	}
	var out []Report
	for i := 0; i < max; i++ {
		rec, err := e.replies.TryConsume()
		if err != nil {
			break
		}
		payload := make([]byte, len(rec.Payload()))
		copy(payload, rec.Payload())
		out = append(out, Report{Envelope: rec.Envelope, Payload: payload})
		rec.Release()
	}
	return out
}
