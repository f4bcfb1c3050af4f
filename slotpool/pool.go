// Package slotpool implements C4 of the transport fabric: a fixed-count
// pool of equally-sized buffers partitioned into free, ready, and
// in-use lanes, used for zero-copy bulk payloads (video frames, audio
// blocks) that bypass the message ring entirely.
//
// The free and ready lanes are each backed by [lfq.SPSCIndirect], the
// teacher's cached-index SPSC ring repurposed to carry slot indices
// instead of typed values — exactly the "buffer pool with index-based
// access" pattern its own package documentation describes.
package slotpool

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/fabric/internal/lfq"
	"code.hybscloud.com/spin"
)

// DefaultSlotAlignment is the alignment the spec calls out as typical
// for slot pools (64 KiB, sized for whole video frames or audio blocks).
const DefaultSlotAlignment = 64 * 1024

// MinSlotAlignment is the smallest alignment a slot pool accepts.
const MinSlotAlignment = 8

// Config fixes a slot pool's region size: count equally-sized slots of
// slotSize bytes, each aligned to slotAlign.
type Config struct {
	SlotSize  int
	SlotAlign int
	Count     int
}

// Pool is a fixed-count set of equally-sized buffers with free/ready
// lanes. Every slot index in [0, N) sits in exactly one of
// {free, ready, in-use} at any time; in-use slots are simply not present
// in either queue — ownership is tracked by the caller holding the index.
type Pool struct {
	cfg       Config
	buf       []byte
	free      *lfq.SPSCIndirect
	ready     *lfq.SPSCIndirect
	freeCount atomix.Int64
}

// New creates a slot pool backed by buf, which must be at least
// count*slotSize bytes. slotAlign must be a power of two >= MinSlotAlignment.
func New(buf []byte, cfg Config) (*Pool, error) {
	if cfg.SlotAlign < MinSlotAlignment || cfg.SlotAlign&(cfg.SlotAlign-1) != 0 {
		return nil, &ErrInvalidConfig{Reason: fmt.Sprintf("slot alignment %d is not a power of two >= %d", cfg.SlotAlign, MinSlotAlignment)}
	}
	if cfg.SlotSize <= 0 || cfg.SlotSize%cfg.SlotAlign != 0 {
		return nil, &ErrInvalidConfig{Reason: fmt.Sprintf("slot size %d is not a multiple of alignment %d", cfg.SlotSize, cfg.SlotAlign)}
	}
	if cfg.Count <= 0 {
		return nil, &ErrInvalidConfig{Reason: "count must be > 0"}
	}
	need := cfg.Count * cfg.SlotSize
	if len(buf) < need {
		return nil, &ErrInvalidConfig{Reason: fmt.Sprintf("backing buffer is %d bytes, need %d", len(buf), need)}
	}

	p := &Pool{
		cfg:   cfg,
		buf:   buf,
		free:  lfq.NewSPSCIndirect(max2(cfg.Count, 2)),
		ready: lfq.NewSPSCIndirect(max2(cfg.Count, 2)),
	}
	for i := 0; i < cfg.Count; i++ {
		if err := p.free.Enqueue(uintptr(i)); err != nil {
			return nil, &ErrInvalidConfig{Reason: "failed to seed free lane"}
		}
	}
	p.freeCount.StoreRelaxed(int64(cfg.Count))
	return p, nil
}

func max2(n, min int) int {
	if n < min {
		return min
	}
	return n
}

// Count returns the pool's total slot count.
func (p *Pool) Count() int {
	return p.cfg.Count
}

// Slot returns the slotSize-byte region backing index idx.
func (p *Pool) Slot(idx uint32) []byte {
	off := int(idx) * p.cfg.SlotSize
	return p.buf[off : off+p.cfg.SlotSize]
}

// TryAcquireFree pops an index from the free lane, moving it to in-use.
// Returns ErrWouldBlock if the free lane is empty.
func (p *Pool) TryAcquireFree() (uint32, error) {
	idx, err := p.free.Dequeue()
	if err != nil {
		return 0, ErrWouldBlock
	}
	p.freeCount.AddAcqRel(-1)
	return uint32(idx), nil
}

// PushReady moves idx from in-use to the ready lane. Returns
// ErrWouldBlock when the ready lane's capacity is exhausted because the
// consumer has not drained it.
func (p *Pool) PushReady(idx uint32) error {
	if err := p.ready.Enqueue(uintptr(idx)); err != nil {
		return ErrWouldBlock
	}
	return nil
}

// DrainReady atomically empties the ready lane, returning every index
// that was pending.
func (p *Pool) DrainReady() []uint32 {
	var out []uint32
	for {
		idx, err := p.ready.Dequeue()
		if err != nil {
			return out
		}
		out = append(out, uint32(idx))
	}
}

// ReleaseFree returns idx to the free lane (consumer-side), making it
// available to producers — including any parked in WaitForReadyDrain.
func (p *Pool) ReleaseFree(idx uint32) error {
	if err := p.free.Enqueue(uintptr(idx)); err != nil {
		return err
	}
	p.freeCount.AddAcqRel(1)
	return nil
}

// ParkAttempts bounds WaitForReadyDrain's busy-wait before it gives up.
const ParkAttempts = 256

// WaitForReadyDrain blocks the calling producer until at least one slot
// has returned to free, or ParkAttempts spin iterations elapse. Returns
// true if a free slot became available, false on timeout. The package has
// no copy-out path: the kernel engine retries PushReady once after this
// call and, if that fails too, releases the slot and drops the frame.
func (p *Pool) WaitForReadyDrain() bool {
	sw := spin.Wait{}
	for attempt := 0; attempt < ParkAttempts; attempt++ {
		if p.freeCount.LoadAcquire() > 0 {
			return true
		}
		sw.Once()
	}
	return p.freeCount.LoadAcquire() > 0
}

// SlotSpan advertises a contiguous range of ready slots as a zero-copy
// payload descriptor.
type SlotSpan struct {
	StartIdx uint32
	Count    uint32
}
