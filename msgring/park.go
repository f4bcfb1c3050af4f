package msgring

import "code.hybscloud.com/spin"

// ParkAttempts bounds the busy-wait retries ProduceBlocking performs
// before giving up and returning ErrWouldBlock, matching the teacher's
// bounded-retry spin idiom used throughout its own FAA-based queues.
const ParkAttempts = 64

// ProduceBlocking retries TryProduce up to ParkAttempts times with
// [spin.Wait] backoff between attempts. It exists for callers that are
// not on the scheduler's non-blocking hot path (e.g. tests, the
// scenario harness) and are willing to spin briefly rather than
// immediately surface backpressure.
func (r *Ring) ProduceBlocking(tag, version, flags uint8, payloadLen int) (*Grant, error) {
	sw := spin.Wait{}
	for attempt := 0; attempt < ParkAttempts; attempt++ {
		g, err := r.TryProduce(tag, version, flags, payloadLen)
		if err == nil {
			return g, nil
		}
		if !IsWouldBlock(err) {
			return nil, err
		}
		sw.Once()
	}
	return nil, ErrWouldBlock
}

// ConsumeBlocking retries TryConsume up to ParkAttempts times with
// [spin.Wait] backoff between attempts.
func (r *Ring) ConsumeBlocking() (*Record, error) {
	sw := spin.Wait{}
	for attempt := 0; attempt < ParkAttempts; attempt++ {
		rec, err := r.TryConsume()
		if err == nil {
			return rec, nil
		}
		if !IsWouldBlock(err) {
			return nil, err
		}
		sw.Once()
	}
	return nil, ErrWouldBlock
}
