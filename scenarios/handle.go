package scenarios

// PushResult mirrors the transport's SlotPush outcome for a single
// push-ready or push-event attempt.
type PushResult uint8

const (
	PushOk PushResult = iota
	PushWouldBlock
)

// FabricHandle is the narrow surface a scenario driver needs over a real
// endpoint+slot pool, ported from transport-scenarios::handle::FabricHandle.
// A production caller implements this over its own endpoint.Endpoint plus
// slotpool.Pool; tests implement it over an in-memory fake.
type FabricHandle interface {
	AcquireFreeSlot() (uint32, bool)
	WaitForFreeSlot()
	WriteFrame(slotIdx uint32, frameID uint32)
	PushReady(slotIdx uint32) PushResult
	WaitForReadyDrain()
	TryPushEvent(frameID, slotIdx uint32) bool
	WaitForEventSpace()
}
