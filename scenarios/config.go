// Package scenarios ports the original transport-scenarios test harness:
// stress-load drivers (Flood, Burst, Backpressure) that push a FabricHandle
// hard and record what happened in a concurrency-safe ScenarioStats sink,
// plus check functions that turn collected stats into a pass/fail verdict.
//
// Grounded in original_source/crates/transport-scenarios/src/{config,stats,
// handle}.rs; the Flood/Burst/Backpressure drive loops and check functions
// themselves are authored fresh against that grounding (checks.rs/engine.rs
// were not present in the retrieved original_source tree) in the style the
// rest of this repo uses for its drive loops.
package scenarios

import "encoding/binary"

// ScenarioKind selects which stress pattern Run drives.
type ScenarioKind uint32

const (
	Flood ScenarioKind = iota
	Burst
	Backpressure
)

func (k ScenarioKind) String() string {
	switch k {
	case Flood:
		return "Flood"
	case Burst:
		return "Burst"
	case Backpressure:
		return "Backpressure"
	default:
		return "ScenarioKind(?)"
	}
}

// TestConfig mirrors the original's repr(C) wire struct: a scenario kind
// plus up to two scenario-specific parameters.
type TestConfig struct {
	Kind   ScenarioKind
	Param1 uint32
	Param2 uint32
}

// FloodConfig drives frameCount frames through the fabric back-to-back,
// with no pacing.
func FloodConfig(frameCount uint32) TestConfig {
	return TestConfig{Kind: Flood, Param1: frameCount}
}

// BurstConfig drives `bursts` groups of `burstSize` frames each, back-to-back
// within a burst with no pacing between bursts either.
func BurstConfig(bursts, burstSize uint32) TestConfig {
	return TestConfig{Kind: Burst, Param1: bursts, Param2: burstSize}
}

// BackpressureConfig drives frames frames deliberately faster than the
// handle's ready lane can drain, to exercise the WouldBlock/wait path.
func BackpressureConfig(frames uint32) TestConfig {
	return TestConfig{Kind: Backpressure, Param1: frames}
}

// EventTag/EventVersion are the envelope tag/version default frame events
// use, per spec §6 (0x13 is reserved out of the Kernel tag range for
// exactly this payload).
const (
	EventTag     = 0x13
	EventVersion = 1
)

// EventPayload encodes the 8-byte scenario event payload: frame_id then
// slot_idx, both little-endian u32 — ported directly from
// transport-scenarios::event_payload.
func EventPayload(frameID, slotIdx uint32) [8]byte {
	var payload [8]byte
	binary.LittleEndian.PutUint32(payload[0:4], frameID)
	binary.LittleEndian.PutUint32(payload[4:8], slotIdx)
	return payload
}
