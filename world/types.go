// Package world implements C11 of the transport fabric: the
// scheduler-local application state plus the pure intent and report
// reducers that translate UI-facing intents into service commands and
// service reports back into state transitions and follow-up work.
//
// Types here are flat structs tagged by a Kind enum rather than a sum of
// interfaces — the same shape the transport's own codec.Envelope uses —
// since every variant here crosses a serialization-free, purely
// in-process boundary and a switch on Kind is the idiomatic Go substitute
// for the original's closed enum match.
package world

import "code.hybscloud.com/fabric/slotpool"

// ServiceTarget names which mock service a command addresses.
type ServiceTarget uint8

const (
	Kernel ServiceTarget = iota
	Gpu
	Audio
	Fs
)

func (s ServiceTarget) String() string {
	switch s {
	case Kernel:
		return "Kernel"
	case Gpu:
		return "Gpu"
	case Audio:
		return "Audio"
	case Fs:
		return "Fs"
	default:
		return "ServiceTarget(?)"
	}
}

// IntentKind tags the variant carried by an Intent.
type IntentKind uint8

const (
	PumpFrame IntentKind = iota
	LoadRom
	TogglePause
	SetSpeed
	SelectDisplayLane
	DebugSnapshot
	DebugMem
	DebugStepInstruction
	DebugStepFrame
)

// MemSpace names a debug memory window's address space.
type MemSpace uint8

const (
	MemWram MemSpace = iota
	MemVram
	MemHram
	MemOam
)

// Intent is a UI-facing request to the scheduler. Only the fields
// relevant to Kind are populated.
type Intent struct {
	Kind     IntentKind
	Group    uint16
	Bytes    []byte
	Speed    float32
	Lane     uint8
	Space    MemSpace
	Base     uint32
	Len      uint32
	StepN    uint32
}

// TickPurpose distinguishes why a Kernel.Tick command was issued.
type TickPurpose uint8

const (
	Display TickPurpose = iota
	Headless
)

// KernelCmdKind tags the variant carried by a KernelCmd.
type KernelCmdKind uint8

const (
	KernelTick KernelCmdKind = iota
	KernelLoadRom
	KernelDebugSnapshot
	KernelDebugMem
	KernelDebugStepInstruction
	KernelDebugStepFrame
)

// KernelCmd addresses the mock Kernel service.
type KernelCmd struct {
	Kind    KernelCmdKind
	Group   uint16
	Purpose TickPurpose
	Budget  uint32
	Bytes   []byte
	Space   MemSpace
	Base    uint32
	Len     uint32
	StepN   uint32
}

// GpuCmd addresses the mock Gpu service.
type GpuCmd struct {
	Lane uint8
	Span slotpool.SlotSpan
}

// AudioCmd addresses the mock Audio service.
type AudioCmd struct {
	Span   slotpool.SlotSpan
	Frames uint32
}

// FsCmdKind tags the variant carried by an FsCmd.
type FsCmdKind uint8

const (
	FsPersist FsCmdKind = iota
)

// FsCmd addresses the mock Fs service.
type FsCmd struct {
	Kind  FsCmdKind
	Path  string
	Bytes []byte
}

// WorkCmd is a reducer's output: one command addressed to one service,
// to be submitted through that service's endpoint at Policy.
type WorkCmd struct {
	Target ServiceTarget
	Policy Policy
	Kernel KernelCmd
	Gpu    GpuCmd
	Audio  AudioCmd
	Fs     FsCmd
}

// Policy mirrors endpoint.Policy without importing it, so world stays a
// leaf package the endpoint layer never needs to import back — the
// scheduler translates Policy to endpoint.Policy at the submit boundary.
type Policy uint8

const (
	Must Policy = iota
	Lossless
	BestEffort
	Coalesce
)

// KernelRepKind tags the variant carried by a KernelRep.
type KernelRepKind uint8

const (
	LaneFrame KernelRepKind = iota
	TickDone
	RomLoaded
	DebugRep
)

// KernelRep is a report from the mock Kernel service.
type KernelRep struct {
	Kind    KernelRepKind
	Lane    uint8
	Span    slotpool.SlotSpan
	FrameID uint32
	Debug   DebugReport
}

// DebugReport is the mock Kernel's debug inspector projection.
type DebugReport struct {
	Group uint16
	Note  string
}

// AudioRepKind tags the variant carried by an AudioRep.
type AudioRepKind uint8

const (
	Played AudioRepKind = iota
	Underrun
)

// AudioRep is a report from the mock Audio service.
type AudioRep struct {
	Kind   AudioRepKind
	Frames uint32
}

// ReportSource names which service produced a Report.
type ReportSource uint8

const (
	FromKernel ReportSource = iota
	FromGpu
	FromAudio
	FromFs
)

// Report is a decoded, service-tagged report handed to ReduceReport.
// Gpu/Fs reports are informational only (§4.8) and carry no payload here.
type Report struct {
	Source ReportSource
	Kernel KernelRep
	Audio  AudioRep
}

// PriorityIntent pairs a deferred intent with the bucket it should land
// in — used for the scheduler's own priority.PQueues, kept as a plain
// uint8 so world does not import priority (the scheduler package does the
// Enqueue call itself).
type PriorityIntent struct {
	Priority uint8 // 0=P0, 1=P1, 2=P2
	Intent   Intent
}

// FollowUps collects a report reduction's side effects: commands to
// submit immediately within the same tick, and intents to enqueue for a
// later tick.
type FollowUps struct {
	ImmediateAV     []WorkCmd
	DeferredIntents []PriorityIntent
}

// PushImmediateAV appends cmd to the immediate-submission list.
func (f *FollowUps) PushImmediateAV(cmd WorkCmd) {
	f.ImmediateAV = append(f.ImmediateAV, cmd)
}

// PushDeferredIntent appends intent, to be enqueued at priority p (0=P0,
// 1=P1, 2=P2) on a later tick.
func (f *FollowUps) PushDeferredIntent(p uint8, intent Intent) {
	f.DeferredIntents = append(f.DeferredIntents, PriorityIntent{Priority: p, Intent: intent})
}
