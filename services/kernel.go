package services

import (
	"code.hybscloud.com/fabric/frame"
	"code.hybscloud.com/fabric/msgring"
	"code.hybscloud.com/fabric/slotpool"
	"code.hybscloud.com/fabric/world"
)

// defaultFrameWidth/defaultFrameHeight mirror sink_transport.rs's
// fallback dimensions for a zero-valued width/height.
const (
	defaultFrameWidth  = 160
	defaultFrameHeight = 144
)

// KernelEngine is the mock Kernel service's worker-island half: it
// drains Tick/LoadRom/Debug* commands off its Lossless and BestEffort
// rings, produces a checkerboard frame into its slot pool for Display
// ticks, and reports back over its reply ring.
type KernelEngine struct {
	cmdLossless   *msgring.Ring
	cmdBestEffort *msgring.Ring
	replies       *msgring.Ring
	frames        *slotpool.Pool

	cmdCodec kernelCmdCodec
	repCodec kernelRepCodec

	width, height uint16
	frameID       uint32
	romLoaded     bool
	paused        bool
}

// NewKernelEngine wires an engine to the worker-side halves of its
// endpoint's ports: cmdLossless/cmdBestEffort are drained, replies is
// produced onto, frames backs Display-tick frame production.
func NewKernelEngine(cmdLossless, cmdBestEffort, replies *msgring.Ring, frames *slotpool.Pool) *KernelEngine {
	return &KernelEngine{
		cmdLossless:   cmdLossless,
		cmdBestEffort: cmdBestEffort,
		replies:       replies,
		frames:        frames,
		width:         defaultFrameWidth,
		height:        defaultFrameHeight,
	}
}

func (k *KernelEngine) Name() string { return "kernel" }

// Poll drains one command from each command ring (Lossless before
// BestEffort, matching the priority ordering of their originating
// submit policies) and returns the number of commands it handled.
func (k *KernelEngine) Poll() int {
	work := 0
	if rec, err := k.cmdLossless.TryConsume(); err == nil {
		k.handle(rec)
		work++
	}
	if rec, err := k.cmdBestEffort.TryConsume(); err == nil {
		k.handle(rec)
		work++
	}
	return work
}

func (k *KernelEngine) handle(rec *msgring.Record) {
	cmd, err := k.cmdCodec.Decode(rec.Envelope, rec.Payload())
	rec.Release()
	if err != nil {
		return
	}

	switch cmd.Kind {
	case world.KernelTick:
		if cmd.Purpose == world.Display {
			k.produceFrame(cmd.Group)
		}
		k.emit(world.KernelRep{Kind: world.TickDone})

	case world.KernelLoadRom:
		k.romLoaded = true
		k.emit(world.KernelRep{Kind: world.RomLoaded})

	case world.KernelDebugSnapshot:
		k.emit(world.KernelRep{Kind: world.DebugRep, Debug: world.DebugReport{Group: cmd.Group, Note: "snapshot"}})

	case world.KernelDebugMem:
		k.emit(world.KernelRep{Kind: world.DebugRep, Debug: world.DebugReport{Group: cmd.Group, Note: "mem"}})

	case world.KernelDebugStepInstruction:
		k.emit(world.KernelRep{Kind: world.DebugRep, Debug: world.DebugReport{Group: cmd.Group, Note: "step-instruction"}})

	case world.KernelDebugStepFrame:
		k.produceFrame(cmd.Group)
		k.emit(world.KernelRep{Kind: world.DebugRep, Debug: world.DebugReport{Group: cmd.Group, Note: "step-frame"}})
	}
}

// produceFrame ports TransportFrameSink.produce_frame's degraded path:
// acquire a free slot, write the frame, then try to push it ready. A
// first WouldBlock parks briefly for a slot to free up; a second
// WouldBlock means the pool is still saturated and the frame is
// dropped (no report emitted) rather than blocking the worker island.
func (k *KernelEngine) produceFrame(lane uint16) {
	idx, err := k.frames.TryAcquireFree()
	if err != nil {
		return
	}

	frame.WriteCheckerboardRGBA(k.frames.Slot(idx), k.frameID, k.width, k.height)

	waited := false
	for {
		if pushErr := k.frames.PushReady(idx); pushErr == nil {
			k.frameID++
			k.emit(world.KernelRep{
				Kind:    world.LaneFrame,
				Lane:    uint8(lane),
				Span:    slotpool.SlotSpan{StartIdx: idx, Count: 1},
				FrameID: k.frameID,
			})
			return
		}
		if !waited {
			k.frames.WaitForReadyDrain()
			waited = true
			continue
		}
		_ = k.frames.ReleaseFree(idx)
		return
	}
}

func (k *KernelEngine) emit(rep world.KernelRep) {
	if k.replies == nil {
		return
	}
	enc, err := k.repCodec.Encode(rep)
	if err != nil {
		return
	}
	g, err := k.replies.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
	if err != nil {
		return
	}
	copy(g.Payload(), enc.Payload)
	g.Commit()
}
