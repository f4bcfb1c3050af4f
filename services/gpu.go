package services

import (
	"code.hybscloud.com/fabric/msgring"
	"code.hybscloud.com/fabric/slotpool"
)

// GpuEngine is the mock Gpu service's worker-island half. Per
// gpu/src/lib.rs the mock always submits Must and simply acknowledges
// each uploaded frame with an incrementing frame_id, then returns the
// backing slot to the frame pool it shares with the Kernel engine.
type GpuEngine struct {
	cmd     *msgring.Ring
	replies *msgring.Ring
	frames  *slotpool.Pool

	cmdCodec gpuCmdCodec
	repCodec gpuRepCodec

	nextFrameID uint64
}

// NewGpuEngine wires an engine to the worker-side halves of its
// endpoint's command ring, reply ring, and the frame pool it shares
// with the Kernel engine.
func NewGpuEngine(cmd, replies *msgring.Ring, frames *slotpool.Pool) *GpuEngine {
	return &GpuEngine{cmd: cmd, replies: replies, frames: frames}
}

func (g *GpuEngine) Name() string { return "gpu" }

func (g *GpuEngine) Poll() int {
	rec, err := g.cmd.TryConsume()
	if err != nil {
		return 0
	}
	cmd, decErr := g.cmdCodec.Decode(rec.Envelope, rec.Payload())
	rec.Release()
	if decErr != nil {
		return 1
	}

	for i := uint32(0); i < cmd.Span.Count; i++ {
		_ = g.frames.ReleaseFree(cmd.Span.StartIdx + i)
	}

	g.nextFrameID++
	enc, err := g.repCodec.Encode(GpuRep{Lane: cmd.Lane, FrameID: g.nextFrameID})
	if err != nil {
		return 1
	}
	grant, err := g.replies.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
	if err != nil {
		return 1
	}
	copy(grant.Payload(), enc.Payload)
	grant.Commit()
	return 1
}
