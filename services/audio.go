package services

import (
	"code.hybscloud.com/fabric/msgring"
	"code.hybscloud.com/fabric/world"
)

// AudioEngine is the mock Audio service's worker-island half. The base
// behavior (always-Must submission, Played{frames} acknowledgement) is
// ported from audio/src/lib.rs; the underrun synthesis is a
// supplemented feature the distillation dropped: when a submission
// delivers fewer frames than the previous one promised, the engine
// reports exactly one Underrun immediately before the Played that
// follows it.
type AudioEngine struct {
	cmd     *msgring.Ring
	replies *msgring.Ring

	cmdCodec audioCmdCodec
	repCodec audioRepCodec

	lastFrames uint32
}

// NewAudioEngine wires an engine to the worker-side halves of its
// endpoint's command and reply rings.
func NewAudioEngine(cmd, replies *msgring.Ring) *AudioEngine {
	return &AudioEngine{cmd: cmd, replies: replies}
}

func (a *AudioEngine) Name() string { return "audio" }

func (a *AudioEngine) Poll() int {
	rec, err := a.cmd.TryConsume()
	if err != nil {
		return 0
	}
	cmd, decErr := a.cmdCodec.Decode(rec.Envelope, rec.Payload())
	rec.Release()
	if decErr != nil {
		return 1
	}

	if a.lastFrames > 0 && cmd.Frames < a.lastFrames {
		a.emit(world.AudioRep{Kind: world.Underrun})
	}
	a.emit(world.AudioRep{Kind: world.Played, Frames: cmd.Frames})
	a.lastFrames = cmd.Frames
	return 1
}

func (a *AudioEngine) emit(rep world.AudioRep) {
	if a.replies == nil {
		return
	}
	enc, err := a.repCodec.Encode(rep)
	if err != nil {
		return
	}
	g, err := a.replies.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
	if err != nil {
		return
	}
	copy(g.Payload(), enc.Payload)
	g.Commit()
}
