package services

import (
	"testing"
	"time"

	"code.hybscloud.com/fabric/mailbox"
	"code.hybscloud.com/fabric/msgring"
	"code.hybscloud.com/fabric/slotpool"
	"code.hybscloud.com/fabric/world"
)

func newRing(t *testing.T, size int) *msgring.Ring {
	t.Helper()
	r, err := msgring.New(make([]byte, size))
	if err != nil {
		t.Fatalf("msgring.New: %v", err)
	}
	return r
}

func TestFsPolicyForRoutesManualSaveLosslessElseCoalesce(t *testing.T) {
	if got := FsPolicyFor("/saves/manual-save"); got != world.Lossless {
		t.Fatalf("manual-save: got %v, want Lossless", got)
	}
	if got := FsPolicyFor("/saves/manual-save"); got != world.Lossless {
		t.Fatalf("manual-save repeated: got %v, want Lossless", got)
	}
	if got := FsPolicyFor("/saves/autosave-0001"); got != world.Coalesce {
		t.Fatalf("autosave: got %v, want Coalesce", got)
	}
}

func TestKernelEngineDisplayTickEmitsLaneFrameAndTickDone(t *testing.T) {
	cmdLossless := newRing(t, 256)
	cmdBestEffort := newRing(t, 256)
	replies := newRing(t, 512)
	pool, err := slotpool.New(make([]byte, 4*65536), slotpool.Config{SlotSize: 65536, SlotAlign: 65536, Count: 4})
	if err != nil {
		t.Fatalf("slotpool.New: %v", err)
	}

	eng := NewKernelEngine(cmdLossless, cmdBestEffort, replies, pool)

	var cc kernelCmdCodec
	enc, err := cc.Encode(world.KernelCmd{Kind: world.KernelTick, Purpose: world.Display, Budget: 70224})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	g, err := cmdLossless.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
	if err != nil {
		t.Fatalf("TryProduce: %v", err)
	}
	copy(g.Payload(), enc.Payload)
	g.Commit()

	if work := eng.Poll(); work != 1 {
		t.Fatalf("Poll: got %d work, want 1", work)
	}

	var rc kernelRepCodec
	rec1, err := replies.TryConsume()
	if err != nil {
		t.Fatalf("TryConsume(1): %v", err)
	}
	rep1, err := rc.Decode(rec1.Envelope, rec1.Payload())
	rec1.Release()
	if err != nil {
		t.Fatalf("Decode(1): %v", err)
	}
	if rep1.Kind != world.LaneFrame {
		t.Fatalf("first reply: got kind %d, want LaneFrame", rep1.Kind)
	}
	if rep1.Span.Count != 1 {
		t.Fatalf("LaneFrame span count: got %d, want 1", rep1.Span.Count)
	}

	rec2, err := replies.TryConsume()
	if err != nil {
		t.Fatalf("TryConsume(2): %v", err)
	}
	rep2, err := rc.Decode(rec2.Envelope, rec2.Payload())
	rec2.Release()
	if err != nil {
		t.Fatalf("Decode(2): %v", err)
	}
	if rep2.Kind != world.TickDone {
		t.Fatalf("second reply: got kind %d, want TickDone", rep2.Kind)
	}
}

func TestGpuEngineAcknowledgesUploadAndReturnsSlotToPool(t *testing.T) {
	cmd := newRing(t, 256)
	replies := newRing(t, 256)
	pool, err := slotpool.New(make([]byte, 2*65536), slotpool.Config{SlotSize: 65536, SlotAlign: 65536, Count: 2})
	if err != nil {
		t.Fatalf("slotpool.New: %v", err)
	}
	idx, err := pool.TryAcquireFree()
	if err != nil {
		t.Fatalf("TryAcquireFree: %v", err)
	}

	eng := NewGpuEngine(cmd, replies, pool)

	var cc gpuCmdCodec
	enc, err := cc.Encode(world.GpuCmd{Lane: 0, Span: slotpool.SlotSpan{StartIdx: idx, Count: 1}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	g, err := cmd.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
	if err != nil {
		t.Fatalf("TryProduce: %v", err)
	}
	copy(g.Payload(), enc.Payload)
	g.Commit()

	if work := eng.Poll(); work != 1 {
		t.Fatalf("Poll: got %d, want 1", work)
	}

	if _, err := pool.TryAcquireFree(); err != nil {
		t.Fatalf("slot was not returned to the free lane after GpuEngine.Poll: %v", err)
	}

	var rc gpuRepCodec
	rec, err := replies.TryConsume()
	if err != nil {
		t.Fatalf("TryConsume: %v", err)
	}
	rep, err := rc.Decode(rec.Envelope, rec.Payload())
	rec.Release()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rep.FrameID != 1 {
		t.Fatalf("FrameID: got %d, want 1", rep.FrameID)
	}
}

func submitAudio(t *testing.T, cmd *msgring.Ring, frames uint32) {
	t.Helper()
	var cc audioCmdCodec
	enc, err := cc.Encode(world.AudioCmd{Frames: frames})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	g, err := cmd.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
	if err != nil {
		t.Fatalf("TryProduce: %v", err)
	}
	copy(g.Payload(), enc.Payload)
	g.Commit()
}

func decodeAudioRep(t *testing.T, replies *msgring.Ring) world.AudioRep {
	t.Helper()
	var rc audioRepCodec
	rec, err := replies.TryConsume()
	if err != nil {
		t.Fatalf("TryConsume: %v", err)
	}
	rep, err := rc.Decode(rec.Envelope, rec.Payload())
	rec.Release()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return rep
}

func TestAudioEngineFirstSubmitNeverUnderruns(t *testing.T) {
	cmd := newRing(t, 256)
	replies := newRing(t, 256)
	eng := NewAudioEngine(cmd, replies)

	submitAudio(t, cmd, 512)
	if work := eng.Poll(); work != 1 {
		t.Fatalf("Poll: got %d, want 1", work)
	}
	rep := decodeAudioRep(t, replies)
	if rep.Kind != world.Played || rep.Frames != 512 {
		t.Fatalf("got %+v, want Played{512}", rep)
	}
}

func TestAudioEngineShortfallEmitsUnderrunBeforePlayed(t *testing.T) {
	cmd := newRing(t, 256)
	replies := newRing(t, 256)
	eng := NewAudioEngine(cmd, replies)

	submitAudio(t, cmd, 512)
	eng.Poll()
	decodeAudioRep(t, replies) // drain the first Played

	submitAudio(t, cmd, 256)
	if work := eng.Poll(); work != 1 {
		t.Fatalf("Poll: got %d, want 1", work)
	}

	first := decodeAudioRep(t, replies)
	if first.Kind != world.Underrun {
		t.Fatalf("first reply after shortfall: got %+v, want Underrun", first)
	}
	second := decodeAudioRep(t, replies)
	if second.Kind != world.Played || second.Frames != 256 {
		t.Fatalf("second reply after shortfall: got %+v, want Played{256}", second)
	}
}

func TestAudioEngineEqualOrGreaterFramesDoesNotUnderrun(t *testing.T) {
	cmd := newRing(t, 256)
	replies := newRing(t, 256)
	eng := NewAudioEngine(cmd, replies)

	submitAudio(t, cmd, 256)
	eng.Poll()
	decodeAudioRep(t, replies)

	submitAudio(t, cmd, 256)
	eng.Poll()
	rep := decodeAudioRep(t, replies)
	if rep.Kind != world.Played {
		t.Fatalf("got %+v, want Played", rep)
	}
}

func TestFsEngineManualSaveLosslessRoundTrip(t *testing.T) {
	cmdLossless := newRing(t, 256)
	mb := mailbox.New(128)
	replies := newRing(t, 256)

	eng := NewFsEngine(cmdLossless, mb, replies, nil)
	defer eng.Stop()

	var cc fsCmdCodec
	enc, err := cc.Encode(world.FsCmd{Kind: world.FsPersist, Path: "/saves/manual-save", Bytes: []byte("state")})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	g, err := cmdLossless.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
	if err != nil {
		t.Fatalf("TryProduce: %v", err)
	}
	copy(g.Payload(), enc.Payload)
	g.Commit()

	eng.Poll()

	var rc fsRepCodec
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		eng.Poll()
		rec, err := replies.TryConsume()
		if err != nil {
			continue
		}
		rep, decErr := rc.Decode(rec.Envelope, rec.Payload())
		rec.Release()
		if decErr != nil {
			t.Fatalf("Decode: %v", decErr)
		}
		if rep.Path != "/saves/manual-save" || !rep.OK {
			t.Fatalf("got %+v, want {manual-save, ok}", rep)
		}
		return
	}
	t.Fatal("timed out waiting for Fs worker pool to complete the job")
}
