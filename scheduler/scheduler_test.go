package scheduler_test

import (
	"testing"

	"code.hybscloud.com/fabric/endpoint"
	"code.hybscloud.com/fabric/mailbox"
	"code.hybscloud.com/fabric/msgring"
	"code.hybscloud.com/fabric/scheduler"
	"code.hybscloud.com/fabric/services"
	"code.hybscloud.com/fabric/slotpool"
	"code.hybscloud.com/fabric/world"
	"github.com/rs/zerolog"
)

// frameSlotSize covers an 8-byte frame header plus a full 160x144 RGBA8888
// body, the kernel engine's default display resolution.
const frameSlotSize = 8 + 160*144*4

func newRing(t *testing.T, size int) *msgring.Ring {
	t.Helper()
	r, err := msgring.New(make([]byte, size))
	if err != nil {
		t.Fatalf("msgring.New: %v", err)
	}
	return r
}

func newPool(t *testing.T, count int) *slotpool.Pool {
	t.Helper()
	p, err := slotpool.New(make([]byte, count*frameSlotSize), slotpool.Config{
		SlotSize:  frameSlotSize,
		SlotAlign: 8,
		Count:     count,
	})
	if err != nil {
		t.Fatalf("slotpool.New: %v", err)
	}
	return p
}

// fixture wires one Scheduler over real endpoints, backed by real
// msgring/mailbox/slotpool ports, driven by the real kernel/gpu/audio
// service engines — end to end, the same round trip spec §8's scenario 1
// exercises at the reducer level alone in world_test.go.
type fixture struct {
	sched *scheduler.Scheduler

	kernelLossless *msgring.Ring

	kernel *services.KernelEngine
	gpu    *services.GpuEngine
	audio  *services.AudioEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	frames := newPool(t, 4)

	kernelLossless := newRing(t, 8192)
	kernelBestEffort := newRing(t, 4096)
	kernelReplies := newRing(t, 8192)
	kernelEp := endpoint.NewBuilder().
		WithCmdLossless(kernelLossless).
		WithCmdBestEffort(kernelBestEffort).
		WithReplies(kernelReplies).
		WithPool(frames).
		Build()

	gpuCmd := newRing(t, 4096)
	gpuReplies := newRing(t, 4096)
	gpuEp := endpoint.NewBuilder().
		WithCmdLossless(gpuCmd).
		WithReplies(gpuReplies).
		Build()

	audioCmd := newRing(t, 4096)
	audioReplies := newRing(t, 4096)
	audioEp := endpoint.NewBuilder().
		WithCmdLossless(audioCmd).
		WithReplies(audioReplies).
		Build()

	fsLossless := newRing(t, 4096)
	fsMailbox := mailbox.New(4096)
	fsReplies := newRing(t, 4096)
	fsEp := endpoint.NewBuilder().
		WithCmdLossless(fsLossless).
		WithCmdMailbox(fsMailbox).
		WithReplies(fsReplies).
		Build()

	sched := scheduler.New(zerolog.Nop(), map[world.ServiceTarget]*endpoint.Endpoint{
		world.Kernel: kernelEp,
		world.Gpu:    gpuEp,
		world.Audio:  audioEp,
		world.Fs:     fsEp,
	})

	return &fixture{
		sched:          sched,
		kernelLossless: kernelLossless,
		kernel:         services.NewKernelEngine(kernelLossless, kernelBestEffort, kernelReplies, frames),
		gpu:            services.NewGpuEngine(gpuCmd, gpuReplies, frames),
		audio:          services.NewAudioEngine(audioCmd, audioReplies),
	}
}

// pollServices runs every mock service engine's Poll loop until none of
// them make further progress, simulating the worker island advancing
// between scheduler ticks.
func (f *fixture) pollServices() {
	for {
		n := f.kernel.Poll() + f.gpu.Poll() + f.audio.Poll()
		if n == 0 {
			return
		}
	}
}

func TestLoadRomThenPumpFrameDeliversDisplayFrameToGpu(t *testing.T) {
	f := newFixture(t)

	f.sched.EnqueueIntent(0, world.Intent{Kind: world.LoadRom, Group: 1, Bytes: []byte{0xDE, 0xAD}})
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (LoadRom): unexpected fatal")
	}
	f.pollServices()
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (drain RomLoaded): unexpected fatal")
	}
	if !f.sched.World().RomLoaded {
		t.Fatalf("World.RomLoaded: want true after a LoadRom round trip")
	}

	f.sched.EnqueueIntent(0, world.Intent{Kind: world.PumpFrame})
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (PumpFrame): unexpected fatal")
	}
	f.pollServices()
	// Drains the kernel's LaneFrame/TickDone replies and, via
	// ReduceReport's immediate-AV follow-up, submits Gpu.UploadFrame in
	// the same tick.
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (drain kernel replies, submit Gpu upload): unexpected fatal")
	}
	f.pollServices()
	// Drains the Gpu engine's FrameShown reply.
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (drain gpu reply): unexpected fatal")
	}

	if f.sched.World().FrameID == 0 {
		t.Fatalf("World.FrameID: want nonzero after a display pump round trip")
	}
}

func TestTickDoneWithAutoPumpKeepsAdvancingFrameIDAcrossTicks(t *testing.T) {
	f := newFixture(t)

	f.sched.EnqueueIntent(1, world.Intent{Kind: world.PumpFrame})
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (PumpFrame): unexpected fatal")
	}
	f.pollServices()
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (drain TickDone, deferred PumpFrame enqueued): unexpected fatal")
	}

	frameIDAfterFirstDrain := f.sched.World().FrameID

	// AutoPump's deferred PumpFrame intent should now be sitting in the
	// queue; running another tick should pop and reduce it into a second
	// KernelTick, advancing the frame count again once services poll.
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (deferred PumpFrame): unexpected fatal")
	}
	f.pollServices()
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (drain second round): unexpected fatal")
	}

	if f.sched.World().FrameID <= frameIDAfterFirstDrain {
		t.Fatalf("FrameID: got %d, want > %d after the auto-pumped second tick",
			f.sched.World().FrameID, frameIDAfterFirstDrain)
	}
}

func TestWouldBlockOnMustRequeuesAtP0HeadAndResolvesOnNextTick(t *testing.T) {
	f := newFixture(t)

	// Fill the kernel's lossless ring directly so the next Must submit
	// (PumpFrame -> KernelTick) finds it full and WouldBlocks.
	for {
		g, err := f.kernelLossless.TryProduce(0x01, 1, 0, 0)
		if err != nil {
			break
		}
		g.Commit()
	}

	f.sched.EnqueueIntent(0, world.Intent{Kind: world.PumpFrame})
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick: unexpected fatal")
	}
	if f.sched.World().FrameID != 0 {
		t.Fatalf("FrameID: want 0, the Tick command should have WouldBlocked and requeued rather than landed")
	}

	// Drain the kernel's full ring by letting the engine consume the
	// padding records, then the requeued intent should succeed on the
	// very next tick.
	f.pollServices()
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (requeued intent retried): unexpected fatal")
	}
	f.pollServices()
	if _, fatal := f.sched.RunTick(0); fatal {
		t.Fatalf("RunTick (drain replies): unexpected fatal")
	}

	if f.sched.World().FrameID == 0 {
		t.Fatalf("FrameID: want nonzero once the requeued PumpFrame finally lands")
	}
}

func TestClosedEndpointLatchesFatalHealth(t *testing.T) {
	frames := newPool(t, 4)
	kernelLossless := newRing(t, 4096)
	kernelBestEffort := newRing(t, 4096)
	kernelReplies := newRing(t, 4096)
	kernelEp := endpoint.NewBuilder().
		WithCmdLossless(kernelLossless).
		WithCmdBestEffort(kernelBestEffort).
		WithReplies(kernelReplies).
		WithPool(frames).
		Build()
	kernelEp.Close()

	sched := scheduler.New(zerolog.Nop(), map[world.ServiceTarget]*endpoint.Endpoint{
		world.Kernel: kernelEp,
	})
	sched.EnqueueIntent(0, world.Intent{Kind: world.PumpFrame})

	_, fatal := sched.RunTick(0)
	if !fatal {
		t.Fatalf("RunTick: want fatal=true after submitting to a closed endpoint")
	}
	if !sched.Health().Flags.Fatal {
		t.Fatalf("Health.Flags.Fatal: want true")
	}

	// Once latched, RunTick must halt immediately without popping more
	// intents.
	sched.EnqueueIntent(0, world.Intent{Kind: world.TogglePause})
	processed, fatal := sched.RunTick(0)
	if !fatal || processed != 0 {
		t.Fatalf("RunTick after latch: got (processed=%d, fatal=%v), want (0, true)", processed, fatal)
	}
}
