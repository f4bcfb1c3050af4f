package world

// Speed clamp and display-tick-budget constants, ported from the
// original reducer's clamp_speed/display_cycle_budget helpers.
const (
	MinSpeed                    = 0.1
	MaxSpeed                    = 10.0
	BaseDisplayCyclesPerFrame   = 70224.0
	defaultDisplayGroup         = 0
)

// World is the scheduler-local application state. Never touched by
// workers — world and health state live exclusively on the scheduler
// island per §5.
type World struct {
	Paused      bool
	Speed       float32
	DisplayLane uint8
	AutoPump    bool

	RomLoaded bool
	RomEvents uint32
	FrameID   uint32

	AudioUnderruns uint32
	AudioPlayed    uint64

	Inspector DebugReport
}

// New creates a World with speed at its neutral default (1.0, within the
// clamp range) and auto-pump enabled, matching the mock kernel's default
// pump-on-tick-done loop.
func New() *World {
	return &World{Speed: 1.0, AutoPump: true}
}

// clampSpeed mirrors the original's f32::clamp(MIN_SPEED, MAX_SPEED).
func clampSpeed(speed float32) float32 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// displayCycleBudget mirrors the original's round(BASE * speed).
func displayCycleBudget(speed float32) uint32 {
	return uint32(speed*BaseDisplayCyclesPerFrame + 0.5)
}

// IntentReducer reduces an Intent into zero or more WorkCmds, pure aside
// from mutating World's own fields.
type IntentReducer interface {
	ReduceIntent(intent Intent) []WorkCmd
}

// ReduceIntent implements IntentReducer, per spec §4.8's reduction
// policies.
func (w *World) ReduceIntent(intent Intent) []WorkCmd {
	switch intent.Kind {
	case PumpFrame:
		return []WorkCmd{{
			Target: Kernel,
			Policy: Must,
			Kernel: KernelCmd{
				Kind:    KernelTick,
				Group:   defaultDisplayGroup,
				Purpose: Display,
				Budget:  displayCycleBudget(w.Speed),
			},
		}}

	case LoadRom:
		return []WorkCmd{{
			Target: Kernel,
			Policy: Lossless,
			Kernel: KernelCmd{Kind: KernelLoadRom, Group: intent.Group, Bytes: intent.Bytes},
		}}

	case TogglePause:
		w.Paused = !w.Paused
		return nil

	case SetSpeed:
		w.Speed = clampSpeed(intent.Speed)
		return nil

	case SelectDisplayLane:
		w.DisplayLane = intent.Lane
		return nil

	case DebugSnapshot:
		return []WorkCmd{{
			Target: Kernel,
			Policy: BestEffort,
			Kernel: KernelCmd{Kind: KernelDebugSnapshot, Group: intent.Group},
		}}

	case DebugMem:
		return []WorkCmd{{
			Target: Kernel,
			Policy: BestEffort,
			Kernel: KernelCmd{Kind: KernelDebugMem, Group: intent.Group, Space: intent.Space, Base: intent.Base, Len: intent.Len},
		}}

	case DebugStepInstruction:
		return []WorkCmd{{
			Target: Kernel,
			Policy: Lossless,
			Kernel: KernelCmd{Kind: KernelDebugStepInstruction, Group: intent.Group, StepN: intent.StepN},
		}}

	case DebugStepFrame:
		return []WorkCmd{{
			Target: Kernel,
			Policy: Lossless,
			Kernel: KernelCmd{Kind: KernelDebugStepFrame, Group: intent.Group},
		}}

	default:
		return nil
	}
}

// ReportReducer reduces a Report into state mutations plus follow-up
// work.
type ReportReducer interface {
	ReduceReport(report Report) FollowUps
}

// ReduceReport implements ReportReducer, per spec §4.8's reduction
// policies.
func (w *World) ReduceReport(report Report) FollowUps {
	var out FollowUps

	switch report.Source {
	case FromKernel:
		switch report.Kernel.Kind {
		case LaneFrame:
			if report.Kernel.Lane == w.DisplayLane {
				out.PushImmediateAV(WorkCmd{
					Target: Gpu,
					Policy: Must,
					Gpu:    GpuCmd{Lane: report.Kernel.Lane, Span: report.Kernel.Span},
				})
			}
			if report.Kernel.FrameID > w.FrameID {
				w.FrameID = report.Kernel.FrameID
			}

		case TickDone:
			if w.AutoPump {
				out.PushDeferredIntent(1, Intent{Kind: PumpFrame})
			}

		case RomLoaded:
			w.RomLoaded = true
			if w.RomEvents < ^uint32(0) {
				w.RomEvents++
			}

		case DebugRep:
			w.Inspector = report.Kernel.Debug
		}

	case FromAudio:
		switch report.Audio.Kind {
		case Underrun:
			if w.AudioUnderruns < ^uint32(0) {
				w.AudioUnderruns++
			}
		case Played:
			w.AudioPlayed += uint64(report.Audio.Frames)
		}

	case FromGpu, FromFs:
		// Informational only, per spec §4.8.
	}

	return out
}
