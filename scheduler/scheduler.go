// Package scheduler implements C9 of the transport fabric: the
// single-threaded tick loop that pops intents in priority order, reduces
// them through world.World's pure reducers, submits the resulting
// commands through each target service's endpoint, drains and reduces
// replies, and ticks the health controller — per spec §4.8's six-step
// contract.
package scheduler

import (
	"code.hybscloud.com/fabric/codec"
	"code.hybscloud.com/fabric/endpoint"
	"code.hybscloud.com/fabric/health"
	"code.hybscloud.com/fabric/priority"
	"code.hybscloud.com/fabric/services"
	"code.hybscloud.com/fabric/world"
	"github.com/rs/zerolog"
)

// reportBatch bounds how many pending records a single Endpoint.Drain call
// pulls per target per tick, matching spec §4.8's "drain reports (bounded)".
const reportBatch = 32

// Scheduler owns the scheduler island's world state, health controller,
// and intent queue, and submits through a fixed set of per-service
// endpoints.
type Scheduler struct {
	world     *world.World
	health    health.Health
	intents   *priority.PQueues[world.Intent]
	endpoints map[world.ServiceTarget]*endpoint.Endpoint
	log       zerolog.Logger
}

// New creates a Scheduler over endpoints, one per world.ServiceTarget the
// session wires up. Missing targets are tolerated: ReduceIntent/ReduceReport
// commands addressed to an unwired target are logged and dropped rather
// than panicking, since a given session may not need every service (e.g. a
// headless run with no Gpu/Audio).
func New(log zerolog.Logger, endpoints map[world.ServiceTarget]*endpoint.Endpoint) *Scheduler {
	return &Scheduler{
		world:     world.New(),
		intents:   priority.New[world.Intent](),
		endpoints: endpoints,
		log:       log,
	}
}

// World returns the scheduler's application state, for callers that need
// to inspect it (e.g. a UI layer polling FrameID/Inspector).
func (s *Scheduler) World() *world.World { return s.world }

// Health returns the scheduler's current health snapshot.
func (s *Scheduler) Health() health.Health { return s.health }

// EnqueueIntent enqueues intent at priority p (0=P0, 1=P1, 2=P2).
func (s *Scheduler) EnqueueIntent(p uint8, intent world.Intent) {
	s.intents.Enqueue(priority.Priority(p), intent)
}

// translatePolicy maps a world.Policy (the reducer's output) to the
// Policy TrySubmit expects, per DESIGN.md's scheduler and world entries:
// world stays a leaf package and never imports endpoint.
func translatePolicy(p world.Policy) endpoint.Policy {
	switch p {
	case world.Must:
		return endpoint.Must
	case world.Lossless:
		return endpoint.Lossless
	case world.BestEffort:
		return endpoint.BestEffort
	case world.Coalesce:
		return endpoint.Coalesce
	default:
		return endpoint.Lossless
	}
}

// RunTick processes up to maxIntents intents (0 means unbounded: run until
// the queue empties, a fatal condition latches, or a WouldBlock stalls the
// run), per spec §4.8's tick contract. Pending reports are drained after
// each intent and once more when the queue runs empty. It returns how many
// intents were popped and reduced (an intent requeued on WouldBlock, or one
// whose submit hit Closed, is counted too) and whether a fatal condition is
// now latched.
func (s *Scheduler) RunTick(maxIntents int) (processed int, fatal bool) {
	for maxIntents <= 0 || processed < maxIntents {
		if s.health.Flags.Fatal {
			return processed, true
		}

		intent, ok := s.intents.PopNext()
		if !ok {
			s.drainAndReduce()
			break
		}

		cmds := s.world.ReduceIntent(intent)
		stop := false
		gpuWouldBlock := false
		gpuMustOK := false

		for _, cmd := range cmds {
			outcome := s.submit(cmd)
			if cmd.Target == world.Gpu {
				switch {
				case outcome == endpoint.WouldBlock:
					gpuWouldBlock = true
				case outcome == endpoint.Accepted && translatePolicy(cmd.Policy) == endpoint.Must:
					gpuMustOK = true
				}
			}

			switch outcome {
			case endpoint.WouldBlock:
				policy := translatePolicy(cmd.Policy)
				if policy == endpoint.Must || policy == endpoint.Lossless {
					s.intents.EnqueueFrontP0(intent)
					stop = true
				}
			case endpoint.Closed:
				s.health.Flags.Fatal = true
				stop = true
			}
			if stop {
				break
			}
		}

		s.drainAndReduce()

		if gpuWouldBlock {
			s.health.BeginStallRelief(4)
		}
		if gpuMustOK {
			s.health.ClearOnSuccess()
		}

		processed++
		if stop || s.health.Flags.Fatal {
			break
		}
	}
	return processed, s.health.Flags.Fatal
}

// submit encodes cmd for its target service and submits it through that
// target's endpoint. A target with no wired endpoint, or a codec error,
// is logged and treated as Dropped — never fatal, since neither condition
// is a backpressure signal the scheduler needs to react to.
func (s *Scheduler) submit(cmd world.WorkCmd) endpoint.Outcome {
	ep, ok := s.endpoints[cmd.Target]
	if !ok {
		s.log.Warn().Stringer("target", cmd.Target).Msg("scheduler: no endpoint wired for target")
		return endpoint.Dropped
	}

	enc, err := encodeCmd(cmd)
	if err != nil {
		s.log.Warn().Err(err).Stringer("target", cmd.Target).Msg("scheduler: failed to encode command")
		return endpoint.Dropped
	}

	outcome, err := ep.TrySubmit(enc, translatePolicy(cmd.Policy))
	if err != nil {
		s.log.Warn().Err(err).Stringer("target", cmd.Target).Msg("scheduler: TrySubmit error")
	}
	return outcome
}

// encodeCmd dispatches to the per-service wire codec living in the
// services package.
func encodeCmd(cmd world.WorkCmd) (codec.Encoded, error) {
	switch cmd.Target {
	case world.Kernel:
		return services.EncodeKernelCmd(cmd.Kernel)
	case world.Gpu:
		return services.EncodeGpuCmd(cmd.Gpu)
	case world.Audio:
		return services.EncodeAudioCmd(cmd.Audio)
	case world.Fs:
		return services.EncodeFsCmd(cmd.Fs)
	default:
		return codec.Encoded{}, errUnknownTarget(cmd.Target)
	}
}

type errUnknownTarget world.ServiceTarget

func (e errUnknownTarget) Error() string {
	return "scheduler: unknown service target " + world.ServiceTarget(e).String()
}

// drainAndReduce drains every wired endpoint's reply ring (bounded per
// spec §4.8 step 4), decodes each record with its service's reply codec,
// reduces it through the world's pure report reducer, and applies the
// resulting follow-ups: immediate AV commands submit in the same tick,
// deferred intents enqueue for a later one.
func (s *Scheduler) drainAndReduce() {
	for target, ep := range s.endpoints {
		for _, rep := range ep.Drain(reportBatch) {
			report, ok := decodeReport(target, rep.Envelope, rep.Payload)
			if !ok {
				continue
			}
			follow := s.world.ReduceReport(report)
			for _, cmd := range follow.ImmediateAV {
				outcome := s.submit(cmd)
				if cmd.Target == world.Gpu {
					switch {
					case outcome == endpoint.WouldBlock:
						s.health.BeginStallRelief(4)
					case outcome == endpoint.Accepted && translatePolicy(cmd.Policy) == endpoint.Must:
						s.health.ClearOnSuccess()
					}
				}
			}
			for _, di := range follow.DeferredIntents {
				s.intents.Enqueue(priority.Priority(di.Priority), di.Intent)
			}
		}
	}
}

// decodeReport decodes a raw reply record into a world.Report. Gpu and Fs
// replies decode successfully but carry no payload in world.Report — per
// spec §4.8, "other GPU/FS reports are informational" and the report
// reducer takes no action on them beyond having observed them.
func decodeReport(target world.ServiceTarget, env codec.Envelope, payload []byte) (world.Report, bool) {
	switch target {
	case world.Kernel:
		rep, err := services.DecodeKernelRep(env, payload)
		if err != nil {
			return world.Report{}, false
		}
		return world.Report{Source: world.FromKernel, Kernel: rep}, true

	case world.Audio:
		rep, err := services.DecodeAudioRep(env, payload)
		if err != nil {
			return world.Report{}, false
		}
		return world.Report{Source: world.FromAudio, Audio: rep}, true

	case world.Gpu:
		if _, err := services.DecodeGpuRep(env, payload); err != nil {
			return world.Report{}, false
		}
		return world.Report{Source: world.FromGpu}, true

	case world.Fs:
		if _, err := services.DecodeFsRep(env, payload); err != nil {
			return world.Report{}, false
		}
		return world.Report{Source: world.FromFs}, true

	default:
		return world.Report{}, false
	}
}
