package scenarios

// Engine drives a FabricHandle through one of the stress patterns named by
// a TestConfig's Kind, recording what happened into a StatsSink.
type Engine struct {
	handle FabricHandle
	sink   *StatsSink
}

// NewEngine creates an Engine driving handle and recording into sink.
func NewEngine(handle FabricHandle, sink *StatsSink) *Engine {
	return &Engine{handle: handle, sink: sink}
}

// Run drives cfg's scenario to completion and returns the stats this run
// alone contributed (also recorded into the Engine's sink for callers
// running several drivers concurrently against one shared sink).
func (e *Engine) Run(cfg TestConfig) ScenarioStats {
	switch cfg.Kind {
	case Flood:
		return e.runFrames(cfg.Param1, true)
	case Burst:
		var total ScenarioStats
		for b := uint32(0); b < cfg.Param1; b++ {
			total.Add(e.runFrames(cfg.Param2, true))
		}
		return total
	case Backpressure:
		return e.runFrames(cfg.Param1, false)
	default:
		return ScenarioStats{}
	}
}

// runFrames drives n frames through the handle. When wait is true, a
// WouldBlock on push-ready or push-event parks once via the handle's wait
// method and retries once; when false (the deliberately-overloading
// Backpressure pattern), a WouldBlock is counted and that push is not
// retried, and the frame still counts as Produced. In both modes a frame
// that finds no free slot (after the one wait, when wait is true) is
// skipped and not counted as Produced.
func (e *Engine) runFrames(n uint32, wait bool) ScenarioStats {
	var delta ScenarioStats
	for i := uint32(0); i < n; i++ {
		slotIdx, ok := e.handle.AcquireFreeSlot()
		if !ok {
			delta.FreeWaits++
			if wait {
				e.handle.WaitForFreeSlot()
				slotIdx, ok = e.handle.AcquireFreeSlot()
			}
			if !ok {
				continue
			}
		}

		e.handle.WriteFrame(slotIdx, i)

		if e.handle.PushReady(slotIdx) == PushWouldBlock {
			delta.WouldBlockReady++
			if wait {
				e.handle.WaitForReadyDrain()
				e.handle.PushReady(slotIdx)
			}
		}

		if !e.handle.TryPushEvent(i, slotIdx) {
			delta.WouldBlockEvt++
			if wait {
				e.handle.WaitForEventSpace()
				e.handle.TryPushEvent(i, slotIdx)
			}
		}

		delta.Produced++
	}
	if e.sink != nil {
		e.sink.Record(delta)
	}
	return delta
}
