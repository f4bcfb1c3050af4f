package scenarios

import "fmt"

// CheckResult is a scenario verification's pass/fail verdict.
type CheckResult struct {
	OK      bool
	Message string
}

func ok() CheckResult { return CheckResult{OK: true} }

func fail(format string, args ...any) CheckResult {
	return CheckResult{Message: fmt.Sprintf(format, args...)}
}

// DrainReport totals what a consumer observed draining the ring a Flood or
// Burst run fed: how many records it read versus how many the producer
// reported dropping (BestEffort submits that found the ring full).
type DrainReport struct {
	Accepted uint32
	Dropped  uint32
}

// VerifyFlood checks the accepted+dropped no-double-counting invariant:
// every one of frameCount produced frames is accounted for exactly once,
// either as accepted or as dropped.
func VerifyFlood(frameCount uint32, report DrainReport) CheckResult {
	total := report.Accepted + report.Dropped
	if total != frameCount {
		return fail("flood: accepted(%d)+dropped(%d) = %d, want %d", report.Accepted, report.Dropped, total, frameCount)
	}
	return ok()
}

// VerifyBurst checks the same invariant across bursts*burstSize frames.
func VerifyBurst(bursts, burstSize uint32, report DrainReport) CheckResult {
	return VerifyFlood(bursts*burstSize, report)
}

// VerifyBackpressure checks that a Backpressure run both produced every
// frame it attempted and actually observed the ready lane pushing back at
// least once — a Backpressure run that never blocks didn't load the fabric
// hard enough to exercise what it's named for.
func VerifyBackpressure(frames uint32, stats ScenarioStats) CheckResult {
	if stats.Produced != frames {
		return fail("backpressure: produced %d, want %d", stats.Produced, frames)
	}
	if stats.WouldBlockReady == 0 && stats.FreeWaits == 0 {
		return fail("backpressure: no WouldBlock observed on %d frames; scenario did not load the fabric", frames)
	}
	return ok()
}
