// Package metrics exposes the transport fabric's in-process health state
// as Prometheus gauges, purely for external observability — the scheduler
// never reads these back, per spec §5's "world/health state stays
// scheduler-local".
package metrics

import (
	"code.hybscloud.com/fabric/health"
	"github.com/prometheus/client_golang/prometheus"
)

// HealthGauges mirrors a health.Health snapshot into three Prometheus
// gauges, updated once per scheduler tick.
type HealthGauges struct {
	gpuBlocked      prometheus.Gauge
	stallRelief     prometheus.Gauge
	servicePressure prometheus.Gauge
}

// NewHealthGauges creates the gauge set and registers it with reg. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() in tests to avoid collisions across runs.
func NewHealthGauges(reg prometheus.Registerer) *HealthGauges {
	g := &HealthGauges{
		gpuBlocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fabric_gpu_blocked",
			Help: "1 if the GPU backend is currently latched as blocked, else 0.",
		}),
		stallRelief: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fabric_stall_relief_frames",
			Help: "Remaining frames in the current GPU stall-relief window.",
		}),
		servicePressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fabric_service_pressure",
			Help: "1 if an ancillary service is reporting sustained backpressure, else 0.",
		}),
	}
	reg.MustRegister(g.gpuBlocked, g.stallRelief, g.servicePressure)
	return g
}

// Observe updates every gauge from h's current state. Called once per
// scheduler tick after health.ClearOnSuccess/BeginStallRelief/DecayOneFrame
// have been applied for that tick.
func (g *HealthGauges) Observe(h health.Health) {
	g.gpuBlocked.Set(boolToFloat(h.Flags.GPUBlocked))
	g.stallRelief.Set(float64(h.StallReliefFrames))
	g.servicePressure.Set(boolToFloat(h.Flags.ServicePressure))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
