// Command fabricd boots one transport fabric in-process: it builds a
// shared region, carves out the Kernel/Gpu/Audio/Fs endpoints, starts the
// mock service engines on worker-island goroutines supervised by
// host.Supervisor, runs the scheduler island's tick loop on the main
// goroutine, and serves a /metrics endpoint.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.hybscloud.com/fabric/fabric"
	"code.hybscloud.com/fabric/host"
	"code.hybscloud.com/fabric/metrics"
	"code.hybscloud.com/fabric/region"
	"code.hybscloud.com/fabric/scheduler"
	"code.hybscloud.com/fabric/services"
	"code.hybscloud.com/fabric/slotpool"
	"code.hybscloud.com/fabric/worker"
	"code.hybscloud.com/fabric/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	regionSize      = 32 * 1024 * 1024
	kernelFrameSlot = 8 + 160*144*4
	kernelFrames    = 8
	autoPumpGroup   = 0
)

func main() {
	var (
		metricsAddr = flag.String("metrics-addr", ":9090", "address to serve /metrics on")
		schedHz     = flag.Int("scheduler-hz", 240, "scheduler tick rate")
		serviceHz   = flag.Int("service-hz", 480, "worker island poll rate")
	)
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	reg, err := region.New(regionSize, 8)
	if err != nil {
		log.Fatal().Err(err).Msg("fabricd: region.New")
	}

	fb, err := fabric.Build(reg, []fabric.EndpointSpec{
		{
			Target:                world.Kernel,
			CmdLosslessCapacity:   1 << 20,
			CmdBestEffortCapacity: 1 << 16,
			RepliesCapacity:       1 << 20,
			Pools: []slotpool.Config{
				{SlotSize: kernelFrameSlot, SlotAlign: 8, Count: kernelFrames},
			},
		},
		{Target: world.Gpu, CmdLosslessCapacity: 1 << 16, RepliesCapacity: 1 << 16},
		{Target: world.Audio, CmdLosslessCapacity: 1 << 16, RepliesCapacity: 1 << 16},
		{
			Target:              world.Fs,
			CmdLosslessCapacity: 1 << 16,
			MailboxPayload:      1 << 16,
			RepliesCapacity:     1 << 16,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("fabricd: fabric.Build")
	}
	defer fb.Close()

	kernelPorts := fb.Ports(world.Kernel)
	gpuPorts := fb.Ports(world.Gpu)
	audioPorts := fb.Ports(world.Audio)
	fsPorts := fb.Ports(world.Fs)

	kernelEngine := services.NewKernelEngine(kernelPorts.CmdLossless, kernelPorts.CmdBestEffort, kernelPorts.Replies, kernelPorts.Pools[0])
	gpuEngine := services.NewGpuEngine(gpuPorts.CmdLossless, gpuPorts.Replies, kernelPorts.Pools[0])
	audioEngine := services.NewAudioEngine(audioPorts.CmdLossless, audioPorts.Replies)
	fsEngine := services.NewFsEngine(fsPorts.CmdLossless, fsPorts.CmdMailbox, fsPorts.Replies, nil)
	defer fsEngine.Stop()

	sched := scheduler.New(log.With().Str("island", "scheduler").Logger(), fb.Endpoints())
	sched.EnqueueIntent(0, world.Intent{Kind: world.LoadRom, Group: autoPumpGroup})
	sched.EnqueueIntent(1, world.Intent{Kind: world.PumpFrame})

	metricsReg := prometheus.NewRegistry()
	healthGauges := metrics.NewHealthGauges(metricsReg)

	sup := host.NewSupervisor(log,
		host.Island{Name: "kernel", Runtime: worker.New(kernelEngine), Interval: time.Second / time.Duration(*serviceHz)},
		host.Island{Name: "gpu", Runtime: worker.New(gpuEngine), Interval: time.Second / time.Duration(*serviceHz)},
		host.Island{Name: "audio", Runtime: worker.New(audioEngine), Interval: time.Second / time.Duration(*serviceHz)},
		host.Island{Name: "fs", Runtime: worker.New(fsEngine), Interval: time.Second / time.Duration(*serviceHz)},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", *metricsAddr).Msg("fabricd: serving /metrics")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("fabricd: metrics server stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run(ctx) }()

	ticker := time.NewTicker(time.Second / time.Duration(*schedHz))
	defer ticker.Stop()

schedLoop:
	for {
		select {
		case <-ctx.Done():
			break schedLoop
		case err := <-errCh:
			if err != nil {
				log.Error().Err(err).Msg("fabricd: worker island supervisor failed")
			}
			break schedLoop
		case <-ticker.C:
			_, fatal := sched.RunTick(0)
			healthGauges.Observe(sched.Health())
			if fatal {
				log.Error().Msg("fabricd: scheduler latched fatal, stopping")
				break schedLoop
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	log.Info().Msg("fabricd: stopped")
}
