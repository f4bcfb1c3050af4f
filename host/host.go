// Package host implements the domain-stack addition SPEC_FULL §4.6 calls
// for: a Supervisor running each worker island's worker.Runtime on its own
// goroutine under golang.org/x/sync/errgroup, in the style the example
// pack's workerpool.Pool supervises its processor/writer goroutines.
package host

import (
	"context"
	"time"

	"code.hybscloud.com/fabric/worker"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Island names one worker.Runtime to supervise and the cadence to poll it
// at.
type Island struct {
	Name     string
	Runtime  *worker.Runtime
	Interval time.Duration
}

// Supervisor runs a fixed set of worker islands concurrently. A panicking
// or erroring island is logged and propagated; per SPEC_FULL §4.6 this
// explicitly does NOT restart the failed island — the supervisor instead
// cancels every other island's context so scheduling halts cleanly rather
// than leaving a counterpart island polling a dead one's ports forever.
type Supervisor struct {
	islands []Island
	log     zerolog.Logger
}

// NewSupervisor creates a Supervisor that logs through log.
func NewSupervisor(log zerolog.Logger, islands ...Island) *Supervisor {
	return &Supervisor{islands: islands, log: log}
}

// Run blocks until ctx is cancelled or any island's poll loop returns an
// error (including a recovered panic, promoted to an error so one bad
// island can't take the whole process down silently). It returns the
// first such error, or nil if ctx was cancelled cleanly.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, isl := range s.islands {
		isl := isl
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Str("island", isl.Name).Interface("panic", r).Msg("worker island panicked")
					err = &PanicError{Island: isl.Name, Value: r}
				}
			}()
			return s.runIsland(gctx, isl)
		})
	}

	err := g.Wait()
	if err != nil {
		s.log.Error().Err(err).Msg("supervisor stopping: an island failed")
	}
	return err
}

func (s *Supervisor) runIsland(ctx context.Context, isl Island) error {
	interval := isl.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Str("island", isl.Name).Msg("worker island started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Str("island", isl.Name).Msg("worker island stopped")
			return nil
		case <-ticker.C:
			isl.Runtime.RunTick()
		}
	}
}

// PanicError wraps a recovered panic value from a worker island's poll
// loop so it propagates through errgroup like any other error.
type PanicError struct {
	Island string
	Value  interface{}
}

func (e *PanicError) Error() string {
	return "host: worker island " + e.Island + " panicked"
}
