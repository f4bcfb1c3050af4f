package services

import (
	"path"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/fabric/internal/lfq"
	"code.hybscloud.com/fabric/mailbox"
	"code.hybscloud.com/fabric/msgring"
	"code.hybscloud.com/fabric/world"
)

// ManualSaveName is the filename fs/src/lib.rs singles out for
// Lossless delivery; every other Persist path is routed Coalesce.
const ManualSaveName = "manual-save"

// FsPolicyFor ports fs/src/lib.rs's try_submit routing rule: a
// manual-save persists losslessly, everything else coalesces (a
// follow-up autosave supersedes one still in flight).
func FsPolicyFor(filePath string) world.Policy {
	if path.Base(filePath) == ManualSaveName {
		return world.Lossless
	}
	return world.Coalesce
}

// fsJob is one unit of work handed to the Fs worker pool.
type fsJob struct {
	path  string
	bytes []byte
}

// fsResult is one completed job handed back from the worker pool.
type fsResult struct {
	path string
	ok   bool
}

// fsWorkerPoolSize is the number of goroutines draining the job queue
// in parallel, per SPEC_FULL §4.12's requirement that Fs dispatch
// writes across a worker pool rather than persist inline on the poll
// path.
const fsWorkerPoolSize = 4

// FsEngine is the mock Fs service's worker-island half. It drains
// Persist commands off its Lossless/Coalesce ports, fans each one out
// to a small goroutine pool via an SPMC job queue (this engine is the
// pool's single producer), and collects completions back through an
// MPSC result queue (the pool's workers are its many producers) before
// reporting them on its reply ring.
type FsEngine struct {
	cmdLossless *msgring.Ring
	cmdMailbox  *mailbox.Mailbox
	replies     *msgring.Ring

	cmdCodec fsCmdCodec
	repCodec fsRepCodec

	jobs    *lfq.SPMC[fsJob]
	results *lfq.MPSC[fsResult]

	persist func(path string, bytes []byte) bool

	stop    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewFsEngine wires an engine to the worker-side halves of its
// endpoint's Lossless ring and Coalesce mailbox, plus its reply ring.
// persist performs the actual write; pass nil to use a no-op that
// always succeeds (suitable for tests and for the mock's default
// always-ok behavior).
func NewFsEngine(cmdLossless *msgring.Ring, cmdMailbox *mailbox.Mailbox, replies *msgring.Ring, persist func(path string, bytes []byte) bool) *FsEngine {
	if persist == nil {
		persist = func(string, []byte) bool { return true }
	}
	e := &FsEngine{
		cmdLossless: cmdLossless,
		cmdMailbox:  cmdMailbox,
		replies:     replies,
		jobs:        lfq.NewSPMC[fsJob](64),
		results:     lfq.NewMPSC[fsResult](64),
		persist:     persist,
		stop:        make(chan struct{}),
	}
	e.running.Store(true)
	for i := 0; i < fsWorkerPoolSize; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

func (e *FsEngine) worker() {
	defer e.wg.Done()
	for e.running.Load() {
		job, err := e.jobs.Dequeue()
		if err != nil {
			select {
			case <-e.stop:
				return
			default:
				continue
			}
		}
		ok := e.persist(job.path, job.bytes)
		_ = e.results.Enqueue(&fsResult{path: job.path, ok: ok})
	}
}

// Stop signals every pool worker to exit and blocks until they have.
func (e *FsEngine) Stop() {
	e.stopped.Do(func() {
		e.running.Store(false)
		close(e.stop)
	})
	e.wg.Wait()
}

func (e *FsEngine) Name() string { return "fs" }

// Poll drains one pending command (Lossless before Coalesce), dispatches
// it to the worker pool, then drains and reports every completion the
// pool has finished since the last poll.
func (e *FsEngine) Poll() int {
	work := 0

	if rec, err := e.cmdLossless.TryConsume(); err == nil {
		cmd, decErr := e.cmdCodec.Decode(rec.Envelope, rec.Payload())
		rec.Release()
		if decErr == nil {
			_ = e.jobs.Enqueue(&fsJob{path: cmd.Path, bytes: cmd.Bytes})
		}
		work++
	} else if env, payload, err := e.cmdMailbox.TryRecv(); err == nil {
		cmd, decErr := e.cmdCodec.Decode(env, payload)
		if decErr == nil {
			_ = e.jobs.Enqueue(&fsJob{path: cmd.Path, bytes: cmd.Bytes})
		}
		work++
	}

	for {
		res, err := e.results.Dequeue()
		if err != nil {
			break
		}
		e.emit(FsRep{Path: res.path, OK: res.ok})
		work++
	}
	return work
}

func (e *FsEngine) emit(rep FsRep) {
	if e.replies == nil {
		return
	}
	enc, err := e.repCodec.Encode(rep)
	if err != nil {
		return
	}
	g, err := e.replies.TryProduce(enc.Envelope.Tag, enc.Envelope.Version, enc.Envelope.Flags, len(enc.Payload))
	if err != nil {
		return
	}
	copy(g.Payload(), enc.Payload)
	g.Commit()
}
