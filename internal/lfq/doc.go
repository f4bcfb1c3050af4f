// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfq provides the lock-free bounded queues used internally by the
// transport fabric's same-process collaborators: slot-pool lane hand-off,
// worker-pool dispatch, and the scenario harness's stats sink.
//
// Four algorithms are carried, each wired to exactly one fabric component:
//
//	SPSCIndirect  slot pool free/ready lanes (slotpool package)
//	SPMC          single dispatcher -> many worker goroutines (services/fs.go)
//	MPSC          many goroutines -> single completion drain (services/fs.go)
//	MPMC          many producers -> many consumers (scenarios stats sink)
//
// All four are non-blocking: Enqueue/Dequeue return ErrWouldBlock rather
// than blocking, so callers decide how to back off (the fabric's own
// msgring and slotpool packages use [code.hybscloud.com/spin] the same way).
//
// These queues never cross the SharedRegion boundary — they coordinate
// goroutines within a single process, never separate execution contexts.
// Index/byte-offset hand-off across that boundary is the job of
// region, msgring, mailbox, and slotpool instead.
package lfq
