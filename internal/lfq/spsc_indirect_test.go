// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"errors"
	"sync"
	"testing"

	"code.hybscloud.com/fabric/internal/lfq"
)

func TestSPSCIndirectBasic(t *testing.T) {
	q := lfq.NewSPSCIndirect(3)

	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}

	for i := range 4 {
		if err := q.Enqueue(uintptr(i + 100)); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	if err := q.Enqueue(999); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}

	for i := range 4 {
		val, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if val != uintptr(i+100) {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, val, i+100)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestSPSCIndirectSlotLaneHandoff exercises the exact use this queue is
// wired for: a fixed pool of slot indices cycling between a free lane and
// a ready lane, producer and consumer on separate goroutines.
func TestSPSCIndirectSlotLaneHandoff(t *testing.T) {
	const slots = 16
	free := lfq.NewSPSCIndirect(slots)
	ready := lfq.NewSPSCIndirect(slots)

	for i := range uintptr(slots) {
		if err := free.Enqueue(i); err != nil {
			t.Fatalf("seed free lane: %v", err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)

	const rounds = 10000
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			var idx uintptr
			var err error
			for {
				idx, err = free.Dequeue()
				if err == nil {
					break
				}
			}
			for ready.Enqueue(idx) != nil {
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			var idx uintptr
			var err error
			for {
				idx, err = ready.Dequeue()
				if err == nil {
					break
				}
			}
			for free.Enqueue(idx) != nil {
			}
		}
	}()

	wg.Wait()

	seen := make(map[uintptr]bool)
	for i := 0; i < slots; i++ {
		idx, err := free.Dequeue()
		if err != nil {
			t.Fatalf("drain free lane at %d: %v", i, err)
		}
		if seen[idx] {
			t.Fatalf("slot index %d handed out twice", idx)
		}
		seen[idx] = true
	}
}

func TestSPSCIndirectZeroIsValidValue(t *testing.T) {
	q := lfq.NewSPSCIndirect(4)

	for range 4 {
		if err := q.Enqueue(0); err != nil {
			t.Fatalf("Enqueue(0): %v", err)
		}
	}

	val, err := q.Dequeue()
	if err != nil || val != 0 {
		t.Fatalf("Dequeue: got (%d, %v), want (0, nil)", val, err)
	}
}
