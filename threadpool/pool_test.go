/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package threadpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewGuardedPoolRejectsBadSize(t *testing.T) {
	if _, err := NewGuardedPool(0, nil); err != ErrPoolSize {
		t.Fatalf("NewGuardedPool(0) = %v, want ErrPoolSize", err)
	}
}

func TestNewStealingPoolRejectsBadSize(t *testing.T) {
	if _, err := NewStealingPool(-1); err != ErrPoolSize {
		t.Fatalf("NewStealingPool(-1) = %v, want ErrPoolSize", err)
	}
}

func runsAllTasks(t *testing.T, pool Pool) {
	t.Helper()
	const n = 200
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		if err := pool.Spawn(func() {
			count.Add(1)
			wg.Done()
		}); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for all tasks to run")
	}
	if got := count.Load(); got != n {
		t.Fatalf("ran %d tasks, want %d", got, n)
	}
}

func TestGuardedPoolRunsAllSpawnedTasks(t *testing.T) {
	p, err := NewGuardedPool(4, nil)
	if err != nil {
		t.Fatalf("NewGuardedPool: %v", err)
	}
	defer p.Close()
	runsAllTasks(t, p)
}

func TestStealingPoolRunsAllSpawnedTasks(t *testing.T) {
	p, err := NewStealingPool(4)
	if err != nil {
		t.Fatalf("NewStealingPool: %v", err)
	}
	defer p.Close()
	runsAllTasks(t, p)
}

func TestGuardedPoolIsolatesPanickingTasks(t *testing.T) {
	p, err := NewGuardedPool(2, nil)
	if err != nil {
		t.Fatalf("NewGuardedPool: %v", err)
	}
	defer p.Close()

	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(2)

	if err := p.Spawn(func() {
		defer wg.Done()
		panic("boom")
	}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := p.Spawn(func() {
		defer wg.Done()
		ran.Store(true)
	}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out: a panicking task likely took down a worker")
	}
	if !ran.Load() {
		t.Fatal("second task never ran after the first panicked")
	}
}

func TestPoolCloseDrainsQueuedWork(t *testing.T) {
	p, err := NewGuardedPool(1, nil)
	if err != nil {
		t.Fatalf("NewGuardedPool: %v", err)
	}
	var ran atomic.Bool
	if err := p.Spawn(func() { ran.Store(true) }); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	p.Close()
	if !ran.Load() {
		t.Fatal("Close returned before the queued task ran")
	}
}
