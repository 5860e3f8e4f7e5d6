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
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/launix-de/kvd/engine"
)

// GuardedPool is Variant A: n long-lived workers sharing one job channel
// (a shared receiver behind a channel plays the role of the spec's
// "mutex-guarded shared receiver"), each running its jobs under a panic
// guard. A panicking task is logged and its worker keeps going -- it
// never shrinks the effective pool size, the same contract
// scm.Scheduler.runTask upholds for scheduled callbacks via recover().
type GuardedPool struct {
	jobs   chan Task
	wg     sync.WaitGroup
	logger *log.Logger
}

// NewGuardedPool starts n workers, each tagged with a stable worker
// identity via engine.WithWorkerContext so its reader-pool cache (C5)
// persists across every task routed to it.
func NewGuardedPool(n int, logger *log.Logger) (*GuardedPool, error) {
	if n <= 0 {
		return nil, ErrPoolSize
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &GuardedPool{jobs: make(chan Task), logger: logger}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.runWorker(i)
	}
	return p, nil
}

func (p *GuardedPool) runWorker(id int) {
	defer p.wg.Done()
	workerID := fmt.Sprintf("guarded-worker-%d", id)
	engine.WithWorkerContext(workerID, func() {
		for job := range p.jobs {
			p.runJob(job)
		}
	})
}

func (p *GuardedPool) runJob(job Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("pool: task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	job()
}

// Spawn blocks until a worker picks up the job; with no buffering this
// gives natural backpressure when every worker is busy.
func (p *GuardedPool) Spawn(job Task) error {
	p.jobs <- job
	return nil
}

// Close drops the sender (signaling end-of-stream) and joins every
// worker, draining whatever is still queued first.
func (p *GuardedPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
