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
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/launix-de/kvd/engine"
)

// deque is a simple mutex-guarded double-ended queue: the owning worker
// pushes and pops from the tail (LIFO, good cache locality for its own
// work); other workers steal from the head (FIFO, so a steal takes the
// oldest queued task rather than racing the owner for the freshest one).
type deque struct {
	mu    sync.Mutex
	tasks []Task
}

func (d *deque) pushBack(t Task) {
	d.mu.Lock()
	d.tasks = append(d.tasks, t)
	d.mu.Unlock()
}

func (d *deque) popBack() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.tasks)
	if n == 0 {
		return nil, false
	}
	t := d.tasks[n-1]
	d.tasks = d.tasks[:n-1]
	return t, true
}

func (d *deque) stealFront() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil, false
	}
	t := d.tasks[0]
	d.tasks = d.tasks[1:]
	return t, true
}

// StealingPool is Variant B: no per-task panic isolation, no extra
// synchronization beyond each worker's own deque -- it trades the
// resilience of GuardedPool for lower per-task overhead, a thin
// scheduler in the spirit of the spec's "wrap a pre-existing
// work-stealing scheduler" (the pack retrieved for this project carries
// no ready-made Go work-stealing library the way the reference
// implementation's rayon wrapper does, so this is a from-scratch, but
// deliberately minimal, stand-in -- see DESIGN.md).
type StealingPool struct {
	queues  []*deque
	wake    chan struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup
	next    atomic.Uint64
	backlog atomic.Int64
}

func NewStealingPool(n int) (*StealingPool, error) {
	if n <= 0 {
		return nil, ErrPoolSize
	}
	p := &StealingPool{
		queues: make([]*deque, n),
		wake:   make(chan struct{}, n),
	}
	for i := range p.queues {
		p.queues[i] = &deque{}
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.runWorker(i)
	}
	return p, nil
}

func (p *StealingPool) runWorker(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	workerID := fmt.Sprintf("stealing-worker-%d", id)
	engine.WithWorkerContext(workerID, func() {
		for {
			if t, ok := own.popBack(); ok {
				p.backlog.Add(-1)
				t()
				continue
			}
			if t, ok := p.steal(id); ok {
				p.backlog.Add(-1)
				t()
				continue
			}
			if p.closed.Load() && p.backlog.Load() <= 0 {
				return
			}
			<-p.wake
		}
	})
}

func (p *StealingPool) steal(skip int) (Task, bool) {
	n := len(p.queues)
	start := rand.Intn(n)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if idx == skip {
			continue
		}
		if t, ok := p.queues[idx].stealFront(); ok {
			return t, true
		}
	}
	return nil, false
}

// Spawn pushes onto a round-robin-chosen worker's own deque.
func (p *StealingPool) Spawn(task Task) error {
	idx := int(p.next.Add(1)) % len(p.queues)
	p.backlog.Add(1)
	p.queues[idx].pushBack(task)
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

func (p *StealingPool) Close() {
	p.closed.Store(true)
	for range p.queues {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	p.wg.Wait()
}
