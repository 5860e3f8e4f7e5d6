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
package engine

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/jtolds/gls"
)

// readerPoolMgr propagates a stable worker identity down the goroutine's
// call stack, the same gls idiom memcp's own context propagation uses
// (see scm.NewContext). It is the Go analogue of "thread-local storage":
// a worker goroutine tags itself once for its whole lifetime, and every
// read it performs -- however deep in the call stack -- finds its own
// reader cache without any lock shared across workers.
var readerPoolMgr = gls.NewContextManager()

const workerIDKey = "kvd.reader_pool.worker_id"

// WithWorkerContext tags the calling goroutine with id for the duration
// of fn. Thread-pool implementations call this once around a worker's
// entire run loop (not per task), so a worker's reader cache persists
// across the many tasks it services.
func WithWorkerContext(id string, fn func()) {
	readerPoolMgr.SetValues(gls.Values{workerIDKey: id}, fn)
}

func currentWorkerID() string {
	if v, ok := readerPoolMgr.GetValue(workerIDKey); ok {
		return v.(string)
	}
	return "default"
}

type fidHandle struct {
	f *os.File
}

type workerCache struct {
	mu      sync.Mutex
	handles map[uint64]*fidHandle
}

// ReaderPool implements C5: one open-handle cache per worker, pruned
// against a shared safe_point before every read. The only cross-worker
// communication on the hot read path is the atomic load of safePoint.
type ReaderPool struct {
	backend   PersistenceBackend
	safePoint *atomic.Uint64

	mu       sync.Mutex
	byWorker map[string]*workerCache
}

func newReaderPool(backend PersistenceBackend, safePoint *atomic.Uint64) *ReaderPool {
	return &ReaderPool{
		backend:   backend,
		safePoint: safePoint,
		byWorker:  make(map[string]*workerCache),
	}
}

func (p *ReaderPool) cacheFor(id string) *workerCache {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.byWorker[id]
	if !ok {
		c = &workerCache{handles: make(map[uint64]*fidHandle)}
		p.byWorker[id] = c
	}
	return c
}

// Read seeks to pos within fid (opening and caching a handle for fid if
// this worker has not already got one) and hands a bounded length-byte
// reader to decode. Any cached handle whose fid is stale with respect to
// the current safe_point is closed first.
func (p *ReaderPool) Read(fid uint64, pos, length int64, decode func(io.Reader) error) error {
	cache := p.cacheFor(currentWorkerID())

	cache.mu.Lock()
	sp := p.safePoint.Load()
	for cfid, h := range cache.handles {
		if cfid < sp {
			h.f.Close()
			delete(cache.handles, cfid)
		}
	}
	h, ok := cache.handles[fid]
	if !ok {
		f, err := p.backend.OpenReader(fid)
		if err != nil {
			cache.mu.Unlock()
			return err
		}
		h = &fidHandle{f: f}
		cache.handles[fid] = h
	}
	f := h.f
	cache.mu.Unlock()

	// io.NewSectionReader uses ReaderAt (pread semantics), so concurrent
	// reads through the same cached *os.File from different goroutines
	// never race on a shared seek offset.
	return decode(newPosReader(f, pos, length))
}

// pruneBelowSafePoint closes every cached handle, in every worker's
// cache, whose fid is now stale. Called immediately after compaction
// publishes a new safe_point (spec §4.6 step 4); independent of the
// per-read lazy prune in Read, which would otherwise only catch up the
// next time each particular worker happens to read again.
func (p *ReaderPool) pruneBelowSafePoint() {
	sp := p.safePoint.Load()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.byWorker {
		c.mu.Lock()
		for fid, h := range c.handles {
			if fid < sp {
				h.f.Close()
				delete(c.handles, fid)
			}
		}
		c.mu.Unlock()
	}
}

// Close closes every handle cached by every worker. Used at engine close.
func (p *ReaderPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.byWorker {
		c.mu.Lock()
		for fid, h := range c.handles {
			h.f.Close()
			delete(c.handles, fid)
		}
		c.mu.Unlock()
	}
}
