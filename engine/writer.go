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
	"log"
	"sync"
	"sync/atomic"
)

// DefaultCompactionThreshold is the reference value: 1 MiB of uncompacted
// bytes triggers a synchronous compaction inside the triggering write.
const DefaultCompactionThreshold int64 = 1 << 20

// writer is C6: the single active writer/compactor. Every mutating call
// acquires mu for its entire duration, which is what makes the writer
// side of the engine trivially serializable while the index stays free
// for concurrent reads.
type writer struct {
	mu sync.Mutex

	dir       string
	backend   PersistenceBackend
	archive   ArchiveTier
	index     *Index
	safePoint *atomic.Uint64
	threshold int64
	log       *log.Logger
	// clones registers every Engine clone's independent ReaderPool so
	// compaction can prune their stale handles immediately after
	// publishing a new safe_point, instead of waiting for their next read.
	clones   []*ReaderPool
	clonesMu sync.Mutex

	activeFid    uint64
	activeWriter *posWriter

	uncompacted    int64
	compactionsRun uint64
}

// openWriter rebuilds the index by replaying every existing generation
// (there is no index snapshot file -- P2 depends on this happening
// correctly at every open) and opens a fresh active file.
func openWriter(dir string, backend PersistenceBackend, archive ArchiveTier, threshold int64, logger *log.Logger) (*writer, error) {
	idx := newIndex()
	fids, err := sortedFids(dir)
	if err != nil {
		return nil, err
	}

	var uncompacted int64
	for _, fid := range fids {
		u, err := replayInto(backend, idx, fid)
		if err != nil {
			return nil, err
		}
		uncompacted += u
	}

	activeFid := uint64(1)
	if len(fids) > 0 {
		activeFid = fids[len(fids)-1] + 1
	}
	aw, err := backend.OpenActive(activeFid)
	if err != nil {
		return nil, err
	}
	pw := newPosWriter(aw, 0)

	safePoint := new(atomic.Uint64)
	if len(fids) > 0 {
		safePoint.Store(fids[0])
	} else {
		safePoint.Store(activeFid)
	}

	w := &writer{
		dir:          dir,
		backend:      backend,
		archive:      archive,
		index:        idx,
		safePoint:    safePoint,
		threshold:    threshold,
		log:          logger,
		activeFid:    activeFid,
		activeWriter: pw,
		uncompacted:  uncompacted,
	}
	return w, nil
}

// registerReaderPool lets an Engine clone's independent reader pool
// participate in the immediate post-compaction prune of step 4, rather
// than only discovering the new safe_point lazily on its next read.
func (w *writer) registerReaderPool(p *ReaderPool) {
	w.clonesMu.Lock()
	defer w.clonesMu.Unlock()
	w.clones = append(w.clones, p)
}

// deregisterReaderPool removes p from the set pruned after compaction,
// called when the Engine clone that owns p closes. Without this, every
// accepted connection's Clone leaves its ReaderPool registered forever,
// so a long-running server would grow w.clones without bound and keep
// pruning dead pools on every compaction.
func (w *writer) deregisterReaderPool(p *ReaderPool) {
	w.clonesMu.Lock()
	defer w.clonesMu.Unlock()
	for i, c := range w.clones {
		if c == p {
			last := len(w.clones) - 1
			w.clones[i] = w.clones[last]
			w.clones[last] = nil
			w.clones = w.clones[:last]
			return
		}
	}
}

func (w *writer) pruneClones() {
	w.clonesMu.Lock()
	defer w.clonesMu.Unlock()
	for _, p := range w.clones {
		p.pruneBelowSafePoint()
	}
}

// replayInto decodes every command in fid and applies it to idx, mirroring
// what the writer itself does at append time, so index reconstruction
// after restart produces the same state P2 requires. It returns the
// number of uncompacted bytes found in this generation (superseded Sets
// and all Removes), the same accounting rule Set/Remove use going forward.
func replayInto(backend PersistenceBackend, idx *Index, fid uint64) (int64, error) {
	f, err := backend.OpenReader(fid)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := newCommandDecoder(f)
	var uncompacted int64
	var prevEnd int64
	for {
		cmd, end, err := dec.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		pos := prevEnd
		length := end - prevEnd
		prevEnd = end
		switch cmd.Op {
		case "set":
			prev, had := idx.Insert(cmd.Key, CmdPos{Fid: fid, Pos: pos, Len: length})
			if had {
				uncompacted += prev.Len
			}
		case "rm":
			prev, had := idx.Remove(cmd.Key)
			if had {
				uncompacted += prev.Len
			}
			uncompacted += length
		default:
			return 0, corruptState("replay", ErrCorruptState)
		}
	}
	return uncompacted, nil
}

// Set implements the C6 Set algorithm verbatim: record pos, encode,
// flush, then publish the new index entry so a Get on any thread that
// observes it is guaranteed to find the already-flushed bytes.
func (w *writer) Set(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cmd := newSetCommand(key, value)
	encoded, err := encodeCommand(cmd)
	if err != nil {
		return codecErr("encode set", err)
	}

	pos := w.activeWriter.pos
	if _, err := w.activeWriter.Write(encoded); err != nil {
		return ioErr("write set", err)
	}
	if err := w.activeWriter.Flush(); err != nil {
		return ioErr("flush set", err)
	}
	newPos := w.activeWriter.pos

	prev, had := w.index.Insert(cmd.Key, CmdPos{Fid: w.activeFid, Pos: pos, Len: newPos - pos})
	if had {
		w.uncompacted += prev.Len
	}
	return w.maybeCompactLocked()
}

// Remove implements the C6 Remove algorithm: KeyNotFound without touching
// the log if the key is already absent, otherwise append a tombstone and
// charge both the superseded Set and the tombstone's own bytes to
// uncompacted, matching the concurrent reference version (spec §9).
func (w *writer) Remove(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key = normalizeKey(key)
	if _, ok := w.index.Get(key); !ok {
		return keyNotFound(key)
	}

	cmd := newRemoveCommand(key)
	encoded, err := encodeCommand(cmd)
	if err != nil {
		return codecErr("encode remove", err)
	}

	pos := w.activeWriter.pos
	if _, err := w.activeWriter.Write(encoded); err != nil {
		return ioErr("write remove", err)
	}
	if err := w.activeWriter.Flush(); err != nil {
		return ioErr("flush remove", err)
	}
	newPos := w.activeWriter.pos

	prev, had := w.index.Remove(cmd.Key)
	if had {
		w.uncompacted += prev.Len
	}
	w.uncompacted += newPos - pos
	return w.maybeCompactLocked()
}

func (w *writer) maybeCompactLocked() error {
	if w.uncompacted <= w.threshold {
		return nil
	}
	return w.compactLocked()
}

// compactLocked runs the six-step algorithm from spec §4.6. Called with
// mu already held, synchronously from Set/Remove via maybeCompactLocked.
func (w *writer) compactLocked() error {
	compactionFid := w.activeFid + 1
	newActiveFid := w.activeFid + 2

	compactionRaw, err := w.backend.OpenActive(compactionFid)
	if err != nil {
		return ioErr("open compaction file", err)
	}
	compactionWriter := newPosWriter(compactionRaw, 0)

	newActiveRaw, err := w.backend.OpenActive(newActiveFid)
	if err != nil {
		compactionWriter.Close()
		return ioErr("open new active file", err)
	}
	newActiveWriter := newPosWriter(newActiveRaw, 0)

	// step 2: migrate every live entry, oldest key first is irrelevant --
	// order here only has to be deterministic enough to be resumable on
	// failure, which per-entry atomic index updates already guarantee.
	sourceHandles := make(map[uint64]io.ReaderAt)
	closeSourceHandles := func() {
		for _, h := range sourceHandles {
			if c, ok := h.(io.Closer); ok {
				c.Close()
			}
		}
	}
	defer closeSourceHandles()

	for _, entry := range w.index.Entries() {
		src, ok := sourceHandles[entry.Pos.Fid]
		if !ok {
			f, err := w.backend.OpenReader(entry.Pos.Fid)
			if err != nil {
				return ioErr("open compaction source", err)
			}
			sourceHandles[entry.Pos.Fid] = f
			src = f
		}
		newPos := compactionWriter.pos
		if _, err := io.Copy(compactionWriter, io.NewSectionReader(src, entry.Pos.Pos, entry.Pos.Len)); err != nil {
			return ioErr("copy compaction entry", err)
		}
		w.index.Insert(entry.Key, CmdPos{Fid: compactionFid, Pos: newPos, Len: entry.Pos.Len})
	}

	// step 3
	if err := compactionWriter.Flush(); err != nil {
		return ioErr("flush compaction file", err)
	}
	compactionWriter.f.Close() // no further writes ever target this generation

	// step 4: publish safe_point only after the compaction bytes are on
	// disk, so a reader observing the new index position always finds
	// valid bytes in the compaction file.
	w.safePoint.Store(compactionFid)
	w.pruneClones() // every registered clone drops handles below the new safe_point

	// switch the active writer to the freshly opened generation
	w.activeWriter.Close()
	w.activeFid = newActiveFid
	w.activeWriter = newActiveWriter

	// step 5: retire everything below compaction_fid. Re-deriving the
	// candidate list from disk on every compaction (rather than keeping
	// our own pending-deletion list) means a file a previous compaction
	// failed to delete is simply retried here, for free.
	onDisk, err := w.backend.ListFids()
	if err != nil {
		w.log.Printf("compaction: list fids failed: %v", err)
		onDisk = nil
	}
	for _, fid := range onDisk {
		if fid >= compactionFid {
			continue
		}
		if w.archive != nil {
			if err := w.archiveFid(fid); err != nil {
				w.log.Printf("compaction: archive fid %d failed: %v", fid, err)
			}
		}
		if err := w.backend.Remove(fid); err != nil {
			w.log.Printf("compaction: delete fid %d deferred: %v", fid, err)
		}
	}

	// step 6
	w.uncompacted = 0
	w.compactionsRun++
	return nil
}

func (w *writer) archiveFid(fid uint64) error {
	f, err := w.backend.OpenReader(fid)
	if err != nil {
		return err
	}
	defer f.Close()
	return w.archive.Archive(fid, f)
}

// Close flushes and closes the active writer. Each Engine clone is
// responsible for closing its own ReaderPool.
func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeWriter.Close()
}
