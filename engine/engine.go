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
	"os"
)

// Engine is C7's capability set: {set, get, remove, clone}, satisfied by
// both the bitcask engine and the planks (embedded B-tree) alternate.
// Every value handed out by Clone is safe to use from its own goroutine
// concurrently with the original and every other clone.
type Engine interface {
	Set(key, value string) error
	Get(key string) (string, bool, error)
	Remove(key string) error
	Clone() Engine
	Close() error
}

// Config collects the tunables a caller provides when opening an engine,
// following the teacher's storage.SettingsT pattern: one plain struct of
// knobs populated by the CLI layer, not read from package globals deep
// inside the engine.
type Config struct {
	DataDir             string
	CompactionThreshold int64 // bytes; 0 selects DefaultCompactionThreshold
	Archive             ArchiveTier
	Logger              *log.Logger
}

func (c Config) threshold() int64 {
	if c.CompactionThreshold > 0 {
		return c.CompactionThreshold
	}
	return DefaultCompactionThreshold
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(os.Stderr, "engine: ", log.LstdFlags)
}

// BitcaskEngine is the concrete C7 facade over C4-C6: the log-structured
// engine this specification centers on.
type BitcaskEngine struct {
	w       *writer
	readers *ReaderPool
	root    bool
}

// Open rebuilds the index from the on-disk log (there is no snapshot
// file) and returns the root engine handle for dataDir.
func Open(cfg Config) (*BitcaskEngine, error) {
	backend, err := NewFileBackend(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	w, err := openWriter(cfg.DataDir, backend, cfg.Archive, cfg.threshold(), cfg.logger())
	if err != nil {
		return nil, err
	}
	readers := newReaderPool(backend, w.safePoint)
	w.registerReaderPool(readers)
	return &BitcaskEngine{w: w, readers: readers, root: true}, nil
}

// Set appends a Set record and publishes it to the index; see writer.Set.
func (e *BitcaskEngine) Set(key, value string) error {
	if key == "" || value == "" {
		return configErr("set", ErrConfig)
	}
	return e.w.Set(key, value)
}

// Remove deletes key, or returns ErrKeyNotFound if it was already absent.
func (e *BitcaskEngine) Remove(key string) error {
	return e.w.Remove(key)
}

// Get is wait-free against other Gets on different keys: it only takes
// the index's short critical section, then reads through this clone's
// own reader pool with no cross-clone synchronization at all.
func (e *BitcaskEngine) Get(key string) (string, bool, error) {
	key = normalizeKey(key)
	pos, ok := e.w.index.Get(key)
	if !ok {
		return "", false, nil
	}

	var value string
	err := e.readers.Read(pos.Fid, pos.Pos, pos.Len, func(r io.Reader) error {
		dec := newCommandDecoder(r)
		cmd, _, err := dec.next()
		if err != nil {
			return err
		}
		if cmd.Op != "set" || cmd.Key != key {
			return corruptState("get "+key, ErrCorruptState)
		}
		value = cmd.Value
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Clone returns a new facade over the same directory, sharing the index
// and writer (so writes stay serialized through the one mutex) but with
// its own independent reader-pool view, per §4.7.
func (e *BitcaskEngine) Clone() Engine {
	readers := newReaderPool(e.w.backend, e.w.safePoint)
	e.w.registerReaderPool(readers)
	return &BitcaskEngine{w: e.w, readers: readers, root: false}
}

// Stats is a point-in-time counters snapshot for the optional live-stats
// stream (§4.9a). It is fed by the same short critical section Set/Remove
// already take, so sampling it never contends with the hot write path
// beyond the ordinary writer mutex.
type Stats struct {
	UncompactedBytes int64  `json:"uncompacted_bytes"`
	ActiveFid        uint64 `json:"active_fid"`
	CompactionsRun   uint64 `json:"compactions_run"`
	LiveKeys         int    `json:"live_keys"`
}

func (e *BitcaskEngine) Stats() Stats {
	e.w.mu.Lock()
	defer e.w.mu.Unlock()
	return Stats{
		UncompactedBytes: e.w.uncompacted,
		ActiveFid:        e.w.activeFid,
		CompactionsRun:   e.w.compactionsRun,
		LiveKeys:         e.w.index.Len(),
	}
}

// Close releases this clone's cached reader handles and deregisters its
// reader pool from the writer's post-compaction prune set. The root
// clone also flushes and closes the active writer file.
func (e *BitcaskEngine) Close() error {
	e.w.deregisterReaderPool(e.readers)
	e.readers.Close()
	if e.root {
		return e.w.Close()
	}
	return nil
}
