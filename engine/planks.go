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
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/btree"
)

// plankEntry is one leaf of the planks tree, ordered by Key the same way
// storage.indexPair orders its btree by column values.
type plankEntry struct {
	Key   string
	Value string
}

func plankLess(a, b plankEntry) bool { return a.Key < b.Key }

// PlanksEngine is the spec's "delegating engine variant": all three
// operations forward to an in-process, ordered, embedded key-value
// library (google/btree here, standing in for the reference's external
// sled crate) instead of the bitcask log. It satisfies the same Engine
// capability set so the server can be parameterized by engine choice
// without knowing which one it's driving.
//
// Durability follows "flush-on-remove" semantics, literally: Set appends
// its record to the backing command log without fsync, Get reads only the
// in-memory tree, and Remove appends its record and fsyncs the log, the
// one point this variant forces bytes to stable storage.
type PlanksEngine struct {
	mu   *sync.RWMutex
	tree *btree.BTreeG[plankEntry]
	log  *os.File
	path string
	root bool
}

// OpenPlanks rebuilds the tree by replaying planks.log under dataDir (the
// same "no snapshot, rebuild by replay" discipline the bitcask engine
// uses) and returns a ready-to-use facade.
func OpenPlanks(dataDir string) (*PlanksEngine, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, ioErr("mkdir planks dir", err)
	}
	path := filepath.Join(dataDir, "planks.log")
	tree := btree.NewG(32, plankLess)

	if f, err := os.Open(path); err == nil {
		dec := json.NewDecoder(f)
		for dec.More() {
			var rec plankRecord
			if err := dec.Decode(&rec); err != nil {
				f.Close()
				return nil, codecErr("replay planks log", err)
			}
			if rec.Op == "set" {
				tree.ReplaceOrInsert(plankEntry{Key: rec.Key, Value: rec.Value})
			} else {
				tree.Delete(plankEntry{Key: rec.Key})
			}
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return nil, ioErr("open planks log", err)
	}

	logFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, ioErr("open planks log for append", err)
	}

	return &PlanksEngine{mu: new(sync.RWMutex), tree: tree, log: logFile, path: path, root: true}, nil
}

type plankRecord struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

func (e *PlanksEngine) appendRecord(rec plankRecord, sync bool) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return codecErr("encode planks record", err)
	}
	if _, err := e.log.Write(b); err != nil {
		return ioErr("write planks log", err)
	}
	if sync {
		if err := e.log.Sync(); err != nil {
			return ioErr("sync planks log", err)
		}
	}
	return nil
}

func (e *PlanksEngine) Set(key, value string) error {
	if key == "" || value == "" {
		return configErr("set", ErrConfig)
	}
	key = normalizeKey(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.appendRecord(plankRecord{Op: "set", Key: key, Value: value}, false); err != nil {
		return err
	}
	e.tree.ReplaceOrInsert(plankEntry{Key: key, Value: value})
	return nil
}

func (e *PlanksEngine) Get(key string) (string, bool, error) {
	key = normalizeKey(key)
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.tree.Get(plankEntry{Key: key})
	if !ok {
		return "", false, nil
	}
	return v.Value, true, nil
}

func (e *PlanksEngine) Remove(key string) error {
	key = normalizeKey(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tree.Get(plankEntry{Key: key}); !ok {
		return keyNotFound(key)
	}
	if err := e.appendRecord(plankRecord{Op: "rm", Key: key}, true); err != nil {
		return err
	}
	e.tree.Delete(plankEntry{Key: key})
	return nil
}

// Clone returns a facade sharing the same tree and log handle; planks
// has no per-worker reader cache to make independent, so every clone is
// just another reference serialized by the same mutex.
func (e *PlanksEngine) Clone() Engine {
	return &PlanksEngine{tree: e.tree, log: e.log, path: e.path, mu: e.mu}
}

func (e *PlanksEngine) Close() error {
	if !e.root {
		return nil
	}
	return e.log.Close()
}

var _ io.Closer = (*PlanksEngine)(nil)
