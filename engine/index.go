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
	NonLockingReadMap "github.com/launix-de/NonLockingReadMap"
)

// CmdPos is the triple (fid, pos, len) a live key's index entry points at.
type CmdPos struct {
	Fid uint64
	Pos int64
	Len int64
}

// indexEntry adapts CmdPos to NonLockingReadMap's KeyGetter contract: a
// key accessor plus a cheap size estimate used for its own bookkeeping.
type indexEntry struct {
	key string
	pos CmdPos
}

func (e indexEntry) GetKey() string { return e.key }

func (e indexEntry) ComputeSize() uint {
	return uint(len(e.key)) + 32
}

// Index is the concurrent key -> command-position map described in C4.
// It is backed by NonLockingReadMap, whose read path never blocks and
// whose GetAll() already returns entries in sorted key order, which is
// exactly the ordered-iteration guarantee compaction needs. A single
// global RWMutex would have satisfied neither requirement: readers would
// serialize against each other on every Get.
type Index struct {
	m NonLockingReadMap.NonLockingReadMap[indexEntry, string]
}

func newIndex() *Index {
	idx := &Index{m: NonLockingReadMap.New[indexEntry, string]()}
	return idx
}

// Get is a lock-free, short-critical-section read: a binary search over
// the current immutable snapshot of the backing slice.
func (idx *Index) Get(key string) (CmdPos, bool) {
	e := idx.m.Get(key)
	if e == nil {
		return CmdPos{}, false
	}
	return e.pos, true
}

// Insert records key -> pos, returning the previous position if the key
// was already live. Used by Set and by compaction's per-entry migration.
func (idx *Index) Insert(key string, pos CmdPos) (CmdPos, bool) {
	prev := idx.m.Set(&indexEntry{key: key, pos: pos})
	if prev == nil {
		return CmdPos{}, false
	}
	return prev.pos, true
}

// Remove deletes key from the index, returning its prior position.
func (idx *Index) Remove(key string) (CmdPos, bool) {
	prev := idx.m.Remove(key)
	if prev == nil {
		return CmdPos{}, false
	}
	return prev.pos, true
}

// Entries returns every live (key, position) pair in ascending key order,
// a stable snapshot sufficient to visit each entry exactly once during
// compaction even while concurrent reads continue against the map.
func (idx *Index) Entries() []struct {
	Key string
	Pos CmdPos
} {
	all := idx.m.GetAll()
	out := make([]struct {
		Key string
		Pos CmdPos
	}, len(all))
	for i, e := range all {
		out[i] = struct {
			Key string
			Pos CmdPos
		}{Key: e.key, Pos: e.pos}
	}
	return out
}

// Len reports the number of live keys.
func (idx *Index) Len() int {
	return len(idx.m.GetAll())
}
