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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PersistenceBackend is the local store for every log generation: the
// active file, the compaction file, and every retired generation still on
// disk. Cold storage is a separate concern handled by ArchiveTier
// (archive.go), which the writer consults independently just before a
// PersistenceBackend.Remove.
//
// Modeled on memcp's storage.PersistenceEngine boundary: a small interface
// the writer depends on, with local disk as its only implementation.
type PersistenceBackend interface {
	// OpenActive opens (creating if necessary) fid for append-mode writing.
	OpenActive(fid uint64) (io.WriteCloser, error)
	// OpenReader opens fid for random-access reading.
	OpenReader(fid uint64) (*os.File, error)
	// Remove deletes the local copy of fid. Deferred/retried by the caller
	// on failure; never fatal.
	Remove(fid uint64) error
	// ListFids reports every generation currently present, ascending.
	// Compaction re-derives this on every run so a fid a previous
	// compaction failed to delete is simply retried, with no separate
	// pending-deletion bookkeeping required.
	ListFids() ([]uint64, error)
}

// FileBackend stores every generation as <fid>.log directly under dir.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioErr("mkdir data dir", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) logPath(fid uint64) string {
	return filepath.Join(b.dir, fmt.Sprintf("%d.log", fid))
}

func (b *FileBackend) OpenActive(fid uint64) (io.WriteCloser, error) {
	f, err := os.OpenFile(b.logPath(fid), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, ioErr("open active log", err)
	}
	return f, nil
}

func (b *FileBackend) OpenReader(fid uint64) (*os.File, error) {
	f, err := os.Open(b.logPath(fid))
	if err != nil {
		return nil, ioErr("open log reader", err)
	}
	return f, nil
}

func (b *FileBackend) Remove(fid uint64) error {
	if err := os.Remove(b.logPath(fid)); err != nil {
		return ioErr("remove log", err)
	}
	return nil
}

// Archive on the local backend is a no-op: the file already lives where
// it needs to for the default (no cold tier) configuration.
func (b *FileBackend) Archive(fid uint64, src io.Reader) error {
	_, err := io.Copy(io.Discard, src)
	return err
}

func (b *FileBackend) ListFids() ([]uint64, error) {
	return sortedFids(b.dir)
}

// sortedFids scans dir for entries named <u64>.log and returns their fids
// sorted ascending. Missing directory is treated as empty, not an error,
// since the manager auto-creates it at open.
func sortedFids(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ioErr("read data dir", err)
	}
	fids := make([]uint64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".log") {
			continue
		}
		numPart := strings.TrimSuffix(name, ".log")
		fid, err := strconv.ParseUint(numPart, 10, 64)
		if err != nil {
			continue // not a generation file, ignore
		}
		fids = append(fids, fid)
	}
	sort.Slice(fids, func(i, j int) bool { return fids[i] < fids[j] })
	return fids, nil
}
