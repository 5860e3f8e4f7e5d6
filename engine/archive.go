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

	"github.com/pierrec/lz4/v4"
)

// ArchiveTier receives the raw bytes of a log generation compaction is
// about to delete locally, and is responsible for getting them to cold
// storage before that deletion happens. Archival never blocks compaction
// correctness: a failed Archive call is logged and the file is still
// removed locally in the same step, so that generation is not archived.
type ArchiveTier interface {
	Archive(fid uint64, src io.Reader) error
}

// LocalLZ4Archive compresses retired generations with lz4 (fast, low
// ratio -- appropriate for the hot compaction path, as opposed to the
// xz-based export tool in export.go) into a separate directory on the
// same machine. This is the default, always-available archival tier.
type LocalLZ4Archive struct {
	dir string
}

func NewLocalLZ4Archive(dir string) (*LocalLZ4Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioErr("mkdir archive dir", err)
	}
	return &LocalLZ4Archive{dir: dir}, nil
}

func (a *LocalLZ4Archive) Archive(fid uint64, src io.Reader) error {
	path := filepath.Join(a.dir, fmt.Sprintf("%d.log.lz4", fid))
	f, err := os.Create(path)
	if err != nil {
		return ioErr("create archive file", err)
	}
	defer f.Close()

	zw := lz4.NewWriter(f)
	if _, err := io.Copy(zw, src); err != nil {
		return ioErr("lz4 compress archive", err)
	}
	return zw.Close()
}

// ColdPutter is the narrow interface the network-backed archive tiers
// need: put an opaque blob under a key. S3ColdStore and CephColdStore
// implement it; RemoteArchive does the lz4 compression in front of them.
type ColdPutter interface {
	Put(key string, r io.Reader) error
}

// RemoteArchive compresses with lz4 and hands the result to any
// ColdPutter -- shared plumbing for the S3 and Ceph archive tiers, which
// differ only in how they implement ColdPutter.
type RemoteArchive struct {
	putter ColdPutter
	prefix string
}

func NewRemoteArchive(putter ColdPutter, prefix string) *RemoteArchive {
	return &RemoteArchive{putter: putter, prefix: prefix}
}

func (a *RemoteArchive) Archive(fid uint64, src io.Reader) error {
	pr, pw := io.Pipe()
	zw := lz4.NewWriter(pw)
	go func() {
		_, err := io.Copy(zw, src)
		if err == nil {
			err = zw.Close()
		}
		pw.CloseWithError(err)
	}()
	key := fmt.Sprintf("%s/%d.log.lz4", a.prefix, fid)
	return a.putter.Put(key, pr)
}
