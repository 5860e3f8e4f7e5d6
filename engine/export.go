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
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// Export writes every generation file under dir into a single xz-
// compressed tar stream at outPath. Unlike the per-generation lz4
// archival tier compaction uses on its hot path (archive.go), this is an
// explicit, offline-only operation over the whole data directory, so it
// reaches for xz's higher compression ratio instead of lz4's speed --
// a distinct codec for a distinct job.
func Export(dir, outPath string) error {
	fids, err := sortedFids(dir)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return ioErr("create export file", err)
	}
	defer out.Close()

	zw, err := xz.NewWriter(out)
	if err != nil {
		return ioErr("init xz writer", err)
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	for _, fid := range fids {
		path := filepath.Join(dir, fmt.Sprintf("%d.log", fid))
		if err := addFileToTar(tw, path); err != nil {
			return ioErr("export "+path, err)
		}
	}
	return nil
}

func addFileToTar(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
