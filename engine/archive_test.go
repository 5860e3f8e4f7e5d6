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
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"
)

// TestLocalLZ4ArchiveReceivesRetiredGenerations drives a real compaction
// through Open with a LocalLZ4Archive configured, and checks that every
// generation compaction retires shows up, lz4-compressed, under the
// archive directory -- the one CLI-reachable archive tier exercised here
// end-to-end, the way TestCompactionReclaimsStaleGenerations exercises
// compaction itself.
func TestLocalLZ4ArchiveReceivesRetiredGenerations(t *testing.T) {
	dataDir := t.TempDir()
	archiveDir := t.TempDir()

	archive, err := NewLocalLZ4Archive(archiveDir)
	if err != nil {
		t.Fatalf("NewLocalLZ4Archive: %v", err)
	}

	e, err := Open(Config{DataDir: dataDir, CompactionThreshold: 64, Archive: archive})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	for i := 0; i < 50; i++ {
		if err := e.Set("key", "some reasonably sized value to accumulate waste"); err != nil {
			t.Fatalf("Set #%d: %v", i, err)
		}
	}

	stats := e.Stats()
	if stats.CompactionsRun == 0 {
		t.Fatalf("expected at least one compaction, got %+v", stats)
	}

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		t.Fatalf("ReadDir archive: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected at least one archived generation, found none in %s", archiveDir)
	}

	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".lz4" {
			t.Fatalf("unexpected archive file name %q", entry.Name())
		}
		f, err := os.Open(filepath.Join(archiveDir, entry.Name()))
		if err != nil {
			t.Fatalf("open archived generation %s: %v", entry.Name(), err)
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, lz4.NewReader(f)); err != nil {
			f.Close()
			t.Fatalf("decompress archived generation %s: %v", entry.Name(), err)
		}
		f.Close()
		if buf.Len() == 0 {
			t.Fatalf("archived generation %s decompressed to empty bytes", entry.Name())
		}
	}
}
