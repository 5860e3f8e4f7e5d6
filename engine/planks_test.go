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
	"errors"
	"testing"
)

// Scenarios 1-3 (spec §8) apply to both engines, since both satisfy the
// same Engine contract. These mirror TestSetGetRemove,
// TestGetMissIsNotAnError, and TestReopenRebuildsIndexFromLog in
// bitcask_test.go but
// drive PlanksEngine instead of BitcaskEngine.

func openTestPlanks(t *testing.T) *PlanksEngine {
	t.Helper()
	e, err := OpenPlanks(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPlanks: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestPlanksSetGetRemove(t *testing.T) {
	e := openTestPlanks(t)

	if err := e.Set("alpha", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, found, err := e.Get("alpha")
	if err != nil || !found || v != "1" {
		t.Fatalf("Get = %q, %v, %v", v, found, err)
	}

	if err := e.Set("alpha", "2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, found, err = e.Get("alpha")
	if err != nil || !found || v != "2" {
		t.Fatalf("Get after overwrite = %q, %v, %v", v, found, err)
	}

	if err := e.Remove("alpha"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, found, err = e.Get("alpha")
	if err != nil || found {
		t.Fatalf("Get after remove = found %v, err %v", found, err)
	}

	if err := e.Remove("alpha"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Remove again = %v, want ErrKeyNotFound", err)
	}
}

func TestPlanksGetMissIsNotAnError(t *testing.T) {
	e := openTestPlanks(t)
	v, found, err := e.Get("nope")
	if err != nil {
		t.Fatalf("Get miss returned error: %v", err)
	}
	if found || v != "" {
		t.Fatalf("Get miss = %q, %v, want found=false", v, found)
	}
}

func TestPlanksReopenRebuildsTreeFromLog(t *testing.T) {
	dir := t.TempDir()
	e1, err := OpenPlanks(dir)
	if err != nil {
		t.Fatalf("OpenPlanks: %v", err)
	}
	if err := e1.Set("k1", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := e1.Set("k2", "v2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := e1.Remove("k1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := e1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := OpenPlanks(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	if _, found, _ := e2.Get("k1"); found {
		t.Fatalf("k1 should still be removed after reopen")
	}
	v, found, err := e2.Get("k2")
	if err != nil || !found || v != "v2" {
		t.Fatalf("Get k2 after reopen = %q, %v, %v", v, found, err)
	}
}

func TestPlanksCloneSharesStateAcrossWrites(t *testing.T) {
	e := openTestPlanks(t)
	clone := e.Clone()
	defer clone.Close()

	if err := e.Set("shared", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, found, err := clone.Get("shared")
	if err != nil || !found || v != "v" {
		t.Fatalf("clone Get = %q, %v, %v", v, found, err)
	}
}
