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
	"testing"
)

func TestCommandDecoderStreamsConcatenatedObjects(t *testing.T) {
	var buf bytes.Buffer
	cmds := []Command{
		newSetCommand("a", "1"),
		newSetCommand("b", "2"),
		newRemoveCommand("a"),
	}
	for _, c := range cmds {
		b, err := encodeCommand(c)
		if err != nil {
			t.Fatalf("encodeCommand: %v", err)
		}
		buf.Write(b)
	}

	dec := newCommandDecoder(&buf)
	var prevEnd int64
	for i, want := range cmds {
		got, end, err := dec.next()
		if err != nil {
			t.Fatalf("next() #%d: %v", i, err)
		}
		if got != want {
			t.Fatalf("next() #%d = %+v, want %+v", i, got, want)
		}
		if end <= prevEnd {
			t.Fatalf("next() #%d offset did not advance: prev=%d end=%d", i, prevEnd, end)
		}
		prevEnd = end
	}
	if _, _, err := dec.next(); err != io.EOF {
		t.Fatalf("next() at end = %v, want io.EOF", err)
	}
}

func TestCommandDecoderRejectsGarbage(t *testing.T) {
	dec := newCommandDecoder(bytes.NewReader([]byte("not json at all")))
	_, _, err := dec.next()
	if err == nil {
		t.Fatal("expected a decode error for malformed input")
	}
}

func TestNormalizeKeyMakesCanonicallyEqualKeysIdentical(t *testing.T) {
	a := normalizeKey("café") // precomposed codepoint
	b := normalizeKey("café") // e + combining acute accent
	if a != b {
		t.Fatalf("normalizeKey did not unify canonically equal forms: %q vs %q", a, b)
	}
}
