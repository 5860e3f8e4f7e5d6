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
	"bufio"
	"io"
)

// posWriter is a buffered file writer that tracks the running byte offset
// across writes, so the writer can record pos before encoding a command
// and derive its length from the delta afterwards without re-measuring.
type posWriter struct {
	f   io.WriteCloser
	w   *bufio.Writer
	pos int64
}

func newPosWriter(f io.WriteCloser, startPos int64) *posWriter {
	return &posWriter{f: f, w: bufio.NewWriter(f), pos: startPos}
}

func (p *posWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.pos += int64(n)
	return n, err
}

func (p *posWriter) Flush() error {
	return p.w.Flush()
}

func (p *posWriter) Close() error {
	if err := p.w.Flush(); err != nil {
		p.f.Close()
		return err
	}
	return p.f.Close()
}

// posReader is a bounded, unbuffered sub-reader for a single command's
// byte range: exactly len bytes starting at pos within the underlying
// file handle.
type posReader struct {
	io.Reader
}

func newPosReader(f io.ReaderAt, pos, length int64) *posReader {
	return &posReader{Reader: io.NewSectionReader(f, pos, length)}
}
