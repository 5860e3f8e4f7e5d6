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

	"golang.org/x/text/unicode/norm"
)

// Command is the on-disk record variant: either a Set or a Remove.
// It is encoded as a single self-delimiting JSON object, concatenated
// without separators.
type Command struct {
	Op    string `json:"op"` // "set" or "rm"
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

func normalizeKey(key string) string {
	return norm.NFC.String(key)
}

func newSetCommand(key, value string) Command {
	return Command{Op: "set", Key: normalizeKey(key), Value: value}
}

func newRemoveCommand(key string) Command {
	return Command{Op: "rm", Key: normalizeKey(key)}
}

// encodeCommand returns the self-delimiting byte representation of cmd.
func encodeCommand(cmd Command) ([]byte, error) {
	return json.Marshal(cmd)
}

// commandDecoder consumes a stream of concatenated command objects,
// reporting the absolute byte offset immediately past each decoded
// command so callers can derive (pos, len) = (prevEnd, thisEnd-prevEnd).
//
// Mirrors serde_json's from_reader().into_iter() behavior: trailing
// partial input at EOF is not an error, but a decode failure mid-stream
// is fatal for the remainder of the stream.
type commandDecoder struct {
	dec *json.Decoder
}

func newCommandDecoder(r io.Reader) *commandDecoder {
	return &commandDecoder{dec: json.NewDecoder(r)}
}

// next returns the next command and the absolute offset just past it.
// io.EOF is returned (with a zero Command) when no further complete
// object remains in the stream.
func (d *commandDecoder) next() (Command, int64, error) {
	var cmd Command
	if !d.dec.More() {
		// InputOffset() is not reliable past the end of a streamed
		// array, but commands are concatenated objects, not an array,
		// so More() here only reports true end-of-stream.
		return Command{}, d.dec.InputOffset(), io.EOF
	}
	if err := d.dec.Decode(&cmd); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Command{}, d.dec.InputOffset(), io.EOF
		}
		return Command{}, d.dec.InputOffset(), codecErr("decode command", err)
	}
	return cmd, d.dec.InputOffset(), nil
}
