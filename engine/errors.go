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

import "errors"

// error kinds, matched with errors.Is against the sentinels below
var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrCorruptState = errors.New("corrupt state")
	ErrConfig       = errors.New("invalid configuration")
)

// Error wraps an underlying cause with one of the taxonomy kinds from the
// spec: Io, Codec, KeyNotFound, CorruptState, Config, External.
type Error struct {
	Kind string // "io", "codec", "key_not_found", "corrupt_state", "config", "external"
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return e.Kind + ": " + e.Op + ": " + e.Err.Error()
	}
	return e.Kind + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func ioErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: "io", Op: op, Err: err}
}

func codecErr(op string, err error) error {
	return &Error{Kind: "codec", Op: op, Err: err}
}

func keyNotFound(key string) error {
	return &Error{Kind: "key_not_found", Op: key, Err: ErrKeyNotFound}
}

func corruptState(op string, err error) error {
	return &Error{Kind: "corrupt_state", Op: op, Err: err}
}

func configErr(op string, err error) error {
	return &Error{Kind: "config", Op: op, Err: err}
}

func externalErr(op string, err error) error {
	return &Error{Kind: "external", Op: op, Err: err}
}
