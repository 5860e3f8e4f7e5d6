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

// Package wire implements C8: length-free, self-delimiting JSON framing
// for the TCP protocol between kvd and kvd-server. A connection carries a
// stream of concatenated request objects one way and concatenated
// response objects the other; there is no length prefix, no heartbeat,
// no version negotiation.
package wire

import (
	"encoding/json"
	"errors"
	"io"
)

// Request is one Get/Set/Remove call. Kind selects which of Key/Value is
// meaningful, mirroring the tagged-enum Command in the engine package.
type Request struct {
	Kind  string `json:"kind"` // "get", "set", "rm"
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

func NewGetRequest(key string) Request { return Request{Kind: "get", Key: key} }

func NewSetRequest(key, val string) Request {
	return Request{Kind: "set", Key: key, Value: val}
}

func NewRemoveRequest(key string) Request { return Request{Kind: "rm", Key: key} }

// Response carries exactly one of the three response shapes the spec
// names: GetResponse = Ok(optional<string>) | Err(string); SetResponse
// and RemoveResponse = Ok | Err(string). A single wire struct covers all
// three: Found distinguishes Get's Some/None, and Err is empty on success.
type Response struct {
	Kind  string `json:"kind"`
	Ok    bool   `json:"ok"`
	Found bool   `json:"found,omitempty"` // meaningful for "get" responses only
	Value string `json:"value,omitempty"`
	Err   string `json:"err,omitempty"`
}

func GetOk(value string, found bool) Response {
	return Response{Kind: "get", Ok: true, Found: found, Value: value}
}

func GetErr(err string) Response { return Response{Kind: "get", Ok: false, Err: err} }

func SetOk() Response              { return Response{Kind: "set", Ok: true} }
func SetErr(err string) Response   { return Response{Kind: "set", Ok: false, Err: err} }
func RemoveOk() Response           { return Response{Kind: "rm", Ok: true} }
func RemoveErr(err string) Response { return Response{Kind: "rm", Ok: false, Err: err} }

var ErrDecode = errors.New("wire: malformed frame")

// Reader decodes a stream of concatenated self-delimiting JSON objects,
// the same streaming idiom engine.commandDecoder uses for on-disk
// records -- the wire format and the log format share an encoding
// discipline, just different outer schemas.
type Reader struct {
	dec *json.Decoder
}

func NewReader(r io.Reader) *Reader { return &Reader{dec: json.NewDecoder(r)} }

func (r *Reader) ReadRequest() (Request, error) {
	var req Request
	if !r.dec.More() {
		return Request{}, io.EOF
	}
	if err := r.dec.Decode(&req); err != nil {
		if err == io.EOF {
			return Request{}, io.EOF
		}
		return Request{}, ErrDecode
	}
	return req, nil
}

func (r *Reader) ReadResponse() (Response, error) {
	var resp Response
	if !r.dec.More() {
		return Response{}, io.EOF
	}
	if err := r.dec.Decode(&resp); err != nil {
		if err == io.EOF {
			return Response{}, io.EOF
		}
		return Response{}, ErrDecode
	}
	return resp, nil
}

// Writer emits self-delimiting JSON objects with no length prefix;
// json.Encoder follows each object with a newline, which the reader on
// the other end skips as whitespace between objects.
type Writer struct {
	w io.Writer
	e *json.Encoder
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w, e: json.NewEncoder(w)} }

func (w *Writer) WriteRequest(req Request) error  { return w.e.Encode(req) }
func (w *Writer) WriteResponse(resp Response) error { return w.e.Encode(resp) }
