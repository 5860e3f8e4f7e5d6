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
package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	reqs := []Request{
		NewGetRequest("k1"),
		NewSetRequest("k2", "v2"),
		NewRemoveRequest("k3"),
	}
	for _, req := range reqs {
		require.NoError(t, w.WriteRequest(req))
	}

	r := NewReader(&buf)
	for _, want := range reqs {
		got, err := r.ReadRequest()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := r.ReadRequest()
	require.ErrorIs(t, err, io.EOF)
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	resps := []Response{
		GetOk("value", true),
		GetOk("", false),
		GetErr("boom"),
		SetOk(),
		SetErr("boom"),
		RemoveOk(),
		RemoveErr("Key not found"),
	}
	for _, resp := range resps {
		require.NoError(t, w.WriteResponse(resp))
	}

	r := NewReader(&buf)
	for _, want := range resps {
		got, err := r.ReadResponse()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestReadRequestOnEmptyStreamIsEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadRequest()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadRequestRejectsMalformedFrame(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte(`{"kind": "get", "key": `)))
	_, err := r.ReadRequest()
	require.ErrorIs(t, err, ErrDecode)
}

func TestManyRequestsOnOneConnectionPreserveOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 100; i++ {
		require.NoError(t, w.WriteRequest(NewSetRequest("k", "v")))
	}

	r := NewReader(&buf)
	count := 0
	for {
		_, err := r.ReadRequest()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 100, count)
}
