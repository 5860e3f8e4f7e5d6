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
package server

import (
	"net"
	"testing"
	"time"

	"github.com/launix-de/kvd/engine"
	"github.com/launix-de/kvd/threadpool"
	"github.com/launix-de/kvd/wire"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	eng, err := engine.Open(engine.Config{DataDir: dir})
	if err != nil {
		t.Fatalf("engine.Open: %v", err)
	}
	pool, err := threadpool.NewGuardedPool(4, nil)
	if err != nil {
		t.Fatalf("NewGuardedPool: %v", err)
	}
	srv, err := New("127.0.0.1:0", eng, pool, nil)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() {
		srv.Close()
		pool.Close()
		eng.Close()
	})
	return srv
}

func dialTest(t *testing.T, addr net.Addr) (*wire.Reader, *wire.Writer, net.Conn) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return wire.NewReader(conn), wire.NewWriter(conn), conn
}

// TestServerRoundTripTwoClients is scenario 6: two independent client
// connections against the same running server observe each other's
// writes, and one client closing its connection does not disturb the
// other.
func TestServerRoundTripTwoClients(t *testing.T) {
	srv := startTestServer(t)

	r1, w1, conn1 := dialTest(t, srv.Addr())
	r2, w2, conn2 := dialTest(t, srv.Addr())
	defer conn2.Close()

	if err := w1.WriteRequest(wire.NewSetRequest("x", "1")); err != nil {
		t.Fatalf("client1 write: %v", err)
	}
	resp1, err := r1.ReadResponse()
	if err != nil || !resp1.Ok {
		t.Fatalf("client1 set response = %+v, err %v", resp1, err)
	}
	conn1.Close() // client 1 is done

	if err := w2.WriteRequest(wire.NewGetRequest("x")); err != nil {
		t.Fatalf("client2 write: %v", err)
	}
	resp2, err := r2.ReadResponse()
	if err != nil {
		t.Fatalf("client2 read: %v", err)
	}
	if !resp2.Ok || !resp2.Found || resp2.Value != "1" {
		t.Fatalf("client2 get response = %+v, want ok/found/\"1\"", resp2)
	}

	// client 2 keeps working after client 1 disconnected.
	if err := w2.WriteRequest(wire.NewSetRequest("y", "2")); err != nil {
		t.Fatalf("client2 second write: %v", err)
	}
	resp3, err := r2.ReadResponse()
	if err != nil || !resp3.Ok {
		t.Fatalf("client2 second set response = %+v, err %v", resp3, err)
	}
}

func TestServerRemoveMissingKeyReturnsLiteralError(t *testing.T) {
	srv := startTestServer(t)
	r, w, conn := dialTest(t, srv.Addr())
	defer conn.Close()

	if err := w.WriteRequest(wire.NewRemoveRequest("nope")); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := r.ReadResponse()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Ok || resp.Err != "Key not found" {
		t.Fatalf("remove miss response = %+v, want Err=\"Key not found\"", resp)
	}
}
