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

// Package server implements C9: accept connections, dispatch each one to
// the configured thread pool, and serve it sequentially against a clone
// of the shared engine.
package server

import (
	"errors"
	"io"
	"log"
	"net"

	"github.com/google/uuid"

	"github.com/launix-de/kvd/engine"
	"github.com/launix-de/kvd/threadpool"
	"github.com/launix-de/kvd/wire"
)

// Server binds one TCP listener and fans connections out across pool.
type Server struct {
	ln     net.Listener
	eng    engine.Engine
	pool   threadpool.Pool
	logger *log.Logger
}

func New(addr string, eng engine.Engine, pool threadpool.Pool, logger *log.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{ln: ln, eng: eng, pool: pool, logger: logger}, nil
}

// Addr reports the listener's bound address (useful when addr was ":0").
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve blocks accepting connections until the listener is closed.
// Every accepted connection gets its own engine clone and is submitted
// to the pool as one task; per-connection processing is sequential, so
// responses match request order on that socket, while different
// connections proceed concurrently across pool workers.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return err
		}
		connEngine := s.eng.Clone()
		connID := uuid.NewString()
		if spawnErr := s.pool.Spawn(func() {
			s.handleConn(connID, conn, connEngine)
		}); spawnErr != nil {
			s.logger.Printf("server: failed to dispatch connection %s: %v", connID, spawnErr)
			conn.Close()
			connEngine.Close()
		}
	}
}

func (s *Server) handleConn(id string, conn net.Conn, eng engine.Engine) {
	defer conn.Close()
	defer eng.Close()

	r := wire.NewReader(conn)
	w := wire.NewWriter(conn)
	for {
		req, err := r.ReadRequest()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.logger.Printf("conn %s: decode error, closing: %v", id, err)
			return
		}

		var resp wire.Response
		switch req.Kind {
		case "get":
			value, found, err := eng.Get(req.Key)
			if err != nil {
				resp = wire.GetErr(err.Error())
			} else {
				resp = wire.GetOk(value, found)
			}
		case "set":
			if err := eng.Set(req.Key, req.Value); err != nil {
				resp = wire.SetErr(err.Error())
			} else {
				resp = wire.SetOk()
			}
		case "rm":
			if err := eng.Remove(req.Key); err != nil {
				if errors.Is(err, engine.ErrKeyNotFound) {
					resp = wire.RemoveErr("Key not found")
				} else {
					resp = wire.RemoveErr(err.Error())
				}
			} else {
				resp = wire.RemoveOk()
			}
		default:
			s.logger.Printf("conn %s: unknown request kind %q, closing", id, req.Kind)
			return
		}

		if err := w.WriteResponse(resp); err != nil {
			s.logger.Printf("conn %s: write error, closing: %v", id, err)
			return
		}
	}
}

func (s *Server) Close() error {
	return s.ln.Close()
}
