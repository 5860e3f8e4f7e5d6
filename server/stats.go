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
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/launix-de/kvd/engine"
)

// StatsSource is whatever can produce a point-in-time counters snapshot.
// engine.BitcaskEngine implements it via Stats(); PlanksEngine does not
// need to (it has no uncompacted/compaction bookkeeping), so the stats
// endpoint is only ever wired up for the bitcask engine.
type StatsSource interface {
	Stats() engine.Stats
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StatsHandler upgrades to a websocket and pushes src.Stats() once a
// second until the client disconnects. It shares no state-mutation path
// with the core protocol: it only ever takes the same short snapshot
// critical sections the engine already exposes.
type StatsHandler struct {
	Src    StatsSource
	Logger *log.Logger
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Printf("stats: upgrade failed: %v", err)
		}
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// drain client-initiated control frames (pings/close) in the
	// background so the write loop below notices a dropped connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			payload, err := json.Marshal(h.Src.Stats())
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
