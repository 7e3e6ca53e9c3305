package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sebumatt/Sentin/internal/monitor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" ||
			strings.HasPrefix(origin, "http://localhost:") ||
			strings.HasPrefix(origin, "http://127.0.0.1:")
	},
}

// GET /api/sessions/{id}/ws
// Pushes a state snapshot on every session transition. The connection is
// one-way: client frames are read only to detect close.
func handleSessionWS(w http.ResponseWriter, r *http.Request, sess *monitor.Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	snapshots, cancel := sess.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Current state first so a late subscriber starts in sync.
	if err := conn.WriteJSON(sess.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case snap := <-snapshots:
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-closed:
			log.Debug().Str("session", sess.ID()).Msg("Websocket observer disconnected")
			return
		}
	}
}
