package api

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/biomegen/internal/biome"
	"github.com/talgya/biomegen/internal/session"
	"github.com/talgya/biomegen/internal/world"
)

// streamHub caps concurrent websocket viewers.
type streamHub struct {
	conns    int32
	max      int32
	upgrader websocket.Upgrader
}

func newStreamHub(max int) *streamHub {
	return &streamHub{
		max: int32(max),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type tileEntry struct {
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Biome  string      `json:"biome"`
	Sprite int         `json:"sprite"`
	Color  biome.Color `json:"color"`
}

func tileEntries(tiles []world.Tile) []tileEntry {
	out := make([]tileEntry, len(tiles))
	for i, t := range tiles {
		out[i] = tileEntry{
			X:      t.Coord.X,
			Y:      t.Coord.Y,
			Biome:  t.Biome.String(),
			Sprite: t.Descriptor.Sprite,
			Color:  t.Descriptor.Color,
		}
	}
	return out
}

// Stream messages.
type streamMsg struct {
	Type    string          `json:"type"` // "episode", "row", "done"
	Episode *episodeSummary `json:"episode,omitempty"`
	Row     int             `json:"row"`
	Tiles   []tileEntry     `json:"tiles,omitempty"`
}

// handleStream sends the live map row by row over a websocket, then one
// episode summary per regeneration. Clients refetch /api/v1/map on demand.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	hub := s.stream
	current := atomic.AddInt32(&hub.conns, 1)
	defer atomic.AddInt32(&hub.conns, -1)
	if current > hub.max {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	subID, episodes := s.Session.Subscribe()
	defer s.Session.Unsubscribe(subID)

	// Reader loop only watches for the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	slog.Info("stream client connected", "sub_id", subID)
	defer slog.Info("stream client disconnected", "sub_id", subID)

	if err := sendEpisode(conn, s.Session.Current()); err != nil {
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-gone:
			return
		case ep, ok := <-episodes:
			if !ok {
				return
			}
			sum := summarize(ep)
			if err := writeMsg(conn, streamMsg{Type: "episode", Episode: &sum}); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func sendEpisode(conn *websocket.Conn, ep *session.Episode) error {
	sum := summarize(ep)
	if err := writeMsg(conn, streamMsg{Type: "episode", Episode: &sum}); err != nil {
		return err
	}
	for row := 0; row < ep.Map.Grid.Width(); row++ {
		if err := writeMsg(conn, streamMsg{Type: "row", Row: row, Tiles: tileEntries(ep.Map.Row(row))}); err != nil {
			return err
		}
	}
	return writeMsg(conn, streamMsg{Type: "done", Episode: &sum})
}

func writeMsg(conn *websocket.Conn, m streamMsg) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(m)
}
