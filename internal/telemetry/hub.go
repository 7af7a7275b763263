// Package telemetry streams the bot's events to websocket subscribers, so a
// dashboard can watch the trading window live without touching the core.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"daybot/internal/event"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts published events to every connected websocket client. It
// implements event.Sink.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

func (h *Hub) Publish(ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
	return nil
}

// Serve accepts websocket subscribers on /ws until the listener fails. Run
// it in its own goroutine.
func (h *Hub) Serve(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		h.mu.Lock()
		h.clients[conn] = true
		h.mu.Unlock()
	})

	slog.Info("telemetry listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("telemetry server stopped", "error", err)
	}
}
