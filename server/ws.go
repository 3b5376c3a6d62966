package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// statusPushInterval is how often a task snapshot is pushed to clients.
const statusPushInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleTaskStream upgrades to a websocket and pushes snapshots of the
// requested task until it reaches a terminal state. This replaces the
// desktop variant's push notifications for web clients that prefer not
// to poll.
func (s *Server) handleTaskStream(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("task_id")
	if id == "" {
		http.Error(w, "task_id query parameter required", http.StatusBadRequest)
		return
	}

	task := s.Service.Registry().Get(id)
	if task == nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Printf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	for {
		snapshot := task.Snapshot()
		if err := conn.WriteJSON(snapshot); err != nil {
			s.Logger.Printf("Websocket write failed: %v", err)
			return
		}
		if task.Terminal() {
			return
		}
		<-ticker.C
	}
}
