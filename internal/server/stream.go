package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"repolens/internal/run"
)

const (
	watchWriteWait = 10 * time.Second
	watchPongWait  = 60 * time.Second
	watchPingEvery = (watchPongWait * 9) / 10
)

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// snapshotEvent turns the stored record into the event a new watcher sees
// first, so clients need no separate poll before subscribing.
func snapshotEvent(rec run.Run) run.Event {
	ev := run.Event{Type: run.EventProgress, RunID: rec.ID, Stage: rec.Stage, Progress: rec.Progress}
	switch rec.Status {
	case run.StatusCompleted:
		ev.Type = run.EventCompleted
	case run.StatusFailed:
		ev.Type = run.EventError
		ev.Message = rec.Error
	}
	return ev
}

// handleEvents streams run progress as server-sent events. Terminal events
// end the stream.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := h.Coordinator.Store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown run %q", id))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSE(w, snapshotEvent(rec))
	flusher.Flush()
	if rec.Done() {
		return
	}

	ch, ok := h.Coordinator.Events.Get(id)
	if !ok {
		// Channel already cleaned up; the record is the final word.
		if rec, ok := h.Coordinator.Store.Get(id); ok {
			writeSSE(w, snapshotEvent(rec))
			flusher.Flush()
		}
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
			if ev.Type != run.EventProgress {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, ev run.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

// handleWatch streams run progress over a WebSocket.
func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := h.Coordinator.Store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown run %q", id))
		return
	}

	conn, err := watchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(watchPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})

	// Reader loop only services control frames and detects peer close.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	writeEvent := func(ev run.Event) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(watchWriteWait)); err != nil {
			return false
		}
		return conn.WriteJSON(ev) == nil
	}

	if !writeEvent(snapshotEvent(rec)) || rec.Done() {
		return
	}

	ch, ok := h.Coordinator.Events.Get(id)
	if !ok {
		if rec, ok := h.Coordinator.Store.Get(id); ok {
			writeEvent(snapshotEvent(rec))
		}
		return
	}

	ticker := time.NewTicker(watchPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-readerDone:
			return
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(watchWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, open := <-ch:
			if !open {
				return
			}
			if !writeEvent(ev) {
				return
			}
			if ev.Type != run.EventProgress {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(ev.Type)),
					time.Now().Add(watchWriteWait))
				return
			}
		}
	}
}
