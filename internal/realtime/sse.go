package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ServeSSE streams a board's element events and presence snapshots as
// Server-Sent Events until the client disconnects.
//
// Frames: "element.inserted" and "element.updated" carry the full element,
// "presence" carries a cursor snapshot keyed by user id.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request, boardID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, cancelFeed, err := h.Feed().Subscribe(r.Context(), boardID)
	if err != nil {
		http.Error(w, "hub closed", http.StatusServiceUnavailable)
		return
	}
	defer cancelFeed()
	snaps, cancelPresence, err := h.Presence().Subscribe(r.Context(), boardID)
	if err != nil {
		http.Error(w, "hub closed", http.StatusServiceUnavailable)
		return
	}
	defer cancelPresence()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeFrame(w, "element."+string(ev.Type), ev.Element)
			flusher.Flush()
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			writeFrame(w, "presence", snap)
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
