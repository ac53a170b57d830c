package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/starford/dagaz/internal/collab"
	"github.com/starford/dagaz/internal/element"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The API is token-protected (or explicitly open); origin checks add
	// nothing for non-browser collaborators.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsInbound is a client-to-server frame. Type selects which payload field
// is read.
type wsInbound struct {
	Type    string           `json:"type"` // "cursor", "insert" or "update"
	Cursor  *collab.Cursor   `json:"cursor,omitempty"`
	Element *element.Inbound `json:"element,omitempty"`
	ID      string           `json:"id,omitempty"`
	Patch   *element.Patch   `json:"patch,omitempty"`
}

// wsOutbound is a server-to-client frame: element events ("inserted",
// "updated") carry the full element, "presence" carries a cursor snapshot
// keyed by user id.
type wsOutbound struct {
	Type    string                  `json:"type"`
	Element *element.Element        `json:"element,omitempty"`
	Cursors collab.PresenceSnapshot `json:"cursors,omitempty"`
}

// BoardWS handles GET /api/boards/{boardID}/ws: the bidirectional realtime
// gateway. Identity comes from query parameters (user, name, color); user
// is required.
//
//	@Summary		Bidirectional realtime board connection
//	@Tags			realtime
//	@Param			boardID	path	string	true	"Board id"
//	@Param			user	query	string	true	"User id"
//	@Param			name	query	string	false	"Display name"
//	@Param			color	query	string	false	"Cursor color"
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/ws [get]
func (h *Handler) BoardWS(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	q := r.URL.Query()
	who := collab.Identity{
		UserID: q.Get("user"),
		Name:   q.Get("name"),
		Color:  q.Get("color"),
	}
	if who.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'user' is required"))
		return
	}

	events, cancelFeed, err := h.hub.Feed().Subscribe(r.Context(), boardID)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("hub closed"))
		return
	}
	defer cancelFeed()
	snaps, cancelPresence, err := h.hub.Presence().Subscribe(r.Context(), boardID)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("hub closed"))
		return
	}
	defer cancelPresence()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readWS(ctx, cancel, conn, boardID, who)

	// The read goroutine never writes, so this loop is the single writer.
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsOutbound{Type: string(ev.Type), Element: &ev.Element}); err != nil {
				return
			}
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsOutbound{Type: "presence", Cursors: snap}); err != nil {
				return
			}
		}
	}
}

// readWS drains client frames, applying mutations through the board
// service and cursor moves through the presence channel.
func (h *Handler) readWS(ctx context.Context, cancel context.CancelFunc,
	conn *websocket.Conn, boardID string, who collab.Identity) {
	defer cancel()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		switch in.Type {
		case "cursor":
			if in.Cursor == nil {
				continue
			}
			c := *in.Cursor
			if c.Name == "" {
				c.Name = who.Name
			}
			if c.Color == "" {
				c.Color = who.Color
			}
			if err := h.hub.Presence().Publish(ctx, boardID, who.UserID, c); err != nil {
				return
			}
		case "insert":
			if in.Element == nil {
				continue
			}
			e := in.Element.Resolve()
			e.BoardID = boardID
			if e.AuthorID == "" {
				e.AuthorID = who.UserID
			}
			if err := e.Validate(); err != nil {
				slog.Debug("ws insert rejected",
					slog.String("user", who.UserID), slog.String("error", err.Error()))
				continue
			}
			if _, err := h.svc.Insert(ctx, e); err != nil {
				slog.Warn("ws insert failed",
					slog.String("board", boardID), slog.String("error", err.Error()))
			}
		case "update":
			if in.ID == "" || in.Patch == nil {
				continue
			}
			if _, err := h.svc.Update(ctx, in.ID, *in.Patch); err != nil {
				slog.Warn("ws update failed",
					slog.String("id", in.ID), slog.String("error", err.Error()))
			}
		}
	}
}
