package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/assets"
	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/realtime"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *boardservice.Service, hub *realtime.Hub, files *assets.FS, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc, hub)
	ah := NewAttachmentHandler(files)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Boards.
	r.Get("/boards", h.ListBoards)
	r.Get("/boards/{boardID}/elements", h.FetchElements)
	r.Post("/boards/{boardID}/elements", h.CreateElement)
	r.Get("/boards/{boardID}/export.pdf", h.ExportPDF)

	// Elements addressed by id.
	r.Get("/elements/{id}", h.GetElement)
	r.Patch("/elements/{id}", h.UpdateElement)

	// Realtime (protected by the same auth middleware).
	r.Get("/boards/{boardID}/events", h.Events)
	r.Get("/boards/{boardID}/ws", h.BoardWS)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	return r
}

// NewAssetRouter serves stored attachment files. Mounted at the asset URL
// prefix, outside the auth group, so image elements can reference uploads
// directly.
func NewAssetRouter(files *assets.FS) chi.Router {
	ah := NewAttachmentHandler(files)
	r := chi.NewRouter()
	r.Get("/{name}", ah.ServeFile)
	return r
}
