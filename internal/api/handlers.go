package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/export"
	"github.com/starford/dagaz/internal/realtime"
)

// Handler holds API route handlers.
type Handler struct {
	svc *boardservice.Service
	hub *realtime.Hub
}

// NewHandler creates a new Handler.
func NewHandler(svc *boardservice.Service, hub *realtime.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// ListBoards handles GET /api/boards.
//
//	@Summary		List boards, most recently active first
//	@Tags			boards
//	@Produce		json
//	@Success		200	{object}	BoardListResponse
//	@Security		BearerAuth
//	@Router			/boards [get]
func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := h.svc.ListBoards(r.Context())
	if err != nil {
		slog.Error("list boards failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"boards": boards,
	})
}

// FetchElements handles GET /api/boards/{boardID}/elements.
//
//	@Summary		List a board's elements in render order
//	@Tags			elements
//	@Produce		json
//	@Param			boardID	path		string	true	"Board id"
//	@Success		200		{object}	ElementListResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/elements [get]
func (h *Handler) FetchElements(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	elements, err := h.svc.Fetch(r.Context(), boardID)
	if err != nil {
		slog.Error("fetch elements failed", slog.String("board", boardID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if elements == nil {
		elements = []element.Element{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"elements": elements,
	})
}

// CreateElement handles POST /api/boards/{boardID}/elements.
//
//	@Summary		Create an element on a board
//	@Tags			elements
//	@Accept			json
//	@Produce		json
//	@Param			boardID	path		string			true	"Board id"
//	@Param			body	body		element.Element	true	"Element to create"
//	@Success		201		{object}	element.Element
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/elements [post]
func (h *Handler) CreateElement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var in element.Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	e := in.Resolve()
	e.BoardID = chi.URLParam(r, "boardID")
	if err := e.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	stored, err := h.svc.Insert(r.Context(), e)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("element already exists"))
		} else {
			slog.Error("create element failed", slog.String("board", e.BoardID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// GetElement handles GET /api/elements/{id}.
//
//	@Summary		Get a single element, including soft-deleted ones
//	@Tags			elements
//	@Produce		json
//	@Param			id	path		string	true	"Element id"
//	@Success		200	{object}	element.Element
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/elements/{id} [get]
func (h *Handler) GetElement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := h.svc.GetElement(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get element failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateElement handles PATCH /api/elements/{id}. Partial attributes only;
// soft delete is a patch with {"deleted": true}.
//
//	@Summary		Apply partial attributes to an element
//	@Tags			elements
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Element id"
//	@Param			body	body		element.Patch	true	"Attributes to change"
//	@Success		200		{object}	element.Element
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/elements/{id} [patch]
func (h *Handler) UpdateElement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")
	var p element.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	stored, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update element failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// Events handles GET /api/boards/{boardID}/events: a Server-Sent Events
// stream of element changes and presence snapshots.
//
//	@Summary		Stream board changes as Server-Sent Events
//	@Tags			realtime
//	@Produce		text/event-stream
//	@Param			boardID	path	string	true	"Board id"
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeSSE(w, r, chi.URLParam(r, "boardID"))
}

// ExportPDF handles GET /api/boards/{boardID}/export.pdf.
//
//	@Summary		Export a board as a single-page PDF
//	@Tags			boards
//	@Produce		application/pdf
//	@Param			boardID	path	string	true	"Board id"
//	@Security		BearerAuth
//	@Router			/boards/{boardID}/export.pdf [get]
func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	elements, err := h.svc.Fetch(r.Context(), boardID)
	if err != nil {
		slog.Error("export fetch failed", slog.String("board", boardID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	pdf, err := export.PDFBytes(elements)
	if err != nil {
		slog.Error("export render failed", slog.String("board", boardID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="board-`+boardID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
