package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dagaz/internal/assets"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler accepts uploads into the content-addressed asset store
// and serves the stored files back.
type AttachmentHandler struct {
	files *assets.FS
}

// NewAttachmentHandler creates a handler over the asset store.
func NewAttachmentHandler(files *assets.FS) *AttachmentHandler {
	return &AttachmentHandler{files: files}
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
// The stored name is derived from the content hash, so re-uploading the
// same bytes returns the same URL.
//
//	@Summary		Upload an attachment
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	name, err := h.files.Store(data)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to store file"))
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Name: name,
		Size: int64(len(data)),
		URL:  assets.URLFor(name),
	})
}

// ServeFile handles GET /assets/{name}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.files.Read(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}
