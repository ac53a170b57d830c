package api

import (
	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/store"
)

// BoardListResponse wraps the board listing.
type BoardListResponse struct {
	Boards []store.Board `json:"boards" validate:"required"`
}

// ElementListResponse wraps a board's elements in render order.
type ElementListResponse struct {
	Elements []element.Element `json:"elements" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Name string `json:"name" example:"3a7b...e1.png" validate:"required"`
	Size int64  `json:"size" example:"12345" validate:"required"`
	URL  string `json:"url" example:"/assets/3a7b...e1.png" validate:"required"`
}
