// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Dagaz board tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dagaz/internal/assets"
	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/element"
)

// Server wraps the MCP server with Dagaz tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *boardservice.Service
	files *assets.FS
}

// New creates a new MCP server with all Dagaz tools registered.
func New(svc *boardservice.Service, files *assets.FS) *Server {
	s := &Server{svc: svc, files: files}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List all whiteboards, most recently active first."),
	), s.listBoards)

	s.mcp.AddTool(mcp.NewTool("read_board",
		mcp.WithDescription("Read all elements of a board as JSON, in render order."),
		mcp.WithString("board_id", mcp.Required(), mcp.Description("Board id")),
	), s.readBoard)

	s.mcp.AddTool(mcp.NewTool("create_element",
		mcp.WithDescription("Create an element on a board. The element JSON MUST follow "+
			"the canonical element format (kind, geometry, style attributes). Read the "+
			"contract first via the get_element_contract tool or the dagaz://element-format "+
			"resource."),
		mcp.WithString("board_id", mcp.Required(), mcp.Description("Board id to draw on")),
		mcp.WithString("element", mcp.Required(), mcp.Description("Element as a JSON object following the Dagaz element format contract")),
	), s.createElement)

	s.mcp.AddTool(mcp.NewTool("update_element",
		mcp.WithDescription("Apply partial attributes to an existing element. "+
			"Soft delete is a patch with {\"deleted\": true}."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Element id")),
		mcp.WithString("patch", mcp.Required(), mcp.Description("Attributes to change, as a JSON object")),
	), s.updateElement)

	s.mcp.AddTool(mcp.NewTool("get_element_contract",
		mcp.WithDescription("Returns the canonical Dagaz element format contract. "+
			"Call this before creating or updating elements to ensure correct structure."),
	), s.getElementContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Upload an image from an HTTP(S) URL or a base64 data URI "+
			"into the asset store. Returns the asset URL to reference from an image element."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or data URI of the image")),
	), s.uploadAsset)

	// Resource: element format contract.
	s.mcp.AddResource(
		mcp.NewResource("dagaz://element-format", "Element Format Contract",
			mcp.WithResourceDescription("Canonical element wire format that all board elements follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readElementFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boards, err := s.svc.ListBoards(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(boards, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardID, err := req.RequireString("board_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	elements, err := s.svc.Fetch(ctx, boardID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(elements, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardID, err := req.RequireString("board_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("element")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var in element.Inbound
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid element JSON: %v", err)), nil
	}
	e := in.Resolve()
	e.BoardID = boardID
	if e.AuthorID == "" {
		e.AuthorID = "mcp"
	}
	if err := e.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stored, err := s.svc.Insert(ctx, e)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", stored.ID)), nil
}

func (s *Server) updateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("patch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var p element.Patch
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid patch JSON: %v", err)), nil
	}

	if _, err := s.svc.Update(ctx, id, p); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", id)), nil
}

func (s *Server) getElementContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ElementFormatContract), nil
}

func (s *Server) readElementFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "dagaz://element-format",
			MIMEType: "text/markdown",
			Text:     ElementFormatContract,
		},
	}, nil
}
