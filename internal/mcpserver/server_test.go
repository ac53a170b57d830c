package mcpserver

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/element"
	"github.com/starford/dagaz/internal/realtime"
	"github.com/starford/dagaz/internal/testutil"
)

func testServer(t *testing.T) (*Server, *boardservice.Service) {
	t.Helper()

	db := testutil.TestDB(t)
	hub := realtime.NewHub(10 * time.Millisecond)
	t.Cleanup(hub.Close)
	_, files := testutil.TestAssets(t)

	svc := boardservice.NewService(db, hub, nil, nil)
	srv := New(svc, files)
	return srv, svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_boards":
		result, err = srv.listBoards(ctx, req)
	case "read_board":
		result, err = srv.readBoard(ctx, req)
	case "create_element":
		result, err = srv.createElement(ctx, req)
	case "update_element":
		result, err = srv.updateElement(ctx, req)
	case "upload_asset":
		result, err = srv.uploadAsset(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadBoard(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_element", map[string]interface{}{
		"board_id": "b1",
		"element":  `{"kind": "rectangle", "x": 0, "y": 0, "w": 100, "h": 50, "opacity": 1}`,
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "created: ") {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_board", map[string]interface{}{"board_id": "b1"})
	text = resultText(r)
	if !strings.Contains(text, `"kind": "rectangle"`) {
		t.Errorf("read result = %q", text)
	}
	if !strings.Contains(text, `"author_id": "mcp"`) {
		t.Errorf("author not defaulted: %q", text)
	}
}

func TestCreateElementInvalidJSON(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_element", map[string]interface{}{
		"board_id": "b1",
		"element":  `{"kind": `,
	})
	if !r.IsError {
		t.Error("expected error for broken JSON")
	}
}

func TestCreateElementUnknownKind(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_element", map[string]interface{}{
		"board_id": "b1",
		"element":  `{"kind": "blob", "opacity": 1}`,
	})
	if !r.IsError {
		t.Error("expected error for unknown kind")
	}
}

func TestUpdateElement(t *testing.T) {
	srv, svc := testServer(t)

	stored, err := svc.Insert(context.Background(), element.Element{
		BoardID: "b1", Kind: element.KindRectangle, W: 10, H: 10, Opacity: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "update_element", map[string]interface{}{
		"id":    stored.ID,
		"patch": `{"x": 42}`,
	})
	if r.IsError {
		t.Fatalf("update error: %s", resultText(r))
	}

	got, err := svc.GetElement(context.Background(), stored.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.X != 42 {
		t.Errorf("x = %v, want 42", got.X)
	}
}

func TestUpdateElementMissing(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "update_element", map[string]interface{}{
		"id":    "ghost",
		"patch": `{"x": 1}`,
	})
	if !r.IsError {
		t.Error("expected error for missing element")
	}
}

func TestListBoards(t *testing.T) {
	srv, _ := testServer(t)

	_ = callTool(t, srv, "create_element", map[string]interface{}{
		"board_id": "b1",
		"element":  `{"kind": "line", "w": 10, "opacity": 1}`,
	})

	r := callTool(t, srv, "list_boards", map[string]interface{}{})
	if !strings.Contains(resultText(r), "b1") {
		t.Errorf("list = %q", resultText(r))
	}
}

func TestUploadAssetDataURI(t *testing.T) {
	srv, _ := testServer(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	r := callTool(t, srv, "upload_asset", map[string]interface{}{"url": uri})
	if r.IsError {
		t.Fatalf("upload error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"/assets/`) {
		t.Errorf("upload result = %q", text)
	}
	if !strings.Contains(text, `"imageElement"`) {
		t.Errorf("upload result missing element snippet: %q", text)
	}
}

func TestUploadAssetRejectsUnsupportedContent(t *testing.T) {
	srv, _ := testServer(t)

	uri := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))
	r := callTool(t, srv, "upload_asset", map[string]interface{}{"url": uri})
	if !r.IsError {
		t.Error("expected error for non-image content")
	}
}

func TestUploadAssetBlockedHost(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "upload_asset", map[string]interface{}{
		"url": "http://169.254.169.254/latest/meta-data",
	})
	if !r.IsError {
		t.Error("expected error for metadata host")
	}
}
