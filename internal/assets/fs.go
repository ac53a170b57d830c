// Package assets implements the on-disk asset store for uploaded images
// and rendered thumbnails, plus a watcher that refreshes image elements
// when their backing file changes.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/dagaz/internal/collab"
)

// URLPrefix is the public path assets are served under.
const URLPrefix = "/assets/"

// FS stores assets content-addressed under a root directory.
type FS struct {
	root string
}

var _ collab.Uploader = (*FS)(nil)

// NewFS creates an asset store rooted at the given directory. The
// directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("assets: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("assets: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assets: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute asset directory.
func (f *FS) Root() string { return f.root }

// Store writes the bytes under a content-addressed name and returns the
// public URL. Storing identical bytes twice yields the same URL.
func (f *FS) Store(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:]) + extFor(data)

	abs, err := f.safePath(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err == nil {
		return URLPrefix + name, nil
	}

	// Atomic write: tmp file, fsync, rename.
	tmp, err := os.CreateTemp(f.root, ".dagaz-tmp-*")
	if err != nil {
		return "", fmt.Errorf("assets: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("assets: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("assets: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("assets: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("assets: rename: %w", err)
	}
	success = true
	return URLPrefix + name, nil
}

// Upload satisfies the engine's thumbnail/storage contract.
func (f *FS) Upload(_ context.Context, data []byte) (string, error) {
	return f.Store(data)
}

// Read returns the bytes of a stored asset by name.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("assets: read %s: %w", name, err)
	}
	return data, nil
}

// URLFor returns the public URL for a stored file name.
func URLFor(name string) string { return URLPrefix + name }

// NameFromURL extracts the asset name from a public URL, or "" when the
// URL does not point into the asset store.
func NameFromURL(url string) string {
	if !strings.HasPrefix(url, URLPrefix) {
		return ""
	}
	name := strings.TrimPrefix(url, URLPrefix)
	if name == "" || strings.Contains(name, "/") {
		return ""
	}
	return name
}

// safePath resolves a name against the asset root and rejects any result
// that escapes it.
func (f *FS) safePath(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned == "." || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("assets: invalid name: %s", name)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("assets: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("assets: path escapes asset root: %s", name)
	}
	return abs, nil
}

func extFor(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
