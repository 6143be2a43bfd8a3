// Package resolve is WorkPipe's only I/O boundary: it turns source paths
// into parsed files, builds the cross-file import graph, and caches both
// so repeated compiles of a large workspace do not re-read and re-parse
// files whose content has not changed.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileResolver abstracts reading WorkPipe source text by path so the
// compiler core never calls os directly. Tests use MemoryResolver; the
// CLI uses OSResolver.
type FileResolver interface {
	Read(path string) (string, error)
}

// OSResolver reads files from a real filesystem rooted at Root.
type OSResolver struct {
	Root string
}

func (r OSResolver) Read(path string) (string, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(r.Root, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// MemoryResolver serves file contents from an in-memory map, for tests
// and for embedding WorkPipe in tools that already hold source in memory.
type MemoryResolver struct {
	Files map[string]string
}

func NewMemoryResolver() *MemoryResolver { return &MemoryResolver{Files: map[string]string{}} }

func (r *MemoryResolver) Read(path string) (string, error) {
	text, ok := r.Files[path]
	if !ok {
		return "", fmt.Errorf("read %s: no such file", path)
	}
	return text, nil
}

// ResolveImportPath resolves an import's literal path string, written
// relative to the importing file, into a path keyed the same way the
// resolver expects (POSIX-style, cleaned). Exported so other passes
// (pkg/types, pkg/fragment) can map an ast.Import back to the file it
// names without duplicating path-join logic.
func ResolveImportPath(fromPath, importPath string) string {
	dir := filepath.Dir(fromPath)
	joined := filepath.Join(dir, importPath)
	return filepath.ToSlash(filepath.Clean(joined))
}

func resolveImportPath(fromPath, importPath string) string {
	return ResolveImportPath(fromPath, importPath)
}
