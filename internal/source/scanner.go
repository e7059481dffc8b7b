// Package source discovers documents to ingest.
package source

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/docfuse/docfuse/internal/chunk"
	"github.com/docfuse/docfuse/internal/errors"
)

// DefaultMaxFileSize skips files larger than 10 MiB; they are almost
// never prose documents.
const DefaultMaxFileSize = 10 * 1024 * 1024

// indexableExtensions lists the plain-text document types docfuse ingests.
var indexableExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".rst":      true,
	".adoc":     true,
}

// Scanner walks source directories and loads indexable documents.
type Scanner struct {
	maxFileSize int64
}

// NewScanner creates a scanner. maxFileSize 0 selects the default.
func NewScanner(maxFileSize int64) *Scanner {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Scanner{maxFileSize: maxFileSize}
}

// Scan walks every source directory and returns the loaded documents.
// Unreadable or binary files are skipped with a warning; an unreadable
// root is an error.
func (s *Scanner) Scan(ctx context.Context, roots []string) ([]chunk.Document, error) {
	var docs []chunk.Document

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.ValidationError("invalid source path "+root, err)
		}
		info, err := os.Stat(absRoot)
		if err != nil {
			return nil, errors.ValidationError("cannot read source "+absRoot, err)
		}

		if !info.IsDir() {
			doc, ok := s.loadDocument(absRoot)
			if ok {
				docs = append(docs, doc)
			}
			continue
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				slog.Warn("skipping unreadable path",
					slog.String("path", path),
					slog.String("error", walkErr.Error()))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				// Hidden directories hold VCS state and tooling caches.
				// The root itself is exempt so a hidden root still scans.
				if path != absRoot && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}
			if !indexableExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			if doc, ok := s.loadDocument(path); ok {
				docs = append(docs, doc)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return docs, nil
}

// loadDocument reads one file into a Document. Returns false for files
// that should be skipped.
func (s *Scanner) loadDocument(path string) (chunk.Document, bool) {
	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("skipping unreadable file",
			slog.String("path", path), slog.String("error", err.Error()))
		return chunk.Document{}, false
	}
	if info.Size() > s.maxFileSize {
		slog.Warn("skipping oversized file",
			slog.String("path", path), slog.Int64("size", info.Size()))
		return chunk.Document{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("skipping unreadable file",
			slog.String("path", path), slog.String("error", err.Error()))
		return chunk.Document{}, false
	}
	if !utf8.Valid(data) {
		slog.Warn("skipping non-UTF-8 file", slog.String("path", path))
		return chunk.Document{}, false
	}

	sourceType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return chunk.NewDocument(path, sourceType, string(data)), true
}
