package content

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/markdown"
)

// Source is one tier of content resolution.
type Source[T any] interface {
	// Name identifies the source in logs.
	Name() string
	// Load returns the records, or ErrNoContent when the source is empty.
	Load(ctx context.Context) ([]T, error)
}

// StoreSource reads a content type from the key-value store. A missing key
// or an empty array counts as no content.
type StoreSource[T any] struct {
	repo *Repository[T]
}

// NewStoreSource wraps repo.
func NewStoreSource[T any](repo *Repository[T]) *StoreSource[T] {
	return &StoreSource[T]{repo: repo}
}

func (s *StoreSource[T]) Name() string { return "store" }

func (s *StoreSource[T]) Load(ctx context.Context) ([]T, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoContent
	}
	return recs, nil
}

// MarkdownSource reads a content type from <root>/<kind.Name>/*.md. Parsed
// records are cached until Invalidate is called.
type MarkdownSource[T any] struct {
	kind Kind[T]
	dir  string

	mu     sync.Mutex
	cached []T
	valid  bool
}

// NewMarkdownSource returns a source for kind under root.
func NewMarkdownSource[T any](kind Kind[T], root string) *MarkdownSource[T] {
	return &MarkdownSource[T]{
		kind: kind,
		dir:  filepath.Join(root, kind.Name),
	}
}

func (s *MarkdownSource[T]) Name() string { return "markdown" }

// Dir returns the directory this source scans.
func (s *MarkdownSource[T]) Dir() string { return s.dir }

func (s *MarkdownSource[T]) Load(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid {
		recs, err := s.Read()
		if err != nil {
			return nil, err
		}
		s.cached = recs
		s.valid = true
	}
	if len(s.cached) == 0 {
		return nil, ErrNoContent
	}
	out := make([]T, len(s.cached))
	copy(out, s.cached)
	return out, nil
}

// Read parses the directory without touching the cache.
func (s *MarkdownSource[T]) Read() ([]T, error) {
	files, err := markdown.LoadDir[T](s.dir)
	if err != nil {
		return nil, err
	}
	recs := make([]T, 0, len(files))
	for _, f := range files {
		recs = append(recs, s.kind.FromMarkdown(f.Meta, f.Key, f.Body))
	}
	return recs, nil
}

// Invalidate drops the cached records.
func (s *MarkdownSource[T]) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.valid = false
	s.mu.Unlock()
}
