package state

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/goliatone/go-inventory/element"
)

// MemoryStore is a minimal in-memory Store intended for tests and examples.
// It keys documents by Ref.Identifier() and versions them with a counter
// ETag.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	seq     int
}

type memoryRecord struct {
	doc  *element.Element
	meta Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (*element.Element, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return record.doc.Clone(), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, doc *element.Element, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	if doc == nil {
		return Meta{}, fmt.Errorf("state: document is nil for %q", ref.Path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.records[key]; ok && meta.ETag != "" && meta.ETag != current.meta.ETag {
		return Meta{}, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, current.meta.ETag)
	}
	s.seq++
	saved := cloneMeta(meta)
	saved.ETag = fmt.Sprintf("m%d", s.seq)
	if saved.UpdatedAt.IsZero() {
		saved.UpdatedAt = time.Now().UTC()
	}
	s.records[key] = memoryRecord{doc: doc.Clone(), meta: saved}
	return cloneMeta(saved), nil
}

func (s *MemoryStore) Delete(_ context.Context, ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context, dir, pattern string) ([]Ref, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("state: invalid pattern %q", pattern)
	}
	dir = filepath.Clean(dir)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Ref
	for key := range s.records {
		rel, err := filepath.Rel(dir, key)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
			out = append(out, Ref{Path: key})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
