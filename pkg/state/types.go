package state

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goliatone/go-inventory/element"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one persisted source document.
type Ref struct {
	Path string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	ETag      string            `json:"etag,omitempty"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Store loads, saves and deletes one document for a single reference.
// Save rejects a non-empty meta.ETag that does not match the stored one with
// ErrETagMismatch. List returns the references under dir whose relative path
// matches the doublestar pattern, ordered by path.
type Store interface {
	Load(ctx context.Context, ref Ref) (doc *element.Element, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, doc *element.Element, meta Meta) (Meta, error)
	Delete(ctx context.Context, ref Ref) error
	List(ctx context.Context, dir, pattern string) ([]Ref, error)
}

// Mutator edits a loaded document. A nil doc means the document does not
// exist yet; the returned document is saved.
type Mutator func(doc *element.Element) (*element.Element, error)

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	if r.Path == "" {
		return "", fmt.Errorf("state: ref path is required")
	}
	return filepath.Clean(r.Path), nil
}

// Mutate loads one document, applies fn, then saves. meta.ETag, when set,
// must match the stored document.
func Mutate(ctx context.Context, store Store, ref Ref, meta Meta, fn Mutator) (*element.Element, Meta, error) {
	if store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, Meta{}, err
	}

	doc, loadedMeta, ok, err := store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q: %w", ref.Path, err)
	}
	if !ok {
		doc = nil
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	next, err := fn(doc)
	if err != nil {
		return nil, loadedMeta, err
	}
	if next == nil {
		return nil, loadedMeta, fmt.Errorf("state: mutator for %q returned no document", ref.Path)
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	savedMeta, err := store.Save(ctx, ref, next, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q: %w", ref.Path, err)
	}
	return next, savedMeta, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
