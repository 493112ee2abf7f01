package state

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/internal/files"
	"github.com/goliatone/go-inventory/internal/hydrate"
)

// FileStore persists documents as files, choosing the codec from each
// path's extension. ETags are blake3 digests of the file contents.
type FileStore struct {
	decoder *hydrate.Decoder
	mu      sync.Mutex
}

// NewFileStore builds a FileStore; a nil decoder uses hydrate defaults.
func NewFileStore(decoder *hydrate.Decoder) *FileStore {
	if decoder == nil {
		decoder = hydrate.NewDecoder()
	}
	return &FileStore{decoder: decoder}
}

func (s *FileStore) Load(ctx context.Context, ref Ref) (*element.Element, Meta, bool, error) {
	path, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Meta{}, false, err
	}
	raw, info, err := readFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, err
	}
	doc, err := s.decoder.Decode(hydrate.Context{Path: path}, raw)
	if err != nil {
		return nil, Meta{}, false, err
	}
	return doc, Meta{ETag: digest(raw), UpdatedAt: info.ModTime().UTC()}, true, nil
}

func (s *FileStore) Save(ctx context.Context, ref Ref, doc *element.Element, meta Meta) (Meta, error) {
	path, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	raw, err := s.decoder.Encode(hydrate.Context{Path: path}, doc)
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if meta.ETag != "" {
		current, _, err := readFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Meta{}, err
		case digest(current) != meta.ETag:
			return Meta{}, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, digest(current))
		}
	}
	if err := writeAtomic(path, raw); err != nil {
		return Meta{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Meta{}, err
	}
	saved := cloneMeta(meta)
	saved.ETag = digest(raw)
	saved.UpdatedAt = info.ModTime().UTC()
	return saved, nil
}

func (s *FileStore) Delete(ctx context.Context, ref Ref) error {
	path, err := ref.Identifier()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, dir, pattern string) ([]Ref, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths, err := files.OrderedFiles(dir, pattern)
	if err != nil {
		return nil, err
	}
	refs := make([]Ref, len(paths))
	for i, path := range paths {
		refs[i] = Ref{Path: path}
	}
	return refs, nil
}

func readFile(path string) ([]byte, fs.FileInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	return raw, info, nil
}

func writeAtomic(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close() //nolint:errcheck // write error wins
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func digest(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
