// Package files enumerates inventory source files in load order and watches
// them for changes.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// OrderedFiles returns the regular files under dir matching the doublestar
// pattern, sorted by path. A missing directory yields no files.
func OrderedFiles(dir, pattern string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("files: invalid pattern %q", pattern)
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("files: stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("files: %q is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("files: glob %q in %q: %w", pattern, dir, err)
	}
	sort.Strings(matches)
	out := make([]string, len(matches))
	for i, match := range matches {
		out[i] = filepath.Join(dir, filepath.FromSlash(match))
	}
	return out, nil
}

// Stamp records the modification state of one source file.
type Stamp struct {
	Path    string
	ModTime time.Time
	Size    int64
	Missing bool
}

// Stamps stats every path in order. Missing files are recorded, not errors.
func Stamps(paths []string) ([]Stamp, error) {
	out := make([]Stamp, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			out = append(out, Stamp{Path: path, Missing: true})
		case err != nil:
			return nil, fmt.Errorf("files: stat %q: %w", path, err)
		default:
			out = append(out, Stamp{Path: path, ModTime: info.ModTime(), Size: info.Size()})
		}
	}
	return out, nil
}

// Changed reports whether two ordered stamp lists differ in membership,
// order, modification time or size.
func Changed(previous, current []Stamp) bool {
	if len(previous) != len(current) {
		return true
	}
	for i := range previous {
		a, b := previous[i], current[i]
		if a.Path != b.Path || a.Missing != b.Missing || a.Size != b.Size || !a.ModTime.Equal(b.ModTime) {
			return true
		}
	}
	return false
}
