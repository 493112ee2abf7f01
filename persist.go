package inventory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/pkg/activity"
	"github.com/goliatone/go-inventory/pkg/state"
)

// PersistOverride writes el to its user override file and applies it to
// the inventory. An existing file keeps its other content; the matching
// element (and descriptor, for named variants) is replaced. Re-persisting
// an override to the same file replaces the previous override of the key;
// overriding a key another file already overrode is an OVERRIDE_CHAIN
// error. It returns ErrNotLoaded before the first load pass.
func (inv *Inventory) PersistOverride(ctx context.Context, el *element.Element) error {
	if el == nil {
		return errors.New("inventory: element is required")
	}
	if inv.cfg.userDir == "" {
		return ErrNoUserDir
	}
	if len(inv.keys.For(el.Name)) == 0 {
		return fmt.Errorf("%w: %s", ErrNoKeyAttributes, el.Name)
	}
	el = el.Clone()
	if inv.cfg.version != 0 && !el.HasAttr(VersionAttr) {
		el.SetAttr(VersionAttr, strconv.Itoa(inv.cfg.version))
	}

	inv.mu.Lock()
	if inv.generation == 0 {
		inv.mu.Unlock()
		return ErrNotLoaded
	}
	scratch := inv.current.clone()
	descriptor := inv.findDescriptor(scratch, el)
	stem, err := inv.overrideFileStem(el, descriptor)
	if err != nil {
		inv.mu.Unlock()
		return err
	}
	ref := state.Ref{Path: inv.overridePath(stem)}

	key := inv.keys.Of(el)
	scratch.withdrawOverride(key, ref.Path)
	if _, err := scratch.classify(el, ref.Path); err != nil {
		inv.mu.Unlock()
		return withPath(err, ref.Path, "persist")
	}
	if err := scratch.validate(); err != nil {
		inv.mu.Unlock()
		return withPath(err, ref.Path, "persist")
	}

	written := []*element.Element{el}
	if descriptor != nil {
		written = append(written, descriptor)
	}
	_, _, err = state.Mutate(ctx, inv.cfg.store, ref, state.Meta{}, func(doc *element.Element) (*element.Element, error) {
		if doc != nil && len(inv.cfg.path.Containers(doc)) == 0 {
			doc = nil
		}
		return state.Upsert(doc, inv.cfg.path, inv.keys, written...)
	})
	if err != nil {
		inv.mu.Unlock()
		return &SourceError{Path: ref.Path, Op: "persist", Err: err}
	}

	inv.current = scratch
	inv.generation++
	inv.unifier.Reset()
	inv.refreshStamps(ctx)
	inv.cfg.logger.Info("persisted override", "key", key.String(), "path", ref.Path)
	event := activity.BuildPersistedEvent(activity.ElementEventInput{
		Key:     key.String(),
		Source:  ref.Path,
		Version: el.AttrOr(VersionAttr, ""),
	})
	inv.mu.Unlock()
	inv.emit(ctx, []activity.Event{event})
	return nil
}

// DeleteUserOverrides removes user override files, keeping named-variant
// files (whose name has at least two non-empty parts around '_'). The in-memory inventory is unchanged
// until the next Reload. It returns the deleted paths.
func (inv *Inventory) DeleteUserOverrides(ctx context.Context) ([]string, error) {
	if inv.cfg.userDir == "" {
		return nil, ErrNoUserDir
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	refs, err := inv.userRefs(ctx)
	if err != nil {
		return nil, err
	}
	var deleted []string
	for _, ref := range refs {
		if isVariantFile(ref.Path) {
			continue
		}
		if err := inv.cfg.store.Delete(ctx, ref); err != nil {
			return deleted, &SourceError{Path: ref.Path, Op: "delete", Err: err}
		}
		deleted = append(deleted, ref.Path)
	}
	inv.cfg.logger.Info("deleted user overrides", "dir", inv.cfg.userDir, "files", len(deleted))
	return deleted, nil
}

func isVariantFile(path string) bool {
	parts := strings.FieldsFunc(filepath.Base(path), func(r rune) bool { return r == fallbackMarker })
	return len(parts) > 1
}
