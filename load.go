package inventory

import (
	"context"
	"errors"

	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/internal/files"
	"github.com/goliatone/go-inventory/pkg/activity"
	"github.com/goliatone/go-inventory/pkg/state"
)

type source struct {
	path string
	user bool
	etag string
	doc  *element.Element
}

type writeBack struct {
	ref       state.Ref
	etag      string
	survivors []*element.Element
}

// pass collects the side effects of one load pass, applied after commit.
type pass struct {
	files      []string
	events     []activity.Event
	writeBacks []writeBack
}

// plan is the ordered list of sources a full reload replays. late holds
// files loaded after the user layer was applied.
type plan struct {
	defaults []string
	user     []state.Ref
	late     []string
}

func (p plan) paths() []string {
	out := append([]string(nil), p.defaults...)
	for _, ref := range p.user {
		out = append(out, ref.Path)
	}
	return append(out, p.late...)
}

// Load reads paths incrementally into the current inventory, in order, and
// remembers them for Reload at the same position relative to the user
// layer. The pass is all or nothing.
func (inv *Inventory) Load(ctx context.Context, paths ...string) error {
	inv.mu.Lock()
	scratch := inv.current.clone()
	scratch.dropResolved()
	p := &pass{}
	for _, path := range paths {
		if err := inv.loadFile(ctx, scratch, path, p); err != nil {
			inv.mu.Unlock()
			return err
		}
	}
	if err := scratch.validate(); err != nil {
		inv.mu.Unlock()
		return err
	}
	if inv.userLoaded {
		inv.late = append(inv.late, paths...)
	} else {
		inv.explicit = append(inv.explicit, paths...)
	}
	events := inv.commit(ctx, scratch, p, activity.VerbLoaded)
	inv.mu.Unlock()
	inv.emit(ctx, events)
	return nil
}

// LoadUserOverrides reads the user override layer incrementally.
func (inv *Inventory) LoadUserOverrides(ctx context.Context) error {
	if inv.cfg.userDir == "" {
		return ErrNoUserDir
	}
	inv.mu.Lock()
	refs, err := inv.userRefs(ctx)
	if err != nil {
		inv.mu.Unlock()
		return err
	}
	scratch := inv.current.clone()
	scratch.dropResolved()
	p := &pass{}
	for _, ref := range refs {
		if err := inv.loadUser(ctx, scratch, ref, p); err != nil {
			inv.mu.Unlock()
			return err
		}
	}
	if err := scratch.validate(); err != nil {
		inv.mu.Unlock()
		return err
	}
	inv.userLoaded = true
	events := inv.commit(ctx, scratch, p, activity.VerbLoaded)
	inv.mu.Unlock()
	inv.emit(ctx, events)
	return nil
}

// Reload rebuilds the inventory from scratch by replaying the load plan:
// configured directories, explicitly loaded files, the user layer, then
// files loaded after the user layer. On error the previous state is kept.
func (inv *Inventory) Reload(ctx context.Context) error {
	inv.mu.Lock()
	events, err := inv.reloadLocked(ctx)
	inv.mu.Unlock()
	if err != nil {
		return err
	}
	inv.emit(ctx, events)
	return nil
}

// ReloadIfFilesChanged reloads only when the plan's files were added,
// removed, reordered or modified since the last pass.
func (inv *Inventory) ReloadIfFilesChanged(ctx context.Context) (bool, error) {
	inv.mu.Lock()
	pl, err := inv.buildPlan(ctx)
	if err != nil {
		inv.mu.Unlock()
		return false, err
	}
	stamps, err := files.Stamps(pl.paths())
	if err != nil {
		inv.mu.Unlock()
		return false, err
	}
	if inv.generation > 0 && !files.Changed(inv.stamps, stamps) {
		inv.mu.Unlock()
		return false, nil
	}
	events, err := inv.reloadLocked(ctx)
	inv.mu.Unlock()
	if err != nil {
		return false, err
	}
	inv.emit(ctx, events)
	return true, nil
}

func (inv *Inventory) reloadLocked(ctx context.Context) ([]activity.Event, error) {
	pl, err := inv.buildPlan(ctx)
	if err != nil {
		return nil, err
	}
	scratch := newStores(inv.keys)
	p := &pass{}
	for _, path := range pl.defaults {
		if err := inv.loadFile(ctx, scratch, path, p); err != nil {
			return nil, err
		}
	}
	for _, ref := range pl.user {
		if err := inv.loadUser(ctx, scratch, ref, p); err != nil {
			return nil, err
		}
	}
	for _, path := range pl.late {
		if err := inv.loadFile(ctx, scratch, path, p); err != nil {
			return nil, err
		}
	}
	if err := scratch.validate(); err != nil {
		return nil, err
	}
	inv.userLoaded = inv.cfg.userDir != ""
	verb := activity.VerbReloaded
	if inv.generation == 0 {
		verb = activity.VerbLoaded
	}
	return inv.commit(ctx, scratch, p, verb), nil
}

func (inv *Inventory) buildPlan(ctx context.Context) (plan, error) {
	var pl plan
	for _, dir := range inv.cfg.dirs {
		list, err := inv.cfg.enumerator.Files(dir, inv.cfg.pattern)
		if err != nil {
			return plan{}, &SourceError{Path: dir, Op: "enumerate", Err: err}
		}
		pl.defaults = append(pl.defaults, list...)
	}
	pl.defaults = append(pl.defaults, inv.explicit...)
	refs, err := inv.userRefs(ctx)
	if err != nil {
		return plan{}, err
	}
	pl.user = refs
	pl.late = append(pl.late, inv.late...)
	return pl, nil
}

func (inv *Inventory) userRefs(ctx context.Context) ([]state.Ref, error) {
	if inv.cfg.userDir == "" {
		return nil, nil
	}
	refs, err := inv.cfg.store.List(ctx, inv.cfg.userDir, inv.cfg.pattern)
	if err != nil {
		return nil, &SourceError{Path: inv.cfg.userDir, Op: "enumerate", Err: err}
	}
	return refs, nil
}

func (inv *Inventory) loadFile(ctx context.Context, s *stores, path string, p *pass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := inv.cfg.decoder.DecodeFile(path)
	if err != nil {
		return &SourceError{Path: path, Op: "decode", Err: err}
	}
	return inv.loadSource(s, source{path: path, doc: doc}, p)
}

func (inv *Inventory) loadUser(ctx context.Context, s *stores, ref state.Ref, p *pass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, meta, ok, err := inv.cfg.store.Load(ctx, ref)
	if err != nil {
		return &SourceError{Path: ref.Path, Op: "load", Err: err}
	}
	if !ok {
		return nil
	}
	return inv.loadSource(s, source{path: ref.Path, user: true, etag: meta.ETag, doc: doc}, p)
}

func (inv *Inventory) loadSource(s *stores, src source, p *pass) error {
	p.files = append(p.files, src.path)
	if len(inv.cfg.path.Containers(src.doc)) == 0 {
		inv.cfg.logger.Debug("source has no inventory container", "path", src.path, "want", inv.cfg.path.String())
		return nil
	}
	nodes := inv.cfg.path.Select(src.doc)
	survivors, merged, err := inv.reconcile(s, src, nodes, p)
	if err != nil {
		return withPath(err, src.path, "reconcile")
	}

	kept := make([]*element.Element, 0, len(survivors))
	for _, sv := range survivors {
		kept = append(kept, sv.el)
		if sv.direct {
			s.putMerged(sv.el, src.path)
			continue
		}
		kind, err := s.classify(sv.el, src.path)
		if err != nil {
			return withPath(err, src.path, "load")
		}
		if kind == KindOverride {
			p.events = append(p.events, activity.BuildOverriddenEvent(activity.ElementEventInput{
				Key:    inv.keys.Of(sv.el).String(),
				Source: src.path,
			}))
		}
	}
	inv.cfg.logger.Debug("loaded source", "path", src.path, "elements", len(kept), "user", src.user, "merged", merged)

	if merged && src.user {
		p.writeBacks = append(p.writeBacks, writeBack{
			ref:       state.Ref{Path: src.path},
			etag:      src.etag,
			survivors: kept,
		})
	}
	return nil
}

// commit swaps in the scratch state, performs write-backs and returns the
// events to emit once the lock is released. Callers hold inv.mu.
func (inv *Inventory) commit(ctx context.Context, s *stores, p *pass, verb string) []activity.Event {
	inv.current = s
	inv.generation++
	inv.unifier.Reset()

	for _, wb := range p.writeBacks {
		_, _, err := state.Mutate(ctx, inv.cfg.store, wb.ref, state.Meta{ETag: wb.etag}, func(doc *element.Element) (*element.Element, error) {
			return state.Rewrite(doc, inv.cfg.path, wb.survivors)
		})
		if err != nil {
			inv.cfg.logger.Warn("write-back failed", "path", wb.ref.Path, "err", err)
			continue
		}
		inv.cfg.logger.Info("rewrote reconciled overrides", "path", wb.ref.Path, "elements", len(wb.survivors))
	}
	inv.refreshStamps(ctx)

	inv.cfg.logger.Info("inventory loaded",
		"files", len(p.files),
		"elements", s.main.Len(),
		"alterations", s.alterations.Len(),
		"generation", inv.generation,
	)

	input := activity.InventoryEventInput{
		Root:       inv.cfg.path.String(),
		Files:      p.files,
		Elements:   s.main.Len(),
		Generation: inv.generation,
	}
	events := append([]activity.Event(nil), p.events...)
	if verb == activity.VerbReloaded {
		events = append(events, activity.BuildReloadedEvent(input))
	} else {
		events = append(events, activity.BuildLoadedEvent(input))
	}
	return events
}

// refreshStamps records the current file stamps of the load plan. Callers
// hold inv.mu.
func (inv *Inventory) refreshStamps(ctx context.Context) {
	pl, err := inv.buildPlan(ctx)
	if err == nil {
		var stamps []files.Stamp
		if stamps, err = files.Stamps(pl.paths()); err == nil {
			inv.stamps = stamps
			return
		}
	}
	inv.cfg.logger.Warn("cannot stamp source files", "err", err)
}

func (inv *Inventory) emit(ctx context.Context, events []activity.Event) {
	err := inv.emitter.EmitAll(ctx, events)
	if err == nil {
		return
	}
	for _, failure := range unwrapJoined(err) {
		var delivery *activity.DeliveryError
		if errors.As(failure, &delivery) {
			inv.cfg.logger.Warn("activity hook failed", "verb", delivery.Verb, "object", delivery.ObjectID, "err", delivery.Err)
			continue
		}
		inv.cfg.logger.Warn("activity hook failed", "err", failure)
	}
}

// unwrapJoined flattens errors.Join trees into their leaves.
func unwrapJoined(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, inner := range joined.Unwrap() {
		out = append(out, unwrapJoined(inner)...)
	}
	return out
}
