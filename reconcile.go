package inventory

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/pkg/activity"
)

// Merger adapts an element written for an older configuration version to
// the current master element. suffix carries the named-variant suffix when
// the master was found only after stripping it. A nil result drops old.
type Merger interface {
	Merge(master, old *element.Element, target MergeTarget, suffix string) (*element.Element, error)
}

// MergerFunc adapts a function to Merger.
type MergerFunc func(master, old *element.Element, target MergeTarget, suffix string) (*element.Element, error)

// Merge implements Merger.
func (f MergerFunc) Merge(master, old *element.Element, target MergeTarget, suffix string) (*element.Element, error) {
	if f == nil {
		return old, nil
	}
	return f(master, old, target, suffix)
}

// MergeTarget gives a Merger read access to the inventory being loaded.
type MergeTarget interface {
	Lookup(key element.Key) (*element.Element, bool)
	Keys() element.Keys
	Version() int
}

type mergeTarget struct {
	s       *stores
	version int
}

func (t mergeTarget) Lookup(key element.Key) (*element.Element, bool) { return t.s.lookup(key) }
func (t mergeTarget) Keys() element.Keys                              { return t.s.keys }
func (t mergeTarget) Version() int                                    { return t.version }

type survivor struct {
	el     *element.Element
	direct bool
}

// reconcile brings one source's elements up to the current version. It
// returns the elements to load and whether the merger changed anything.
func (inv *Inventory) reconcile(s *stores, src source, nodes []*element.Element, p *pass) ([]survivor, bool, error) {
	current := inv.cfg.version
	if current == 0 {
		return dedupe(nodes, nil), false, nil
	}
	fallback := siblingVersion(nodes)
	target := mergeTarget{s: s, version: current}
	currentText := strconv.Itoa(current)

	var out []survivor
	merged := false
	for _, node := range nodes {
		version, err := effectiveVersion(node, src.user, current, fallback)
		if err != nil {
			return nil, false, err
		}
		if version == current || inv.cfg.merger == nil || node.HasAttr(BaseAttr) {
			out = append(out, survivor{el: node})
			continue
		}
		if inv.isDescriptor(node) {
			if src.user {
				node = node.WithAttr(VersionAttr, currentText)
			}
			out = append(out, survivor{el: node})
			merged = true
			continue
		}

		key := inv.keys.Of(node)
		master, ok := s.lookup(key)
		suffix := ""
		if !ok {
			if stripped, sfx, stripOK := StripVariant(key, inv.keys.For(node.Name)); stripOK {
				master, ok = s.lookup(stripped)
				suffix = sfx
			}
		}
		if !ok {
			inv.cfg.logger.Warn("dropping out-of-version element", "key", key.String(), "path", src.path, "version", version)
			p.events = append(p.events, activity.BuildDroppedEvent(activity.ElementEventInput{
				Key:     key.String(),
				Source:  src.path,
				Version: strconv.Itoa(version),
				Reason:  "no current element",
			}))
			continue
		}

		result, err := inv.cfg.merger.Merge(master, node, target, suffix)
		if err != nil {
			return nil, false, err
		}
		merged = true
		if result == nil {
			inv.cfg.logger.Warn("merger dropped element", "key", key.String(), "path", src.path)
			p.events = append(p.events, activity.BuildDroppedEvent(activity.ElementEventInput{
				Key:     key.String(),
				Source:  src.path,
				Version: strconv.Itoa(version),
				Reason:  "merger discarded",
			}))
			continue
		}
		if src.user {
			result = result.WithAttr(VersionAttr, currentText)
		}
		direct := result.AttrOr(VersionAttr, "") != currentText
		out = append(out, survivor{el: result, direct: direct})
		inv.cfg.logger.Debug("merged out-of-version element", "key", key.String(), "path", src.path, "suffix", suffix)
		p.events = append(p.events, activity.BuildMergedEvent(activity.ElementEventInput{
			Key:     key.String(),
			Source:  src.path,
			Version: currentText,
			Metadata: map[string]any{
				"from_version": version,
				"suffix":       suffix,
			},
		}))
	}
	return dedupeSurvivors(out), merged, nil
}

func (inv *Inventory) isDescriptor(el *element.Element) bool {
	return inv.cfg.descriptor.Name != "" && el.Name == inv.cfg.descriptor.Name
}

// effectiveVersion reads the version attribute. User sources default to 0,
// defaults to the current version; 0 falls back to the first versioned
// sibling.
func effectiveVersion(el *element.Element, user bool, current, fallback int) (int, error) {
	raw, ok := el.Attr(VersionAttr)
	if !ok {
		if !user {
			return current, nil
		}
		return fallback, nil
	}
	version, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, newConfigError(ErrCodeMalformedVersion, element.Key{Name: el.Name}, "version %q of %s is not an integer", raw, el)
	}
	if version == 0 {
		return fallback, nil
	}
	return version, nil
}

func siblingVersion(nodes []*element.Element) int {
	for _, node := range nodes {
		raw, ok := node.Attr(VersionAttr)
		if !ok {
			continue
		}
		if version, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && version != 0 {
			return version
		}
	}
	return 0
}

func dedupe(nodes []*element.Element, out []survivor) []survivor {
	for _, node := range nodes {
		out = append(out, survivor{el: node})
	}
	return dedupeSurvivors(out)
}

func dedupeSurvivors(in []survivor) []survivor {
	out := make([]survivor, 0, len(in))
	for _, candidate := range in {
		duplicate := false
		for _, kept := range out {
			if kept.el.Equal(candidate.el) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, candidate)
		}
	}
	return out
}
