// Package inventory resolves hierarchical configuration elements loaded from
// ordered source files.
//
// Elements are named nodes with ordered attributes and children. Each element
// name has a configured list of key attributes; two elements with the same
// name and key values are the same logical entity and the last one loaded
// wins. An element carrying a "base" attribute either overrides the entity it
// names (base equals its own trailing key value) or derives a new entity from
// another one. Overrides are unified immediately, keeping one generation of
// history; derivations are unified lazily on first lookup.
//
// A versioned user layer, loaded after the defaults, is reconciled against
// the current version through an injected Merger; merged results are written
// back to their origin files through a state.Store.
//
// Select runs a predicate over every element of Main, for example
//
//	inv.Select(`name == "part" && attrs.visible == "false"`)
//
// The default engine is expr; NewCELEvaluator and NewJSEvaluator (js_eval
// build tag) are alternatives.
//
// Data flow:
//
//	files -> hydrate codec -> reconcile -> classify -> Main / Base / Alterations
//	Get -> resolve (cache, Main, Alterations + layering.Unify) -> effects
package inventory
