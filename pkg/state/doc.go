// Package state defines persistence contracts for inventory source documents
// and the stores that hold user override files.
//
// Responsibilities:
//   - Store only loads, saves and deletes a single document for a single Ref.
//   - Mutate loads one document, applies a Mutator and saves it back with
//     optimistic concurrency on Meta.ETag.
//   - Upsert and Rewrite edit the elements found at a structural path while
//     leaving the rest of the document untouched.
//
// Data flow:
//
//	Store.Load -> Mutator (Upsert / Rewrite) -> Store.Save
//
// The inventory stays persistence-agnostic: user overrides reach disk only
// through the Store supplied with WithStateStore (FileStore by default).
package state
