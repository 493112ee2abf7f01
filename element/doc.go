// Package element provides the node model shared by every inventory layer:
// Element (named, attributed, ordered children), the key extractor that turns
// an element into its identity, the structural Path that locates inventory
// elements inside a source document, and Store, the keyed ordered collection
// backing the main, base and alterations layers.
//
// Identity:
//
//	Keys maps an element name to its ordered key attributes. Two elements with
//	the same name are the same logical entity when every key attribute has an
//	equal value; a missing attribute is a distinct value from the empty string
//	and value comparison is case-insensitive. Names without key attributes
//	are identified by name alone.
//
// The trailing key attribute is the one a "base" reference must match.
package element
