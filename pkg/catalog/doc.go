// Package catalog holds the static registry of rule documents that can be
// selected for a request.
//
// A [Catalog] is built once from a YAML manifest, either the one embedded in
// the binary or a file supplied through configuration, and is never mutated
// afterward.
package catalog
