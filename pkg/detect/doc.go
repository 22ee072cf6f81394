// Package detect infers what kind of project a directory holds.
//
// Detection lists the directory to a bounded depth and evaluates a set of
// [Marker]s against the listing. Each marker is a CEL expression which, when
// true, adds a language, framework, cloud provider or maturity signal to the
// resulting [ProjectContext].
package detect
