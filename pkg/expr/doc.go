// Package expr provides CEL (Common Expression Language) functionality
// for evaluating marker expressions against a directory listing.
//
// It creates CEL environments with custom functions for:
//   - File path operations (pathBase, pathDir, pathExt, pathMatch)
//   - File content checks (fileContains, fileMatches)
//   - YAML and JSON content extraction (yamlPath)
//
// Directory expressions have access to variables:
//   - `files` (list<string>): All file paths found under the directory
//   - `dirs` (list<string>): All directory paths found under the directory
//   - `dir` (string): The directory path being processed
package expr
