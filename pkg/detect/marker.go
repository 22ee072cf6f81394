package detect

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/macropower/rulecat/pkg/expr"
)

// Kind is the kind of signal a [Marker] contributes.
type Kind string

const (
	KindLanguage  Kind = "language"
	KindFramework Kind = "framework"
	KindCloud     Kind = "cloud"
	KindMaturity  Kind = "maturity"
)

var (
	ErrUnknownKind  = errors.New("unknown marker kind")
	ErrEmptyName    = errors.New("marker name is empty")
	ErrNotCompiled  = errors.New("marker missing a match expression")
	ErrNotBoolValue = errors.New("marker expression did not return a boolean")

	AllKinds = []Kind{KindLanguage, KindFramework, KindCloud, KindMaturity}
)

var directoryEnv = sync.OnceValues(expr.NewDirectoryEnvironment)

// Marker uses a CEL expression to determine whether a directory contains a
// technology or maturity signal.
//
// CEL expressions have access to variables:
//   - `files` (list<string>): All file paths found under the directory
//   - `dirs` (list<string>): All directory paths found under the directory
//   - `dir` (string): The directory path being processed
//
// CEL expressions must return a boolean value:
//   - files.exists(f, pathBase(f) == "go.mod") - true if a Go module exists
//   - files.exists(f, pathBase(f) == "package.json" && yamlPath(f, "$.dependencies.react") != null) - true if React is a dependency
//   - dirs.exists(d, pathMatch("/srv/app/**/terraform", d)) - true if a terraform directory exists
//
// CEL path and content functions available:
//   - pathBase(string), pathDir(string), pathExt(string)
//   - pathMatch(glob, path): doublestar glob match
//   - fileContains(file, substr), fileMatches(file, regex)
//   - yamlPath(file, path): Reads a YAML or JSON file and extracts the value at path
type Marker struct {
	program cel.Program

	// Kind is one of language, framework, cloud or maturity.
	Kind Kind `json:"kind" jsonschema:"title=Kind,enum=language,enum=framework,enum=cloud,enum=maturity"`
	// Name is added to the detected set for Kind when the marker matches.
	Name string `json:"name" jsonschema:"title=Name"`
	// Match is a CEL expression evaluated against the directory listing.
	Match string `json:"match" jsonschema:"title=Match Expression"`
}

// NewMarker creates a new [Marker] and compiles its match expression.
func NewMarker(kind Kind, name, match string) (*Marker, error) {
	m := &Marker{
		Kind:  kind,
		Name:  name,
		Match: match,
	}
	if err := m.Compile(); err != nil {
		return nil, err
	}

	return m, nil
}

// MustNewMarker is like [NewMarker] but panics on error.
func MustNewMarker(kind Kind, name, match string) *Marker {
	m, err := NewMarker(kind, name, match)
	if err != nil {
		panic(err)
	}

	return m
}

// Compile validates the marker and compiles its match expression into a CEL
// program. It is a no-op for compiled markers.
func (m *Marker) Compile() error {
	if m.program != nil {
		return nil
	}

	if !slices.Contains(AllKinds, m.Kind) {
		return fmt.Errorf("marker %q: %w: %q", m.Name, ErrUnknownKind, m.Kind)
	}

	if m.Name == "" {
		return fmt.Errorf("marker %q: %w", m.Match, ErrEmptyName)
	}

	env, err := directoryEnv()
	if err != nil {
		return fmt.Errorf("create CEL environment: %w", err)
	}

	program, err := env.Compile(m.Match)
	if err != nil {
		return fmt.Errorf("marker %q: %w", m.Name, err)
	}

	m.program = program

	return nil
}

// MatchFiles evaluates the marker against a directory listing.
func (m *Marker) MatchFiles(dirPath string, files, dirs []string) (bool, error) {
	if m.program == nil {
		return false, ErrNotCompiled
	}

	result, _, err := m.program.Eval(map[string]any{
		"files": files,
		"dirs":  dirs,
		"dir":   dirPath,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %s marker %q: %w", m.Kind, m.Name, err)
	}

	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%s marker %q: %w", m.Kind, m.Name, ErrNotBoolValue)
	}

	return b, nil
}

func (m *Marker) String() string {
	return fmt.Sprintf("%s/%s", m.Kind, m.Name)
}
