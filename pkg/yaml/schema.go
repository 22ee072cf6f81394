package yaml

import (
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator reflects JSON schemas for documents decoded into Go types.
// The root type is expanded in place. Every other struct becomes a "$defs"
// entry named after its package and type, e.g. "TelemetryConfig" for
// telemetry.Config, so types that share a name in different packages do not
// collide.
type SchemaGenerator struct {
	reflector *jsonschema.Reflector
	id        string
	title     string
}

// NewSchemaGenerator creates a [SchemaGenerator] for schemas identified by id.
func NewSchemaGenerator(id, title string) *SchemaGenerator {
	return &SchemaGenerator{
		id:    id,
		title: title,
		reflector: &jsonschema.Reflector{
			ExpandedStruct: true,
			Namer:          definitionName,
		},
	}
}

// ID returns the schema identifier.
func (g *SchemaGenerator) ID() string {
	return g.id
}

// Generate returns the indented JSON schema of v.
func (g *SchemaGenerator) Generate(v any) ([]byte, error) {
	s := g.reflector.Reflect(v)
	s.ID = jsonschema.ID(g.id)
	s.Title = g.title

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return data, nil
}

// Validator generates the schema of v and compiles it.
func (g *SchemaGenerator) Validator(v any) (*Validator, error) {
	data, err := g.Generate(v)
	if err != nil {
		return nil, err
	}

	return NewValidator(g.id, data)
}

func definitionName(t reflect.Type) string {
	pkg := path.Base(t.PkgPath())
	if pkg == "." || pkg == "/" {
		return t.Name()
	}

	r, size := utf8.DecodeRuneInString(pkg)

	return string(unicode.ToUpper(r)) + pkg[size:] + t.Name()
}
