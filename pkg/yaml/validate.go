package yaml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator checks decoded YAML documents against a compiled JSON schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schemaData, registered under url so that relative
// "$ref" values resolve against it.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	var doc any

	err := json.Unmarshal(schemaData, &doc)
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()

	err = c.AddResource(url, doc)
	if err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: s}, nil
}

func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate checks data, which must be made of the generic values a YAML or
// JSON decoder produces. Violations are returned as [*Error] values pointing
// at the deepest failing location.
func (v *Validator) Validate(data any) error {
	err := v.schema.Validate(data)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	return &Error{
		Err:  verr,
		Path: instancePath(deepestLocation(verr)),
	}
}

// ValidateDocument decodes the first document of data and validates it. Data
// without a document is valid. Errors carry data as their source.
func (v *Validator) ValidateDocument(data []byte) error {
	var doc any

	err := NewDecoder(bytes.NewReader(data)).Decode(&doc)
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err == nil {
		err = v.Validate(doc)
	}

	return NewErrorWrapper(WithSource(data)).Wrap(err)
}

func deepestLocation(err *jsonschema.ValidationError) []string {
	loc := err.InstanceLocation
	for _, cause := range err.Causes {
		if l := deepestLocation(cause); len(l) > len(loc) {
			loc = l
		}
	}

	return loc
}

// instancePath converts a JSON pointer, split into its tokens, into a
// [yaml.Path]. Tokens that parse as unsigned integers are sequence indexes.
func instancePath(loc []string) *yaml.Path {
	b := NewPathBuilder().Root()

	for _, tok := range loc {
		if i, err := strconv.ParseUint(tok, 10, 0); err == nil {
			b = b.Index(uint(i))
			continue
		}

		b = b.Child(tok)
	}

	return b.Build()
}
