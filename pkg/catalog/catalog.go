package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/macropower/rulecat/pkg/yaml"
)

var (
	ErrNotFound        = errors.New("rule not found")
	ErrDuplicatePath   = errors.New("duplicate rule path")
	ErrEmptyPath       = errors.New("rule path is empty")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownMaturity = errors.New("unknown maturity level")
	ErrInvalidTokens   = errors.New("estimated tokens must be positive")
)

// SchemaFileName is the file name of the manifest JSON schema.
const SchemaFileName = "catalog.v1.json"

const schemaID = "https://raw.githubusercontent.com/macropower/rulecat/refs/heads/main/pkg/catalog/" + SchemaFileName

//go:embed catalog.yaml
var defaultManifest []byte

var schemaGenerator = yaml.NewSchemaGenerator(schemaID, "rulecat catalog")

var schemaOnce = sync.OnceValues(func() ([]byte, error) {
	return schemaGenerator.Generate(&Manifest{})
})

var validatorOnce = sync.OnceValues(func() (*yaml.Validator, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}

	v, err := yaml.NewValidator(schemaID, data)
	if err != nil {
		return nil, fmt.Errorf("create manifest validator: %w", err)
	}

	return v, nil
})

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := load(defaultManifest)
	if err != nil {
		panic(fmt.Errorf("embedded catalog: %w", err))
	}

	return c
})

// Manifest is the YAML document a [Catalog] is loaded from.
type Manifest struct {
	Rules []RuleInfo `json:"rules" jsonschema:"title=Rules"`
}

// Catalog is an immutable, ordered list of [RuleInfo] keyed by path.
type Catalog struct {
	index map[string]int
	rules []RuleInfo
}

// New creates a [Catalog] from the given rules, normalizing each one. The
// order of rules is kept.
func New(rules []RuleInfo) (*Catalog, error) {
	c := &Catalog{
		rules: make([]RuleInfo, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}

	for i, r := range rules {
		r.Topics = slices.Clone(r.Topics)
		r.Maturity = slices.Clone(r.Maturity)

		err := r.normalize()
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}

		if _, ok := c.index[r.Path]; ok {
			return nil, fmt.Errorf("rules[%d]: %w: %s", i, ErrDuplicatePath, r.Path)
		}

		c.index[r.Path] = len(c.rules)
		c.rules = append(c.rules, r)
	}

	return c, nil
}

// MustNew is like [New] but panics on error.
func MustNew(rules ...RuleInfo) *Catalog {
	c, err := New(rules)
	if err != nil {
		panic(err)
	}

	return c
}

// Schema returns the JSON schema of [Manifest].
func Schema() ([]byte, error) {
	return schemaOnce()
}

// Load reads a [Manifest] from r and creates a [Catalog] from it. The manifest
// is checked against [Schema] and may not contain unknown fields.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return load(data)
}

// LoadFile reads a [Manifest] from the file at path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-supplied manifest path.
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return load(data)
}

func load(data []byte) (*Catalog, error) {
	v, err := validatorOnce()
	if err != nil {
		return nil, err
	}

	var m Manifest

	err = yaml.Unmarshal(data, &m, yaml.WithSchema(v), yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return New(m.Rules)
}

// Default returns the [Catalog] embedded in the binary. It is loaded once
// per process on first use.
func Default() *Catalog {
	return defaultCatalog()
}

// DefaultManifest returns the embedded manifest source.
func DefaultManifest() []byte {
	return slices.Clone(defaultManifest)
}

// List returns every rule in manifest order. The returned slice is a copy.
func (c *Catalog) List() []RuleInfo {
	return slices.Clone(c.rules)
}

// Len returns the number of rules in the catalog.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Get returns the rule with the given path.
func (c *Catalog) Get(path string) (RuleInfo, error) {
	i, ok := c.index[path]
	if !ok {
		return RuleInfo{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	return c.rules[i], nil
}
