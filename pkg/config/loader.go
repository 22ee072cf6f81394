package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/macropower/rulecat/pkg/yaml"
)

// LoaderOpt configures a [Loader].
type LoaderOpt func(*Loader)

// WithValidator replaces the [Config] schema validator.
func WithValidator(v *yaml.Validator) LoaderOpt {
	return func(l *Loader) {
		l.validator = v
	}
}

// Loader validates and decodes configuration data. Errors are annotated with
// the offending YAML source.
type Loader struct {
	validator *yaml.Validator
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] for data.
func NewLoaderFromBytes(data []byte, opts ...LoaderOpt) *Loader {
	l := &Loader{data: data}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// NewLoaderFromFile creates a [Loader] for the file at path.
func NewLoaderFromFile(path string, opts ...LoaderOpt) (*Loader, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	return NewLoaderFromBytes(data, opts...), nil
}

// Validate checks the data against the schema without decoding it into a
// [Config].
func (l *Loader) Validate() error {
	v, err := l.schema()
	if err != nil {
		return err
	}

	return v.ValidateDocument(l.data) //nolint:wrapcheck // Already a [*yaml.Error].
}

// Load validates the data, decodes it over the defaults from [New] and
// validates the result. Keys absent from the data keep their defaults, while
// explicit values, including zero limits, are kept as written.
func (l *Loader) Load() (*Config, error) {
	v, err := l.schema()
	if err != nil {
		return nil, err
	}

	c := New()

	err = yaml.Unmarshal(l.data, c, yaml.WithSchema(v))
	if err != nil {
		return nil, err //nolint:wrapcheck // Already annotated with the source.
	}

	c.EnsureDefaults()

	err = c.Validate()
	if err != nil {
		return nil, yaml.NewErrorWrapper(yaml.WithSource(l.data)).Wrap(err)
	}

	return c, nil
}

func (l *Loader) schema() (*yaml.Validator, error) {
	if l.validator != nil {
		return l.validator, nil
	}

	return DefaultValidator()
}

// Load reads, validates and decodes the configuration file at path. A missing
// file yields the default configuration.
func Load(path string) (*Config, error) {
	l, err := NewLoaderFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using defaults", slog.String("path", path))

		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	return c, nil
}
