package yaml

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/printer"
	"github.com/goccy/go-yaml/token"
)

// NewPathBuilder starts a [yaml.Path], e.g.
// NewPathBuilder().Root().Child("store").Child("kind").Build().
func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

// Error is an error located in a YAML document, either by the [*token.Token]
// the parser stopped at or by the [*yaml.Path] of the offending node. With a
// Source, the message quotes the document around that location.
type Error struct {
	Err    error
	Path   *yaml.Path
	Token  *token.Token
	Source []byte
}

// ErrorOpt sets a field of an [Error].
type ErrorOpt func(e *Error)

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{Err: err}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return ""
	case e.Path == nil && e.Token == nil:
		return e.Err.Error()
	}

	tk, err := e.locate()
	if err != nil {
		slog.Debug("locate yaml error in source", slog.Any("error", err))
	}

	if tk == nil {
		if e.Path != nil {
			return fmt.Sprintf("error at %s: %v", e.Path, e.Err)
		}

		return e.Err.Error()
	}

	var pp printer.Printer

	return fmt.Sprintf("[%d:%d] %v:\n%s",
		tk.Position.Line, tk.Position.Column, e.Err, pp.PrintErrorToken(tk, false))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// locate returns the token to annotate. Paths resolve to the mapping key of
// the node where there is one, since that is where readers look.
func (e *Error) locate() (*token.Token, error) {
	if e.Token != nil {
		return e.Token, nil
	}
	if len(e.Source) == 0 {
		return nil, nil //nolint:nilnil // Nothing to annotate.
	}

	file, err := parser.ParseBytes(e.Source, 0)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	node, err := e.Path.FilterFile(file)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", e.Path, err)
	}

	if key := mappingKey(file, e.Path.String()); key != nil {
		return key, nil
	}

	return node.GetToken(), nil
}

// mappingKey returns the key token of the last path element when that element
// is a mapping key.
func mappingKey(file *ast.File, p string) *token.Token {
	i := strings.LastIndexAny(p, ".[")
	if i <= 0 || p[i] == '[' {
		return nil
	}

	parent, err := yaml.PathString(p[:i])
	if err != nil {
		return nil
	}

	node, err := parent.FilterFile(file)
	if err != nil {
		return nil
	}

	mapping, ok := node.(*ast.MappingNode)
	if !ok {
		return nil
	}

	name := p[i+1:]
	for _, kv := range mapping.Values {
		if kv.Key.String() == name {
			return kv.Key.GetToken()
		}
	}

	return nil
}

// ErrorWrapper applies a fixed set of [ErrorOpt] values, typically the
// document source, to every [*Error] it wraps.
type ErrorWrapper struct {
	Opts []ErrorOpt
}

func NewErrorWrapper(opts ...ErrorOpt) *ErrorWrapper {
	return &ErrorWrapper{Opts: opts}
}

// Wrap applies the options to the [*Error] in err's chain and returns it.
// Other errors are returned unchanged.
func (ew *ErrorWrapper) Wrap(err error, opts ...ErrorOpt) error {
	var yamlErr *Error
	if !errors.As(err, &yamlErr) {
		return err
	}

	for _, opt := range slices.Concat(ew.Opts, opts) {
		opt(yamlErr)
	}

	return yamlErr
}
