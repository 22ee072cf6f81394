package yaml

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-yaml"
)

// DecodeOpt configures decoding.
type DecodeOpt func(*decodeOptions)

type decodeOptions struct {
	validator *Validator
	strict    bool
}

// Strict rejects mapping keys that the target type does not declare.
func Strict() DecodeOpt {
	return func(o *decodeOptions) {
		o.strict = true
	}
}

// WithSchema checks each document against v before it is decoded into the
// target type, so that errors point at the offending YAML node.
func WithSchema(v *Validator) DecodeOpt {
	return func(o *decodeOptions) {
		o.validator = v
	}
}

// Decoder reads YAML documents from a stream. Duplicate mapping keys are
// always rejected.
type Decoder struct {
	d *yaml.Decoder
}

func NewDecoder(r io.Reader, opts ...DecodeOpt) *Decoder {
	o := &decodeOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var yamlOpts []yaml.DecodeOption
	if o.strict {
		yamlOpts = append(yamlOpts, yaml.DisallowUnknownField())
	}

	return &Decoder{d: yaml.NewDecoder(r, yamlOpts...)}
}

// Decode reads the next document into v. It returns [io.EOF] when the stream
// holds no further documents.
func (d *Decoder) Decode(v any) error {
	err := d.d.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return err //nolint:wrapcheck // io.EOF is matched by callers.
	}

	var yamlErr yaml.Error
	if errors.As(err, &yamlErr) {
		return &Error{
			Err:   errors.New(yamlErr.GetMessage()),
			Token: yamlErr.GetToken(),
		}
	}

	//nolint:wrapcheck // Keep errors from custom unmarshalers intact.
	return err
}

// Unmarshal decodes the first document of data into v. Data without a
// document (empty, or only comments) leaves v untouched, so defaults set on v
// beforehand survive. Returned [*Error] values carry data as their source.
func Unmarshal(data []byte, v any, opts ...DecodeOpt) error {
	o := &decodeOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	src := NewErrorWrapper(WithSource(data))

	if o.validator != nil {
		err := o.validator.ValidateDocument(data)
		if err != nil {
			return src.Wrap(err)
		}
	}

	err := NewDecoder(bytes.NewReader(data), opts...).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return src.Wrap(err)
	}

	return nil
}
