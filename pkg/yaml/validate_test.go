package yaml_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulecat/pkg/yaml"
)

const testSchema = `{
	"type": "object",
	"properties": {
		"maxRules": {"type": "integer", "minimum": 0},
		"store": {
			"type": "object",
			"properties": {
				"kind": {"enum": ["http", "s3", "dir"]}
			},
			"required": ["kind"]
		},
		"markers": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"match": {"type": "string"}
				},
				"required": ["name", "match"]
			}
		}
	},
	"additionalProperties": false
}`

func TestNewValidator(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		errMsg     string
		schemaData []byte
	}{
		"valid schema": {
			schemaData: []byte(testSchema),
		},
		"empty schema": {
			schemaData: []byte(`{}`),
		},
		"invalid json": {
			schemaData: []byte(`{"invalid": json}`),
			errMsg:     "unmarshal schema",
		},
		"invalid schema": {
			schemaData: []byte(`{"type": "invalid_type"}`),
			errMsg:     "compile schema",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			validator, err := yaml.NewValidator("test", tc.schemaData)
			if tc.errMsg != "" {
				require.ErrorContains(t, err, tc.errMsg)
				assert.Nil(t, validator)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, validator)
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	validator := yaml.MustNewValidator("test", []byte(testSchema))

	tcs := map[string]struct {
		data     any
		wantPath string
	}{
		"valid": {
			data: map[string]any{
				"maxRules": 5,
				"store":    map[string]any{"kind": "s3"},
			},
		},
		"unknown property": {
			data:     map[string]any{"maxRule": 5},
			wantPath: "$",
		},
		"negative": {
			data:     map[string]any{"maxRules": -1},
			wantPath: "$.maxRules",
		},
		"bad enum": {
			data:     map[string]any{"store": map[string]any{"kind": "ftp"}},
			wantPath: "$.store.kind",
		},
		"missing nested": {
			data:     map[string]any{"store": map[string]any{}},
			wantPath: "$.store",
		},
		"array item": {
			data: map[string]any{"markers": []any{
				map[string]any{"name": "go", "match": "true"},
				map[string]any{"name": "rust"},
			}},
			wantPath: "$.markers[1]",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := validator.Validate(tc.data)
			if tc.wantPath == "" {
				require.NoError(t, err)

				return
			}

			var yamlErr *yaml.Error
			require.ErrorAs(t, err, &yamlErr)
			require.NotNil(t, yamlErr.Path)
			assert.Equal(t, tc.wantPath, yamlErr.Path.String())
		})
	}
}
