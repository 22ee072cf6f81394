package config

import (
	"fmt"
	"sync"

	"github.com/macropower/rulecat/pkg/yaml"
)

// SchemaFileName is the file name used when writing the schema next to the
// configuration file.
const SchemaFileName = "config.v1beta1.json"

const schemaID = "https://raw.githubusercontent.com/macropower/rulecat/refs/heads/main/pkg/config/" + SchemaFileName

var schemaGenerator = yaml.NewSchemaGenerator(schemaID, "rulecat configuration")

var schemaOnce = sync.OnceValues(func() ([]byte, error) {
	return schemaGenerator.Generate(&Config{})
})

var validatorOnce = sync.OnceValues(func() (*yaml.Validator, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}

	v, err := yaml.NewValidator(schemaID, data)
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}

	return v, nil
})

// Schema returns the JSON schema of [Config], reflected from its struct tags.
func Schema() ([]byte, error) {
	return schemaOnce()
}

// DefaultValidator returns a validator for the [Config] schema.
func DefaultValidator() (*yaml.Validator, error) {
	return validatorOnce()
}
