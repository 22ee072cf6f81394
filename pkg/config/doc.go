// Package config provides configuration management for rulecat.
//
// It wraps the configuration of the detect, content, selection and telemetry
// packages to provide a single API for loading, validating and writing
// configuration files in YAML format. Values are resolved from, in order of
// precedence: command-line flags, RULECAT_* environment variables (including
// those from a .env file), the configuration file and defaults.
package config
