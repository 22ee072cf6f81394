package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/macropower/rulecat/pkg/content"
)

// EnvPrefix prefixes every environment variable read by rulecat.
const EnvPrefix = "RULECAT_"

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored and existing variables are never
// overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}

	return nil
}

type envBinding struct {
	set  func(c *Config, v string) error
	name string
}

func intEnv(field func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err //nolint:wrapcheck // Wrapped by ApplyEnv.
		}

		*field(c) = n

		return nil
	}
}

func boolEnv(field func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err //nolint:wrapcheck // Wrapped by ApplyEnv.
		}

		*field(c) = b

		return nil
	}
}

func stringEnv(field func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func s3Env(field func(s *content.S3Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		if c.Store.S3 == nil {
			c.Store.S3 = &content.S3Config{}
		}

		*field(c.Store.S3) = v

		return nil
	}
}

var envBindings = []envBinding{
	{name: "VERBOSE", set: boolEnv(func(c *Config) *bool { return &c.Verbose })},
	{name: "ENABLE_AUTO_LOAD", set: boolEnv(func(c *Config) *bool {
		if c.EnableAutoLoad == nil {
			c.EnableAutoLoad = new(bool)
		}

		return c.EnableAutoLoad
	})},
	{name: "MAX_RULES", set: intEnv(func(c *Config) *int { return &c.MaxRules })},
	{name: "MAX_TOKENS", set: intEnv(func(c *Config) *int { return &c.MaxTokens })},
	{name: "MIN_SCORE", set: intEnv(func(c *Config) *int { return &c.MinScore })},
	{name: "CACHE_TTL_SECONDS", set: intEnv(func(c *Config) *int { return &c.CacheTTLSeconds })},
	{name: "CATALOG_PATH", set: stringEnv(func(c *Config) *string { return &c.CatalogPath })},
	{name: "STORE_KIND", set: func(c *Config, v string) error {
		c.Store.Kind = content.StoreKind(strings.ToLower(v))
		return nil
	}},
	{name: "STORE_BASE_URL", set: stringEnv(func(c *Config) *string { return &c.Store.BaseURL })},
	{name: "STORE_REPO", set: stringEnv(func(c *Config) *string { return &c.Store.Repo })},
	{name: "STORE_REVISION", set: stringEnv(func(c *Config) *string { return &c.Store.Revision })},
	{name: "STORE_DIR", set: stringEnv(func(c *Config) *string { return &c.Store.Dir })},
	{name: "S3_ENDPOINT", set: s3Env(func(s *content.S3Config) *string { return &s.Endpoint })},
	{name: "S3_REGION", set: s3Env(func(s *content.S3Config) *string { return &s.Region })},
	{name: "S3_BUCKET", set: s3Env(func(s *content.S3Config) *string { return &s.Bucket })},
	{name: "S3_PREFIX", set: s3Env(func(s *content.S3Config) *string { return &s.Prefix })},
	{name: "S3_ACCESS_KEY", set: s3Env(func(s *content.S3Config) *string { return &s.AccessKey })},
	{name: "S3_SECRET_KEY", set: s3Env(func(s *content.S3Config) *string { return &s.SecretKey })},
	{name: "S3_USE_SSL", set: boolEnv(func(c *Config) *bool {
		if c.Store.S3 == nil {
			c.Store.S3 = &content.S3Config{}
		}

		return &c.Store.S3.UseSSL
	})},
	{name: "FETCH_TIMEOUT_SECONDS", set: intEnv(func(c *Config) *int { return &c.Fetch.TimeoutSeconds })},
	{name: "FETCH_ATTEMPTS", set: intEnv(func(c *Config) *int { return &c.Fetch.Attempts })},
	{name: "FETCH_CONCURRENCY", set: intEnv(func(c *Config) *int { return &c.Fetch.Concurrency })},
	{name: "DETECT_MAX_DEPTH", set: intEnv(func(c *Config) *int { return &c.Detect.MaxDepth })},
	{name: "OTLP_ENDPOINT", set: stringEnv(func(c *Config) *string { return &c.Telemetry.Endpoint })},
}

// ApplyEnv overrides configuration fields from RULECAT_* variables returned
// by lookup. Defaults are applied first so that nested sections exist.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	c.EnsureDefaults()

	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok || v == "" {
			continue
		}

		err := b.set(c, v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, b.name, err)
		}
	}

	return nil
}
