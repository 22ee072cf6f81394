package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/macropower/rulecat/pkg/cache"
	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/content"
	"github.com/macropower/rulecat/pkg/detect"
	"github.com/macropower/rulecat/pkg/hook"
	"github.com/macropower/rulecat/pkg/intent"
	"github.com/macropower/rulecat/pkg/selection"
	"github.com/macropower/rulecat/pkg/telemetry"
	"github.com/macropower/rulecat/pkg/yaml"
)

const (
	// APIVersion is the current configuration API version.
	APIVersion = "rulecat.jacobcolvin.com/v1beta1"
	// Kind is the configuration kind.
	Kind = "Configuration"

	DefaultCacheTTLSeconds = int(cache.DefaultTTL / time.Second)
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")

	// ValidAPIVersions contains all valid API versions.
	ValidAPIVersions = []string{APIVersion}
	// ValidKinds contains all valid kinds.
	ValidKinds = []string{Kind}
)

// TypeMeta contains the API version and kind of a configuration document.
type TypeMeta struct {
	// APIVersion specifies the API version for this configuration.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version"`
	// Kind defines the type of configuration.
	Kind string `json:"kind" jsonschema:"title=Kind"`
}

// DetectConfig configures project context detection.
type DetectConfig struct {
	// MaxDepth bounds how deep the directory listing descends.
	MaxDepth int `json:"maxDepth,omitempty" jsonschema:"title=Max Depth,minimum=0"`
	// SkipDirs lists directory names that are never descended into.
	SkipDirs []string `json:"skipDirs,omitempty" jsonschema:"title=Skip Directories"`
	// Markers replaces the built-in markers.
	Markers []*detect.Marker `json:"markers,omitempty" jsonschema:"title=Markers"`
	// ExtraMarkers are evaluated after the built-in (or replaced) markers.
	ExtraMarkers []*detect.Marker `json:"extraMarkers,omitempty" jsonschema:"title=Extra Markers"`
}

// SelectionConfig tunes rule scoring.
type SelectionConfig struct {
	// Weights overrides the per-tier score contributions.
	Weights *selection.Weights `json:"weights,omitempty" jsonschema:"title=Weights"`
	// Boosts overrides the topics boosted for each intent category.
	Boosts map[intent.Category][]string `json:"boosts,omitempty" jsonschema:"title=Category Boosts"`
}

// Config defines the rulecat configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	Store     *content.StoreConfig `json:"store,omitempty" jsonschema:"title=Content Store"`
	Fetch     *content.FetchConfig `json:"fetch,omitempty" jsonschema:"title=Fetch"`
	Detect    *DetectConfig        `json:"detect,omitempty" jsonschema:"title=Detection"`
	Selection *SelectionConfig     `json:"selection,omitempty" jsonschema:"title=Selection"`
	Telemetry *telemetry.Config    `json:"telemetry,omitempty" jsonschema:"title=Telemetry"`
	// EnableAutoLoad is the master toggle for injection.
	EnableAutoLoad *bool `json:"enableAutoLoad,omitempty" jsonschema:"title=Enable Auto Load"`
	TypeMeta       `json:",inline"`
	// CatalogPath points to a catalog manifest replacing the built-in catalog.
	CatalogPath string `json:"catalogPath,omitempty" jsonschema:"title=Catalog Path"`
	// MaxRules caps the number of injected rules. Zero disables injection.
	MaxRules int `json:"maxRules,omitempty" jsonschema:"title=Max Rules,minimum=0" yaml:"maxRules"`
	// MaxTokens caps the estimated tokens injected per request.
	MaxTokens int `json:"maxTokens,omitempty" jsonschema:"title=Max Tokens,minimum=0" yaml:"maxTokens"`
	// CacheTTLSeconds is how long fetched rule content stays cached.
	CacheTTLSeconds int `json:"cacheTtlSeconds,omitempty" jsonschema:"title=Cache TTL Seconds,minimum=1"`
	// MinScore excludes rules scoring below it.
	MinScore int `json:"minScore,omitempty" jsonschema:"title=Min Score,minimum=0"`
	// Verbose enables diagnostic logging from the hook command.
	Verbose bool `json:"verbose,omitempty" jsonschema:"title=Verbose"`
}

// New creates a new [Config] with default values.
func New() *Config {
	c := &Config{
		TypeMeta: TypeMeta{
			APIVersion: APIVersion,
			Kind:       Kind,
		},
		MaxRules:  hook.DefaultMaxRules,
		MaxTokens: hook.DefaultMaxTokens,
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes unset fields to their default values. The
// selection limits are left alone, since zero is a meaningful value for them;
// their defaults come from [New].
func (c *Config) EnsureDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = APIVersion
	}
	if c.Kind == "" {
		c.Kind = Kind
	}
	if c.EnableAutoLoad == nil {
		enabled := true
		c.EnableAutoLoad = &enabled
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = DefaultCacheTTLSeconds
	}

	if c.Store == nil {
		s := content.DefaultStoreConfig()
		c.Store = &s
	} else {
		def := content.DefaultStoreConfig()
		if c.Store.Kind == "" {
			c.Store.Kind = def.Kind
		}
		if c.Store.BaseURL == "" {
			c.Store.BaseURL = def.BaseURL
		}
	}

	if c.Fetch == nil {
		f := content.DefaultFetchConfig()
		c.Fetch = &f
	} else {
		def := content.DefaultFetchConfig()
		if c.Fetch.TimeoutSeconds == 0 {
			c.Fetch.TimeoutSeconds = def.TimeoutSeconds
		}
		if c.Fetch.Attempts == 0 {
			c.Fetch.Attempts = def.Attempts
		}
		if c.Fetch.Concurrency == 0 {
			c.Fetch.Concurrency = def.Concurrency
		}
	}

	if c.Detect == nil {
		c.Detect = &DetectConfig{}
	}
	if c.Detect.MaxDepth == 0 {
		c.Detect.MaxDepth = detect.DefaultMaxDepth
	}

	if c.Selection == nil {
		c.Selection = &SelectionConfig{}
	}
	if c.Telemetry == nil {
		c.Telemetry = &telemetry.Config{}
	}
}

// AutoLoad reports whether injection is enabled.
func (c *Config) AutoLoad() bool {
	return c.EnableAutoLoad == nil || *c.EnableAutoLoad
}

// CacheTTL returns the rule cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks requirements that cannot be represented in the schema.
// Errors carry the YAML path of the offending field.
func (c *Config) Validate() error {
	pb := yaml.NewPathBuilder()

	checks := []struct {
		field string
		value int
	}{
		{"maxRules", c.MaxRules},
		{"maxTokens", c.MaxTokens},
		{"cacheTtlSeconds", c.CacheTTLSeconds},
		{"minScore", c.MinScore},
	}
	for _, check := range checks {
		if check.value < 0 {
			return yaml.NewError(
				fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, check.field),
				yaml.WithPath(pb.Root().Child(check.field).Build()),
			)
		}
	}

	if c.Store != nil {
		switch c.Store.Kind {
		case "", content.StoreHTTP, content.StoreDir:
		case content.StoreS3:
			if c.Store.S3 == nil {
				return yaml.NewError(
					fmt.Errorf("%w: s3 settings are required for the s3 store", ErrInvalidConfig),
					yaml.WithPath(pb.Root().Child("store").Child("kind").Build()),
				)
			}
		default:
			return yaml.NewError(
				fmt.Errorf("%w: %w: %q", ErrInvalidConfig, content.ErrUnknownStore, c.Store.Kind),
				yaml.WithPath(pb.Root().Child("store").Child("kind").Build()),
			)
		}
	}

	if c.Detect != nil {
		for field, markers := range map[string][]*detect.Marker{
			"markers":      c.Detect.Markers,
			"extraMarkers": c.Detect.ExtraMarkers,
		} {
			for i, m := range markers {
				uIdx := uint(i) //nolint:gosec // G115: integer overflow conversion int -> uint.
				if m == nil {
					return yaml.NewError(
						fmt.Errorf("%w: empty marker", ErrInvalidConfig),
						yaml.WithPath(pb.Root().Child("detect").Child(field).Index(uIdx).Build()),
					)
				}

				err := m.Compile()
				if err != nil {
					return yaml.NewError(
						fmt.Errorf("invalid marker %q: %w", m.String(), err),
						yaml.WithPath(pb.Root().Child("detect").Child(field).Index(uIdx).Child("match").Build()),
					)
				}
			}
		}
	}

	if c.Selection != nil && c.Selection.Weights != nil {
		err := c.Selection.Weights.Validate()
		if err != nil {
			return yaml.NewError(err,
				yaml.WithPath(pb.Root().Child("selection").Child("weights").Build()),
			)
		}
	}

	return nil
}

// JSONSchemaExtend adds apiVersion and kind constraints to the schema.
func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	for prop, values := range map[string][]string{
		"apiVersion": ValidAPIVersions,
		"kind":       ValidKinds,
	} {
		s, ok := jss.Properties.Get(prop)
		if !ok {
			panic(prop + " property not found in schema")
		}

		for _, v := range values {
			s.OneOf = append(s.OneOf, &jsonschema.Schema{
				Type:  "string",
				Const: v,
				Title: s.Title,
			})
		}

		_, _ = jss.Properties.Set(prop, s)
	}
}

// NewDetector creates the configured [detect.Detector].
func (c *Config) NewDetector() (*detect.Detector, error) {
	var opts []detect.DetectorOpt
	if c.Detect != nil {
		opts = append(opts, detect.WithMaxDepth(c.Detect.MaxDepth))
		if len(c.Detect.SkipDirs) > 0 {
			opts = append(opts, detect.WithSkipDirs(c.Detect.SkipDirs...))
		}
		if len(c.Detect.Markers) > 0 {
			opts = append(opts, detect.WithMarkers(c.Detect.Markers...))
		}
		if len(c.Detect.ExtraMarkers) > 0 {
			opts = append(opts, detect.WithExtraMarkers(c.Detect.ExtraMarkers...))
		}
	}

	d := detect.NewDetector(opts...)

	err := d.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate detector: %w", err)
	}

	return d, nil
}

// NewCatalog loads the configured catalog, or returns [catalog.Default].
func (c *Config) NewCatalog() (*catalog.Catalog, error) {
	if c.CatalogPath == "" {
		return catalog.Default(), nil
	}

	cat, err := catalog.LoadFile(c.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	return cat, nil
}

// NewFetcher creates a [content.Fetcher] backed by the configured store and
// the shared rule cache.
func (c *Config) NewFetcher(opts ...content.FetcherOpt) (*content.Fetcher, error) {
	storeCfg := content.DefaultStoreConfig()
	if c.Store != nil {
		storeCfg = *c.Store
	}

	store, err := storeCfg.NewStore()
	if err != nil {
		return nil, fmt.Errorf("create content store: %w", err)
	}

	fetchOpts := []content.FetcherOpt{content.WithRevision(storeCfg.Revision)}
	if c.Fetch != nil {
		fetchOpts = append(fetchOpts, c.Fetch.Options()...)
	}

	fetchOpts = append(fetchOpts, opts...)

	return content.NewFetcher(store, content.SharedCache(c.CacheTTL()), fetchOpts...), nil
}

// DispatcherOptions converts the configuration into [hook.DispatcherOpt]
// values. The detector and catalog are created from the configuration.
func (c *Config) DispatcherOptions() ([]hook.DispatcherOpt, error) {
	det, err := c.NewDetector()
	if err != nil {
		return nil, err
	}

	cat, err := c.NewCatalog()
	if err != nil {
		return nil, err
	}

	opts := []hook.DispatcherOpt{
		hook.WithAutoLoad(c.AutoLoad()),
		hook.WithDetector(det),
		hook.WithCatalog(cat),
		hook.WithLimits(c.MaxRules, c.MaxTokens),
		hook.WithMinScore(c.MinScore),
	}
	if c.Selection != nil {
		if c.Selection.Weights != nil {
			opts = append(opts, hook.WithWeights(c.Selection.Weights))
		}
		if c.Selection.Boosts != nil {
			opts = append(opts, hook.WithBoosts(c.Selection.Boosts))
		}
	}

	return opts, nil
}
