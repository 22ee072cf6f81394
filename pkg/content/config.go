package content

import (
	"fmt"
	"time"
)

// StoreKind selects a [Store] implementation.
type StoreKind string

const (
	StoreHTTP StoreKind = "http"
	StoreS3   StoreKind = "s3"
	StoreDir  StoreKind = "dir"
)

// StoreConfig selects and configures a [Store]. An http store has no usable
// default location: Revision must name a tag or commit, and Repo is required
// unless BaseURL points somewhere other than [DefaultBaseURL].
type StoreConfig struct {
	S3       *S3Config `json:"s3,omitempty" jsonschema:"title=S3"`
	Kind     StoreKind `json:"kind,omitempty" jsonschema:"title=Kind,enum=http,enum=s3,enum=dir"`
	BaseURL  string    `json:"baseUrl,omitempty" jsonschema:"title=Base URL"`
	Repo     string    `json:"repo,omitempty" jsonschema:"title=Repository"`
	Revision string    `json:"revision,omitempty" jsonschema:"title=Revision"`
	Dir      string    `json:"dir,omitempty" jsonschema:"title=Directory"`
}

// DefaultStoreConfig returns the default [StoreConfig].
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Kind:    StoreHTTP,
		BaseURL: DefaultBaseURL,
	}
}

// Configured returns an error wrapping [ErrStoreNotConfigured] when the store
// cannot serve any document as configured.
func (c StoreConfig) Configured() error {
	switch c.Kind {
	case StoreHTTP, "":
		return NewHTTPStore(c.BaseURL, c.Repo).Configured(c.Revision)
	case StoreS3:
		if c.S3 == nil || c.S3.Bucket == "" {
			return fmt.Errorf("%w: store.s3.bucket is not set", ErrStoreNotConfigured)
		}
	case StoreDir:
		if c.Dir == "" {
			return fmt.Errorf("%w: store.dir is not set", ErrStoreNotConfigured)
		}
	}

	return nil
}

// NewStore creates the configured [Store].
func (c StoreConfig) NewStore() (Store, error) {
	switch c.Kind {
	case StoreHTTP, "":
		return NewHTTPStore(c.BaseURL, c.Repo), nil
	case StoreS3:
		if c.S3 == nil {
			return nil, fmt.Errorf("%w: s3 configuration is required", ErrStoreMisconfig)
		}

		return NewS3Store(*c.S3)
	case StoreDir:
		return NewDirStore(c.Dir)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStore, c.Kind)
}

// FetchConfig bounds remote fetches.
type FetchConfig struct {
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" jsonschema:"title=Timeout Seconds,minimum=1"`
	Attempts       int `json:"attempts,omitempty" jsonschema:"title=Attempts,minimum=1"`
	Concurrency    int `json:"concurrency,omitempty" jsonschema:"title=Concurrency,minimum=1"`
}

// DefaultFetchConfig returns the default [FetchConfig].
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		TimeoutSeconds: int(DefaultTimeout / time.Second),
		Attempts:       DefaultAttempts,
		Concurrency:    DefaultConcurrency,
	}
}

// Options converts the configuration into [FetcherOpt] values.
func (c FetchConfig) Options() []FetcherOpt {
	var opts []FetcherOpt
	if c.TimeoutSeconds > 0 {
		opts = append(opts, WithTimeout(time.Duration(c.TimeoutSeconds)*time.Second))
	}
	if c.Attempts > 0 {
		opts = append(opts, WithAttempts(c.Attempts))
	}
	if c.Concurrency > 0 {
		opts = append(opts, WithConcurrency(c.Concurrency))
	}

	return opts
}
