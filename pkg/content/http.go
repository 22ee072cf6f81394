package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/macropower/rulecat/pkg/version"
)

const DefaultBaseURL = "https://raw.githubusercontent.com"

// HTTPStore reads documents from raw URLs of the form
// {baseURL}/{repo}/{revision}/{path}.
type HTTPStore struct {
	client  *http.Client
	baseURL string
	repo    string
}

// HTTPStoreOpt configures an [HTTPStore].
type HTTPStoreOpt func(*HTTPStore)

// WithHTTPClient replaces [http.DefaultClient].
func WithHTTPClient(c *http.Client) HTTPStoreOpt {
	return func(s *HTTPStore) {
		s.client = c
	}
}

// NewHTTPStore creates a new [HTTPStore].
func NewHTTPStore(baseURL, repo string, opts ...HTTPStoreOpt) *HTTPStore {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	s := &HTTPStore{
		client:  http.DefaultClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		repo:    strings.Trim(repo, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Configured returns an error wrapping [ErrStoreNotConfigured] when no URL
// can be built for revision.
func (s *HTTPStore) Configured(revision string) error {
	switch {
	case s.repo == "" && s.baseURL == DefaultBaseURL:
		return fmt.Errorf("%w: store.repo is required with the default base URL", ErrStoreNotConfigured)
	case revision == "":
		return fmt.Errorf("%w: store.revision must pin a tag or commit", ErrStoreNotConfigured)
	}

	return nil
}

// URL returns the address of the document.
func (s *HTTPStore) URL(revision, path string) (string, error) {
	err := s.Configured(revision)
	if err != nil {
		return "", err
	}

	elems := make([]string, 0, 3)
	if s.repo != "" {
		elems = append(elems, s.repo)
	}

	elems = append(elems, revision, strings.TrimPrefix(path, "/"))

	u, err := url.JoinPath(s.baseURL, elems...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreMisconfig, err)
	}

	return u, nil
}

func (s *HTTPStore) Get(ctx context.Context, revision, path string) ([]byte, error) {
	u, err := s.URL(revision, path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "text/plain, text/markdown, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Body is drained below.

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}

	return readLimited(resp.Body)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxContentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if len(data) > MaxContentBytes {
		return nil, ErrContentTooLarge
	}

	return data, nil
}
