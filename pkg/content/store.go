package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// MaxContentBytes bounds the size of a document body.
const MaxContentBytes = 4 << 20

var (
	ErrNotFound           = errors.New("document not found")
	ErrEmptyContent       = errors.New("document is empty")
	ErrUnknownStore       = errors.New("unknown store kind")
	ErrStoreMisconfig     = errors.New("invalid store configuration")
	ErrStoreNotConfigured = errors.New("content store not configured")
	ErrContentTooLarge    = errors.New("document too large")
)

// Store retrieves raw document bodies by revision and relative path.
type Store interface {
	Get(ctx context.Context, revision, path string) ([]byte, error)
}

// StatusError is returned for unsuccessful HTTP responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// isPermanent reports whether err should not be retried.
func isPermanent(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrContentTooLarge) || errors.Is(err, ErrStoreNotConfigured) ||
		errors.Is(err, ErrStoreMisconfig) || errors.Is(err, context.Canceled) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return !statusErr.Temporary()
	}

	return false
}
