package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirStore reads documents from a local directory. The revision is ignored.
type DirStore struct {
	dir string
}

// NewDirStore creates a new [DirStore] rooted at dir.
func NewDirStore(dir string) (*DirStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: dir is required", ErrStoreMisconfig)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}

	return &DirStore{dir: abs}, nil
}

func (s *DirStore) Get(ctx context.Context, _, path string) ([]byte, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err //nolint:wrapcheck // Context errors are returned as-is.
	}

	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open root: %w", err)
	}
	defer root.Close() //nolint:errcheck // Read-only.

	f, err := root.Open(filepath.FromSlash(strings.TrimPrefix(path, "/")))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // Read-only.

	return readLimited(f)
}
