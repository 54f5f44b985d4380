package persistence

import (
	"context"
	"fmt"
	"io"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendDisk   = "disk"
)

// Open creates the storage for backend. The returned closer releases its resources and is never nil.
func Open(ctx context.Context, backend, path string) (Storage, io.Closer, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStorage(), nopCloser{}, nil
	case BackendSQLite:
		s, err := NewSQLiteStorage(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendDisk:
		return NewDiskStorage(path), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
