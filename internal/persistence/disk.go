package persistence

import (
	"context"
	"fmt"

	"github.com/peterbourgon/diskv/v3"
)

// DiskStorage writes one file per key under a base directory.
type DiskStorage struct {
	d *diskv.Diskv
}

func NewDiskStorage(basePath string) *DiskStorage {
	return &DiskStorage{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024, // 1MB
	})}
}

func (s *DiskStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	if !s.d.Has(key) {
		return nil, false, nil
	}
	value, err := s.d.Read(key)
	if err != nil {
		return nil, false, fmt.Errorf("error reading snapshot %s: %w", key, err)
	}
	return value, true, nil
}

func (s *DiskStorage) Set(_ context.Context, key string, value []byte) error {
	if err := s.d.Write(key, value); err != nil {
		return fmt.Errorf("error writing snapshot %s: %w", key, err)
	}
	return nil
}

func (s *DiskStorage) Remove(_ context.Context, key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("error removing snapshot %s: %w", key, err)
	}
	return nil
}
