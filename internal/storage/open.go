package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"go-page-builder/pkg/fsutils"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// SQLiteFile is the database file name Open uses inside the storage path.
const SQLiteFile = "pages.db"

// Options selects a backend for Open.
type Options struct {
	Backend       string
	Path          string
	MongoURI      string
	MongoDatabase string
}

// Open returns the PageStore described by opts.
func Open(ctx context.Context, opts Options) (PageStore, error) {
	switch opts.Backend {
	case BackendJSON, "":
		s, err := NewJSONStore(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		if err := fsutils.CreateDir(opts.Path); err != nil {
			return nil, fmt.Errorf("failed to create storage directory '%s': %w", opts.Path, err)
		}
		s, err := NewSQLiteStore(filepath.Join(opts.Path, SQLiteFile))
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMongo:
		s, err := NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
}
