package store

import (
	"context"
	"fmt"
)

// Options carries the connection settings for every backend; Open picks the
// ones the selected backend needs.
type Options struct {
	Backend string // memory | file | mongo | mysql | firestore

	DataDir string // file

	MongoURI      string // mongo
	MongoDatabase string

	MySQLDSN string // mysql

	FirestoreProject  string // firestore
	FirestoreDatabase string
}

// Open constructs the store backend named in opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		dir := opts.DataDir
		if dir == "" {
			dir = "./data"
		}
		return NewFileStore(dir)
	case "mongo":
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase)
	case "mysql":
		return NewMySQLStore(ctx, opts.MySQLDSN)
	case "firestore":
		if opts.FirestoreProject == "" {
			return nil, fmt.Errorf("firestore backend requires a project id")
		}
		return NewFirestoreStore(ctx, opts.FirestoreProject, opts.FirestoreDatabase)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
