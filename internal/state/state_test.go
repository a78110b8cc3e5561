package state

import (
	"context"
	"errors"

	"battlescore-backend/internal/logging"
	"battlescore-backend/internal/store"
)

var errStoreDown = errors.New("store down")

// flakyStore wraps a working store and fails selected operations, for
// exercising the write-through failure paths.
type flakyStore struct {
	store.Store
	failInsert     bool
	failUpdate     bool
	failDeleteOne  bool
	failDeleteMany bool
}

func (f *flakyStore) InsertOne(ctx context.Context, collection string, rec store.Record) error {
	if f.failInsert {
		return errStoreDown
	}
	return f.Store.InsertOne(ctx, collection, rec)
}

func (f *flakyStore) UpdateOne(ctx context.Context, collection string, filter store.Filter, set store.Record) error {
	if f.failUpdate {
		return errStoreDown
	}
	return f.Store.UpdateOne(ctx, collection, filter, set)
}

func (f *flakyStore) DeleteOne(ctx context.Context, collection string, filter store.Filter) error {
	if f.failDeleteOne {
		return errStoreDown
	}
	return f.Store.DeleteOne(ctx, collection, filter)
}

func (f *flakyStore) DeleteMany(ctx context.Context, collection string, filter store.Filter) error {
	if f.failDeleteMany {
		return errStoreDown
	}
	return f.Store.DeleteMany(ctx, collection, filter)
}

func newTestManager() *Manager {
	return New(store.NewMemoryStore(), logging.NewNop())
}

func newFlakyManager() (*Manager, *flakyStore) {
	flaky := &flakyStore{Store: store.NewMemoryStore()}
	return New(flaky, logging.NewNop()), flaky
}
