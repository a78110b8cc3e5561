package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists each collection as a JSON file on disk.
// Files are stored as {dir}/{collection}.json.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(collection string) string {
	return filepath.Join(f.dir, collection+".json")
}

func (f *FileStore) readCollection(collection string) ([]Record, error) {
	data, err := os.ReadFile(f.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading collection %s: %w", collection, err)
	}

	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decoding collection %s: %w", collection, err)
	}
	return recs, nil
}

func (f *FileStore) writeCollection(collection string, recs []Record) error {
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding collection %s: %w", collection, err)
	}

	// Write to temp file then rename for atomic writes
	tmp := f.path(collection) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing collection %s: %w", collection, err)
	}
	if err := os.Rename(tmp, f.path(collection)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming collection file %s: %w", collection, err)
	}
	return nil
}

func (f *FileStore) Find(_ context.Context, collection string, filter Filter) ([]Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	recs, err := f.readCollection(collection)
	if err != nil {
		return nil, err
	}
	result := make([]Record, 0)
	for _, rec := range recs {
		if Matches(rec, filter) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (f *FileStore) FindOne(_ context.Context, collection string, filter Filter) (Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	recs, err := f.readCollection(collection)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if Matches(rec, filter) {
			return rec, nil
		}
	}
	return nil, ErrNoRecord
}

func (f *FileStore) InsertOne(_ context.Context, collection string, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	recs, err := f.readCollection(collection)
	if err != nil {
		return err
	}
	return f.writeCollection(collection, append(recs, Clone(rec)))
}

func (f *FileStore) UpdateOne(_ context.Context, collection string, filter Filter, set Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	recs, err := f.readCollection(collection)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if Matches(rec, filter) {
			for k, v := range set {
				rec[k] = v
			}
			break
		}
	}
	return f.writeCollection(collection, recs)
}

func (f *FileStore) DeleteOne(_ context.Context, collection string, filter Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	recs, err := f.readCollection(collection)
	if err != nil {
		return err
	}
	for i, rec := range recs {
		if Matches(rec, filter) {
			return f.writeCollection(collection, append(recs[:i:i], recs[i+1:]...))
		}
	}
	return nil
}

func (f *FileStore) DeleteMany(_ context.Context, collection string, filter Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	recs, err := f.readCollection(collection)
	if err != nil {
		return err
	}
	kept := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if !Matches(rec, filter) {
			kept = append(kept, rec)
		}
	}
	return f.writeCollection(collection, kept)
}

func (f *FileStore) Close(_ context.Context) error {
	return nil
}
