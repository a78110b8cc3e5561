package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// FirestoreStore is a Google Cloud Firestore backend. Firestore has no
// server-side "field is not null" operator, so Exists filters narrow with an
// OrderBy (which drops documents missing the field entirely) and re-check
// the survivors client-side with Matches.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to the given project. databaseID may be empty,
// which selects the (default) database.
func NewFirestoreStore(ctx context.Context, projectID, databaseID string) (*FirestoreStore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) buildQuery(collection string, filter Filter) firestore.Query {
	q := s.client.Collection(collection).Query
	for field, want := range filter {
		if want == Exists {
			q = q.OrderBy(field, firestore.Asc)
			continue
		}
		q = q.Where(field, "==", want)
	}
	return q
}

func (s *FirestoreStore) docs(ctx context.Context, collection string, filter Filter, limit int) ([]*firestore.DocumentSnapshot, error) {
	iter := s.buildQuery(collection, filter).Documents(ctx)
	defer iter.Stop()

	var result []*firestore.DocumentSnapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", collection, err)
		}
		if !Matches(Record(doc.Data()), filter) {
			continue
		}
		result = append(result, doc)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *FirestoreStore) Find(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	docs, err := s.docs(ctx, collection, filter, 0)
	if err != nil {
		return nil, err
	}
	result := make([]Record, 0, len(docs))
	for _, doc := range docs {
		result = append(result, Record(doc.Data()))
	}
	return result, nil
}

func (s *FirestoreStore) FindOne(ctx context.Context, collection string, filter Filter) (Record, error) {
	docs, err := s.docs(ctx, collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoRecord
	}
	return Record(docs[0].Data()), nil
}

func (s *FirestoreStore) InsertOne(ctx context.Context, collection string, rec Record) error {
	if _, err := s.client.Collection(collection).NewDoc().Create(ctx, map[string]any(rec)); err != nil {
		return fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return nil
}

func (s *FirestoreStore) UpdateOne(ctx context.Context, collection string, filter Filter, set Record) error {
	docs, err := s.docs(ctx, collection, filter, 1)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := docs[0].Ref.Set(ctx, map[string]any(set), firestore.MergeAll); err != nil {
		return fmt.Errorf("updating %s: %w", collection, err)
	}
	return nil
}

func (s *FirestoreStore) DeleteOne(ctx context.Context, collection string, filter Filter) error {
	docs, err := s.docs(ctx, collection, filter, 1)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := docs[0].Ref.Delete(ctx); err != nil {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

func (s *FirestoreStore) DeleteMany(ctx context.Context, collection string, filter Filter) error {
	docs, err := s.docs(ctx, collection, filter, 0)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("deleting from %s: %w", collection, err)
		}
	}
	return nil
}

func (s *FirestoreStore) Close(_ context.Context) error {
	return s.client.Close()
}
