package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the document backend. Collections map 1:1 onto Mongo
// collections and filters translate directly to query documents.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]string{
		Teams:        {FieldName},
		Participants: {FieldParticipantID, FieldTeamID},
		Points:       {FieldTeamID, FieldParticipantID},
	}
	for collection, fields := range indexes {
		for _, field := range fields {
			_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
				Keys: bson.D{{Key: field, Value: 1}},
			})
			if err != nil {
				return fmt.Errorf("creating index %s.%s: %w", collection, field, err)
			}
		}
	}
	return nil
}

func mongoFilter(filter Filter) bson.M {
	out := bson.M{}
	for field, want := range filter {
		if want == Exists {
			out[field] = bson.M{"$ne": nil}
			continue
		}
		out[field] = want
	}
	return out
}

// decodeMongo flattens the driver's bson types into the neutral record
// representation and drops the synthetic _id.
func decodeMongo(doc bson.M) Record {
	rec := make(Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		switch t := v.(type) {
		case primitive.DateTime:
			rec[k] = t.Time()
		case int32:
			rec[k] = int64(t)
		default:
			rec[k] = v
		}
	}
	return rec
}

func (s *MongoStore) Find(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, mongoFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading %s cursor: %w", collection, err)
	}

	result := make([]Record, 0, len(docs))
	for _, doc := range docs {
		result = append(result, decodeMongo(doc))
	}
	return result, nil
}

func (s *MongoStore) FindOne(ctx context.Context, collection string, filter Filter) (Record, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, mongoFilter(filter)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	return decodeMongo(doc), nil
}

func (s *MongoStore) InsertOne(ctx context.Context, collection string, rec Record) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, bson.M(rec)); err != nil {
		return fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) UpdateOne(ctx context.Context, collection string, filter Filter, set Record) error {
	update := bson.M{"$set": bson.M(set)}
	if _, err := s.db.Collection(collection).UpdateOne(ctx, mongoFilter(filter), update); err != nil {
		return fmt.Errorf("updating %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) DeleteOne(ctx context.Context, collection string, filter Filter) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, mongoFilter(filter)); err != nil {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) DeleteMany(ctx context.Context, collection string, filter Filter) error {
	if _, err := s.db.Collection(collection).DeleteMany(ctx, mongoFilter(filter)); err != nil {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
