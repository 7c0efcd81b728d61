package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gpbraun/mdfluids/pkg/api"
)

const mongoOpTimeout = 5 * time.Second

// MongoTableStore is a TableStore backed by a MongoDB collection.
type MongoTableStore struct {
	coll *mongo.Collection
}

var _ TableStore = (*MongoTableStore)(nil)

// NewMongoTableStore creates a Mongo-backed table store.
// dbName defaults to "mdfluids" if empty, collName defaults to "tables".
func NewMongoTableStore(client *mongo.Client, dbName, collName string) *MongoTableStore {
	if dbName == "" {
		dbName = "mdfluids"
	}
	if collName == "" {
		collName = "tables"
	}
	return &MongoTableStore{
		coll: client.Database(dbName).Collection(collName),
	}
}

type mongoTableDoc struct {
	ID          string `bson:"_id"`
	Composition string `bson:"composition"`
	CreatedAt   int64  `bson:"created_at"`
	Body        []byte `bson:"body"`
}

func (s *MongoTableStore) SaveTable(ctx context.Context, t *api.Table) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	body, err := encodeTableBody(t)
	if err != nil {
		return err
	}
	doc := mongoTableDoc{
		ID:          t.ID,
		Composition: t.Composition,
		CreatedAt:   t.CreatedAt.UnixNano(),
		Body:        body,
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": t.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoTableStore) GetTable(ctx context.Context, id string) (*api.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var doc mongoTableDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return decodeTable(doc.ID, doc.Composition, doc.CreatedAt, doc.Body)
}

func (s *MongoTableStore) ListTables(ctx context.Context, filter TableFilter) ([]*api.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Composition != "" {
		query["composition"] = filter.Composition
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var result []*api.Table
	for cur.Next(ctx) {
		var doc mongoTableDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		t, err := decodeTable(doc.ID, doc.Composition, doc.CreatedAt, doc.Body)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MongoTableStore) DeleteTable(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrTableNotFound
	}
	return nil
}
