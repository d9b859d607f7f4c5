package store

import (
	"context"
	"fmt"
	"time"

	"github.com/blackmichael/bluesky-autoposter/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "seen_posts"

// MongoStore implements domain.SeenStore using a MongoDB collection with a
// unique (namespace, uri) index.
type MongoStore struct {
	client    *mongo.Client
	coll      *mongo.Collection
	namespace string
}

var _ domain.SeenStore = (*MongoStore)(nil)

func OpenMongo(ctx context.Context, uri, database, namespace string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "namespace", Value: 1}, {Key: "uri", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create seen index: %w", err)
	}

	return &MongoStore{client: client, coll: coll, namespace: namespace}, nil
}

func (m *MongoStore) Load(ctx context.Context) (domain.SeenSet, error) {
	cur, err := m.coll.Find(ctx,
		bson.M{"namespace": m.namespace},
		options.Find().SetProjection(bson.M{"uri": 1, "_id": 0}),
	)
	if err != nil {
		return nil, fmt.Errorf("find seen posts: %w", err)
	}
	defer cur.Close(ctx)

	seen := domain.NewSeenSet()
	for cur.Next(ctx) {
		var doc struct {
			URI string `bson:"uri"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode seen post: %w", err)
		}
		seen.Add(doc.URI)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen posts: %w", err)
	}
	return seen, nil
}

// Add upserts the URI; seen_at keeps the first time it was recorded.
func (m *MongoStore) Add(ctx context.Context, uri string) error {
	_, err := m.coll.UpdateOne(ctx,
		bson.M{"namespace": m.namespace, "uri": uri},
		bson.M{"$setOnInsert": bson.M{"seen_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert seen post: %w", err)
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
