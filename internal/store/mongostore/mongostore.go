// Package mongostore implements store.Backend on the MongoDB Go driver.
//
// One *mongo.Client (and its connection pool) lives for the whole process.
// Each lease opens a driver session on it and every operation made through
// that lease runs inside the session; closing the lease ends the session.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/harentsoaR/auc-api/internal/store"
)

// Connect creates the process-wide client and checks the server answers.
func Connect(ctx context.Context, uri string, maxPoolSize uint64, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().ApplyURI(uri)
	if maxPoolSize > 0 {
		opts.SetMaxPoolSize(maxPoolSize)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// Backend adapts a *mongo.Client to store.Backend.
type Backend struct {
	client *mongo.Client
}

func New(client *mongo.Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Open(ctx context.Context) (store.Conn, error) {
	sess, err := b.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return &conn{client: b.client, sess: sess}, nil
}

func (b *Backend) Disconnect(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

type conn struct {
	client *mongo.Client
	sess   mongo.Session
}

func (c *conn) Database(name string) store.Database {
	return &database{db: c.client.Database(name), sess: c.sess}
}

func (c *conn) Close(ctx context.Context) error {
	c.sess.EndSession(ctx)
	return nil
}

type database struct {
	db   *mongo.Database
	sess mongo.Session
}

func (d *database) Name() string { return d.db.Name() }

func (d *database) Collection(name string) store.Collection {
	return &collection{coll: d.db.Collection(name), sess: d.sess}
}

func (d *database) Ping(ctx context.Context) error {
	return d.db.Client().Ping(mongo.NewSessionContext(ctx, d.sess), readpref.Primary())
}

type collection struct {
	coll *mongo.Collection
	sess mongo.Session
}

func (c *collection) bind(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, c.sess)
}

// The driver rejects a nil filter document.
func orEmpty(filter store.Document) store.Document {
	if filter == nil {
		return bson.M{}
	}
	return filter
}

func (c *collection) FindOne(ctx context.Context, filter store.Document) (store.Document, error) {
	var doc bson.M
	err := c.coll.FindOne(c.bind(ctx), orEmpty(filter)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *collection) Find(ctx context.Context, filter store.Document, opts store.FindOptions) ([]store.Document, error) {
	ctx = c.bind(ctx)

	findOptions := options.Find()
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, k := range opts.Sort {
			dir := 1
			if k.Descending {
				dir = -1
			}
			sort = append(sort, bson.E{Key: k.Field, Value: dir})
		}
		findOptions.SetSort(sort)
	}
	if len(opts.Projection) > 0 {
		findOptions.SetProjection(opts.Projection)
	}

	cursor, err := c.coll.Find(ctx, orEmpty(filter), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]store.Document, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *collection) InsertOne(ctx context.Context, doc store.Document) (any, error) {
	res, err := c.coll.InsertOne(c.bind(ctx), doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %w", store.ErrDuplicateKey, err)
		}
		return nil, err
	}
	return res.InsertedID, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter, set store.Document) (store.UpdateResult, error) {
	res, err := c.coll.UpdateOne(c.bind(ctx), orEmpty(filter), bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.UpdateResult{}, fmt.Errorf("%w: %w", store.ErrDuplicateKey, err)
		}
		return store.UpdateResult{}, err
	}
	return store.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (c *collection) CountDocuments(ctx context.Context, filter store.Document) (int64, error) {
	return c.coll.CountDocuments(c.bind(ctx), orEmpty(filter))
}

func (c *collection) EnsureUniqueIndex(ctx context.Context, field string) error {
	_, err := c.coll.Indexes().CreateOne(c.bind(ctx), mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{field: bson.M{"$type": "string"}}),
	})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: unique index on %s.%s: %w", store.ErrDuplicateKey, c.coll.Name(), field, err)
	}
	if err != nil {
		return fmt.Errorf("failed to create unique index on %s.%s: %w", c.coll.Name(), field, err)
	}
	return nil
}
