// Package store defines the document-store contract used by the HTTP
// handlers and the Manager that leases one connection per request.
//
// Backends (MongoDB, in-memory) implement Backend; handlers only ever see
// Database and Collection through Manager.With, which guarantees the lease is
// released on every exit path.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrNotFound is returned by FindOne when nothing matches the filter.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateKey is returned when a write violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnavailable is returned when no connection could be acquired.
	ErrUnavailable = errors.New("store unavailable")
)

// Document is a schema-less store document. It doubles as a
// query-by-example filter and as a projection.
type Document = bson.M

// SortKey orders Find results by one field.
type SortKey struct {
	Field      string
	Descending bool
}

// Asc sorts by field in ascending order.
func Asc(field string) SortKey { return SortKey{Field: field} }

// FindOptions tunes a Find call. Projection follows MongoDB semantics:
// 1/true includes a field, 0/false excludes it; the two are not mixed
// except for _id.
type FindOptions struct {
	Sort       []SortKey
	Projection Document
}

// UpdateResult reports what an UpdateOne touched.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Collection is a named set of documents within one Database.
type Collection interface {
	FindOne(ctx context.Context, filter Document) (Document, error)
	Find(ctx context.Context, filter Document, opts FindOptions) ([]Document, error)
	InsertOne(ctx context.Context, doc Document) (any, error)
	// UpdateOne applies a $set of fields to the first matching document.
	// Matching nothing is not an error.
	UpdateOne(ctx context.Context, filter, set Document) (UpdateResult, error)
	CountDocuments(ctx context.Context, filter Document) (int64, error)
	// EnsureUniqueIndex makes field unique among documents where it holds a
	// string. Documents without it, or with another type, are not indexed.
	// Existing duplicates fail with ErrDuplicateKey.
	EnsureUniqueIndex(ctx context.Context, field string) error
}

// Database is one logical database reached through a leased connection.
type Database interface {
	Name() string
	Collection(name string) Collection
	Ping(ctx context.Context) error
}

// Conn is a single backend connection. Close must be safe to call once per
// Open; the Manager never calls it twice.
type Conn interface {
	Database(name string) Database
	Close(ctx context.Context) error
}

// Backend opens connections to the store.
type Backend interface {
	Open(ctx context.Context) (Conn, error)
	Disconnect(ctx context.Context) error
}
