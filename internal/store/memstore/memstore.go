// Package memstore is an in-memory store.Backend. It follows MongoDB
// semantics closely enough for the API's operations: equality filters
// (dotted paths and array elements included), sorts, include/exclude
// projections, $set updates and unique indexes that are partial over string
// values like the ones mongostore creates.
//
// Query operators are not supported, and $set keys are stored literally
// rather than as dotted paths.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/auc-api/internal/store"
)

var errOperator = errors.New("memstore: operator filters are not supported")

type collection struct {
	docs   []bson.M
	unique []string
}

// Store holds every database and collection. The zero value is not usable;
// call New.
type Store struct {
	mu   sync.Mutex
	data map[string]map[string]*collection

	opened atomic.Int64
	closed atomic.Int64

	openErr error
	pingErr error
}

func New() *Store {
	return &Store{data: make(map[string]map[string]*collection)}
}

// FailOpen makes every subsequent Open return err (nil restores).
func (s *Store) FailOpen(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

// FailPing makes every subsequent Ping return err (nil restores).
func (s *Store) FailPing(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

// Opened and Closed count connections for leak assertions.
func (s *Store) Opened() int64 { return s.opened.Load() }
func (s *Store) Closed() int64 { return s.closed.Load() }

// Seed inserts docs into db.coll without index checks.
func (s *Store) Seed(db, coll string, docs ...bson.M) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(db, coll)
	for _, d := range docs {
		d = deepCopy(d)
		if _, ok := d["_id"]; !ok {
			d["_id"] = primitive.NewObjectID()
		}
		c.docs = append(c.docs, d)
	}
}

// Docs returns a copy of every document in db.coll in insertion order.
func (s *Store) Docs(db, coll string) []bson.M {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(db, coll)
	out := make([]bson.M, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, deepCopy(d))
	}
	return out
}

func (s *Store) coll(db, name string) *collection {
	colls, ok := s.data[db]
	if !ok {
		colls = make(map[string]*collection)
		s.data[db] = colls
	}
	c, ok := colls[name]
	if !ok {
		c = &collection{}
		colls[name] = c
	}
	return c
}

func (s *Store) Open(ctx context.Context) (store.Conn, error) {
	s.mu.Lock()
	err := s.openErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.opened.Add(1)
	return &conn{s: s}, nil
}

func (s *Store) Disconnect(ctx context.Context) error { return nil }

type conn struct {
	s      *Store
	closed atomic.Bool
}

func (c *conn) Database(name string) store.Database {
	return &database{s: c.s, name: name}
}

func (c *conn) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return errors.New("memstore: connection already closed")
	}
	c.s.closed.Add(1)
	return nil
}

type database struct {
	s    *Store
	name string
}

func (d *database) Name() string { return d.name }

func (d *database) Collection(name string) store.Collection {
	return &collectionView{s: d.s, db: d.name, name: name}
}

func (d *database) Ping(ctx context.Context) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return d.s.pingErr
}

type collectionView struct {
	s    *Store
	db   string
	name string
}

func (v *collectionView) FindOne(ctx context.Context, filter store.Document) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	c := v.s.coll(v.db, v.name)
	for _, d := range c.docs {
		ok, err := matches(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return deepCopy(d), nil
		}
	}
	return nil, store.ErrNotFound
}

func (v *collectionView) Find(ctx context.Context, filter store.Document, opts store.FindOptions) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	c := v.s.coll(v.db, v.name)
	out := make([]store.Document, 0)
	for _, d := range c.docs {
		ok, err := matches(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, deepCopy(d))
		}
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, k := range opts.Sort {
				r := compare(out[i][k.Field], out[j][k.Field])
				if r == 0 {
					continue
				}
				if k.Descending {
					return r > 0
				}
				return r < 0
			}
			return false
		})
	}

	if len(opts.Projection) > 0 {
		for i, d := range out {
			out[i] = project(d, opts.Projection)
		}
	}
	return out, nil
}

func (v *collectionView) InsertOne(ctx context.Context, doc store.Document) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	c := v.s.coll(v.db, v.name)
	d := deepCopy(doc)
	if _, ok := d["_id"]; !ok {
		d["_id"] = primitive.NewObjectID()
	}
	for _, existing := range c.docs {
		if equal(existing["_id"], d["_id"]) {
			return nil, fmt.Errorf("%w: %s._id %v", store.ErrDuplicateKey, v.name, d["_id"])
		}
	}
	for _, field := range c.unique {
		if !indexed(d[field]) {
			continue
		}
		for _, existing := range c.docs {
			if equal(existing[field], d[field]) {
				return nil, fmt.Errorf("%w: %s.%s %v", store.ErrDuplicateKey, v.name, field, d[field])
			}
		}
	}
	c.docs = append(c.docs, d)
	return d["_id"], nil
}

func (v *collectionView) UpdateOne(ctx context.Context, filter, set store.Document) (store.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return store.UpdateResult{}, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	c := v.s.coll(v.db, v.name)
	for i, d := range c.docs {
		ok, err := matches(d, filter)
		if err != nil {
			return store.UpdateResult{}, err
		}
		if !ok {
			continue
		}

		for _, field := range c.unique {
			val, touched := set[field]
			if !touched || !indexed(val) {
				continue
			}
			for j, other := range c.docs {
				if j != i && equal(other[field], val) {
					return store.UpdateResult{}, fmt.Errorf("%w: %s.%s %v", store.ErrDuplicateKey, v.name, field, val)
				}
			}
		}

		res := store.UpdateResult{Matched: 1}
		for k, val := range set {
			if cur, exists := d[k]; !exists || !equal(cur, val) {
				res.Modified = 1
			}
			d[k] = copyValue(val)
		}
		return res, nil
	}
	return store.UpdateResult{}, nil
}

func (v *collectionView) CountDocuments(ctx context.Context, filter store.Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	var n int64
	for _, d := range v.s.coll(v.db, v.name).docs {
		ok, err := matches(d, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (v *collectionView) EnsureUniqueIndex(ctx context.Context, field string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	c := v.s.coll(v.db, v.name)
	for _, f := range c.unique {
		if f == field {
			return nil
		}
	}
	for i := range c.docs {
		if !indexed(c.docs[i][field]) {
			continue
		}
		for j := i + 1; j < len(c.docs); j++ {
			if equal(c.docs[i][field], c.docs[j][field]) {
				return fmt.Errorf("%w: existing %s.%s values collide", store.ErrDuplicateKey, v.name, field)
			}
		}
	}
	c.unique = append(c.unique, field)
	return nil
}

// Unique indexes are partial: only string values take part, so documents
// missing the field never collide.
func indexed(v any) bool {
	_, ok := v.(string)
	return ok
}

func matches(doc, filter bson.M) (bool, error) {
	for k, want := range filter {
		if strings.HasPrefix(k, "$") {
			return false, errOperator
		}
		if !matchPath(doc, strings.Split(k, "."), want) {
			return false, nil
		}
	}
	return true, nil
}

// matchPath resolves a dotted key the way MongoDB does: arrays met on the
// way are searched element by element, and an array at the end matches when
// it equals want or holds an element equal to want. A missing field is null.
func matchPath(v any, path []string, want any) bool {
	if len(path) == 0 {
		if equal(v, want) {
			return true
		}
		if arr, ok := asArray(v); ok {
			for _, e := range arr {
				if equal(e, want) {
					return true
				}
			}
		}
		return false
	}

	if m, ok := asDoc(v); ok {
		child, found := m[path[0]]
		if !found {
			return want == nil
		}
		return matchPath(child, path[1:], want)
	}
	if arr, ok := asArray(v); ok {
		for _, e := range arr {
			if _, isDoc := asDoc(e); isDoc && matchPath(e, path, want) {
				return true
			}
		}
		return false
	}
	return want == nil
}

func asDoc(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]any:
		return t, true
	}
	return nil, false
}

func asArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case bson.A:
		return t, true
	case []any:
		return t, true
	}
	return nil, false
}

// project applies a MongoDB-style projection to a copy of doc.
func project(doc, proj bson.M) bson.M {
	include := false
	for k, v := range proj {
		if k != "_id" && truthy(v) {
			include = true
			break
		}
	}

	out := bson.M{}
	if include {
		if idSpec, ok := proj["_id"]; !ok || truthy(idSpec) {
			if id, ok := doc["_id"]; ok {
				out["_id"] = id
			}
		}
		for k, v := range proj {
			if k == "_id" || !truthy(v) {
				continue
			}
			if val, ok := doc[k]; ok {
				out[k] = val
			}
		}
		return out
	}

	for k, v := range doc {
		if s, ok := proj[k]; ok && !truthy(s) {
			continue
		}
		out[k] = v
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func integer(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}

func equal(a, b any) bool {
	if ia, ok := integer(a); ok {
		if ib, ok := integer(b); ok {
			return ia == ib
		}
	}
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// normalize maps bson container types onto plain Go ones so documents that
// arrived through JSON compare equal to documents built in code.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		return normalize(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case bson.A:
		return normalize([]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}
	if f, ok := number(v); ok {
		return f
	}
	return v
}

// Type ranks roughly follow MongoDB's BSON comparison order.
func rank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := number(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case bson.M, map[string]any:
		return 3
	case bson.A, []any:
		return 4
	case primitive.ObjectID:
		return 5
	case bool:
		return 6
	}
	return 7
}

func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		fa, _ := number(a)
		fb, _ := number(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 5:
		oa, ob := a.(primitive.ObjectID), b.(primitive.ObjectID)
		return strings.Compare(oa.Hex(), ob.Hex())
	case 6:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	}
	return 0
}

func deepCopy(d bson.M) bson.M {
	out := make(bson.M, len(d))
	for k, v := range d {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return deepCopy(t)
	case map[string]any:
		return map[string]any(deepCopy(bson.M(t)))
	case bson.A:
		out := make(bson.A, len(t))
		for i, val := range t {
			out[i] = copyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = copyValue(val)
		}
		return out
	}
	return v
}
