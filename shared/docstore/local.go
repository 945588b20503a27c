package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/bytedance/sonic"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var errStoreClosed = errors.New("store is closed")

// LocalDocStore is an in-process DocStore that understands the same filter,
// update and find-option dialect as the mongo backend. With a file path the
// data is written after every mutation as canonical Extended JSON.
type LocalDocStore struct {
	filePath string
	mu       sync.RWMutex
	data     map[string][]bson.Raw // collection -> documents in insertion order
	closed   bool
}

func NewLocalDocStore(filePath string) (*LocalDocStore, error) {
	store := &LocalDocStore{
		filePath: filePath,
		data:     make(map[string][]bson.Raw),
	}
	if filePath == "" {
		return store, nil
	}
	if err := store.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return store, nil
}

// withID returns doc as BSON with an _id, generating an ObjectID when missing
func withID(document interface{}) (bson.Raw, interface{}, error) {
	d, err := toDoc(document)
	if err != nil {
		return nil, nil, err
	}
	id, ok := lookup(d, "_id")
	if !ok || id == nil {
		id = primitive.NewObjectID()
		d = append(bson.D{{Key: "_id", Value: id}}, d...)
	}
	raw, err := bson.Marshal(d)
	if err != nil {
		return nil, nil, err
	}
	return raw, id, nil
}

func (l *LocalDocStore) hasID(collection string, id interface{}) bool {
	for _, raw := range l.data[collection] {
		if existing, err := raw.LookupErr("_id"); err == nil {
			var v interface{}
			if err := existing.Unmarshal(&v); err == nil && valuesEqual(v, id) {
				return true
			}
		}
	}
	return false
}

func (l *LocalDocStore) InsertOne(ctx context.Context, collection string, document interface{}) (interface{}, error) {
	ids, err := l.InsertMany(ctx, collection, []interface{}{document})
	if err != nil {
		return nil, err
	}
	return ids[0], nil
}

// InsertMany is all-or-nothing: nothing is stored unless every document is accepted
func (l *LocalDocStore) InsertMany(ctx context.Context, collection string, documents []interface{}) ([]interface{}, error) {
	if len(documents) == 0 {
		return nil, errors.New("must provide at least one document")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errStoreClosed
	}

	raws := make([]bson.Raw, 0, len(documents))
	ids := make([]interface{}, 0, len(documents))
	for i, doc := range documents {
		if doc == nil {
			return nil, mongo.ErrNilDocument
		}
		raw, id, err := withID(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		dup := l.hasID(collection, id)
		for _, prev := range ids {
			dup = dup || valuesEqual(prev, id)
		}
		if dup {
			return nil, fmt.Errorf("document %d: duplicate key _id %v", i, id)
		}
		raws = append(raws, raw)
		ids = append(ids, id)
	}

	l.data[collection] = append(l.data[collection], raws...)
	if err := l.save(); err != nil {
		l.data[collection] = l.data[collection][:len(l.data[collection])-len(raws)]
		return nil, err
	}
	return ids, nil
}

type match struct {
	index int
	doc   bson.D
}

// query returns matching documents of a collection, sorted and limited
func (l *LocalDocStore) query(collection string, filter interface{}, opts *FindOptions) ([]match, error) {
	f, err := toDoc(filter)
	if err != nil {
		return nil, err
	}
	var found []match
	for i, raw := range l.data[collection] {
		var doc bson.D
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		ok, err := matches(doc, f)
		if err != nil {
			return nil, err
		}
		if ok {
			found = append(found, match{index: i, doc: doc})
		}
	}
	if opts == nil {
		return found, nil
	}
	if len(opts.Sort) > 0 {
		docs := make([]bson.D, len(found))
		for i, m := range found {
			docs[i] = m.doc
		}
		order, err := orderBy(docs, opts.Sort)
		if err != nil {
			return nil, err
		}
		sorted := make([]match, len(found))
		for i, pos := range order {
			sorted[i] = found[pos]
		}
		found = sorted
	}
	if opts.Limit > 0 && int64(len(found)) > opts.Limit {
		found = found[:opts.Limit]
	}
	return found, nil
}

func (l *LocalDocStore) FindOne(ctx context.Context, collection string, filter interface{}, opts *FindOptions, result interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return errStoreClosed
	}
	found, err := l.query(collection, filter, opts)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return ErrNoDocuments
	}
	return decodeProjected(found[0].doc, opts, result)
}

func (l *LocalDocStore) FindMany(ctx context.Context, collection string, filter interface{}, opts *FindOptions, results interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return errStoreClosed
	}
	found, err := l.query(collection, filter, opts)
	if err != nil {
		return err
	}
	docs := make([]interface{}, 0, len(found))
	for _, m := range found {
		d := m.doc
		if opts != nil {
			if d, err = project(d, opts.Projection); err != nil {
				return err
			}
		}
		docs = append(docs, d)
	}
	if len(docs) == 0 {
		// cursor.All leaves an empty, non-nil slice behind
		rv := reflect.ValueOf(results)
		if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
			return fmt.Errorf("results argument must be a pointer to a slice, but was a %s", rv.Kind())
		}
		rv.Elem().Set(reflect.MakeSlice(rv.Elem().Type(), 0, 0))
		return nil
	}
	cursor, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}

func (l *LocalDocStore) FindOneAndUpdate(ctx context.Context, collection string, filter, update interface{}, opts *FindOptions, result interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := toDoc(update)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errStoreClosed
	}
	found, err := l.query(collection, filter, opts)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return ErrNoDocuments
	}
	target := found[0]
	updated, err := applyUpdate(target.doc, u)
	if err != nil {
		return err
	}
	raw, err := bson.Marshal(updated)
	if err != nil {
		return err
	}
	prev := l.data[collection][target.index]
	l.data[collection][target.index] = raw
	if err := l.save(); err != nil {
		l.data[collection][target.index] = prev
		return err
	}
	return decodeProjected(updated, opts, result)
}

func (l *LocalDocStore) FindOneAndDelete(ctx context.Context, collection string, filter interface{}, opts *FindOptions, result interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errStoreClosed
	}
	found, err := l.query(collection, filter, opts)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return ErrNoDocuments
	}
	if err := l.removeIndexes(collection, []int{found[0].index}); err != nil {
		return err
	}
	return decodeProjected(found[0].doc, opts, result)
}

func (l *LocalDocStore) DeleteMany(ctx context.Context, collection string, filter interface{}) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, errStoreClosed
	}
	found, err := l.query(collection, filter, nil)
	if err != nil {
		return 0, err
	}
	if len(found) == 0 {
		return 0, nil
	}
	idx := make([]int, len(found))
	for i, m := range found {
		idx[i] = m.index
	}
	if err := l.removeIndexes(collection, idx); err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

func (l *LocalDocStore) removeIndexes(collection string, indexes []int) error {
	drop := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		drop[i] = true
	}
	prev := l.data[collection]
	kept := make([]bson.Raw, 0, len(prev)-len(drop))
	for i, raw := range prev {
		if !drop[i] {
			kept = append(kept, raw)
		}
	}
	l.data[collection] = kept
	if err := l.save(); err != nil {
		l.data[collection] = prev
		return err
	}
	return nil
}

func (l *LocalDocStore) CountDocuments(ctx context.Context, collection string, filter interface{}) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return 0, errStoreClosed
	}
	found, err := l.query(collection, filter, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

// Close marks the store closed; data already lives on disk after each write
func (l *LocalDocStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func decodeProjected(doc bson.D, opts *FindOptions, result interface{}) error {
	if opts != nil {
		var err error
		if doc, err = project(doc, opts.Projection); err != nil {
			return err
		}
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, result)
}

// save writes {collection: [extJSON doc, ...]} to the backing file
func (l *LocalDocStore) save() error {
	if l.filePath == "" {
		return nil
	}
	out := make(map[string][]json.RawMessage, len(l.data))
	for coll, docs := range l.data {
		encoded := make([]json.RawMessage, 0, len(docs))
		for _, raw := range docs {
			b, err := bson.MarshalExtJSON(raw, true, false)
			if err != nil {
				return err
			}
			encoded = append(encoded, b)
		}
		out[coll] = encoded
	}
	b, err := sonic.Marshal(out)
	if err != nil {
		return err
	}
	tmp := l.filePath + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, l.filePath)
}

func (l *LocalDocStore) load() error {
	b, err := os.ReadFile(l.filePath)
	if err != nil {
		return err
	}
	var in map[string][]json.RawMessage
	if err := sonic.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("corrupt store file %s: %w", l.filePath, err)
	}
	for coll, docs := range in {
		raws := make([]bson.Raw, 0, len(docs))
		for _, ext := range docs {
			var d bson.D
			if err := bson.UnmarshalExtJSON(ext, true, &d); err != nil {
				return fmt.Errorf("corrupt document in %s: %w", coll, err)
			}
			raw, err := bson.Marshal(d)
			if err != nil {
				return err
			}
			raws = append(raws, raw)
		}
		l.data[coll] = raws
	}
	return nil
}
