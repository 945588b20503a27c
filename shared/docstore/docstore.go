package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DocStore is a document store modeled after the MongoDB collection API.
// Filters are equality documents (bson.M / bson.D); array fields match when
// they contain the value. Updates use $set and $push.
type DocStore interface {
	InsertOne(ctx context.Context, collection string, document interface{}) (insertedID interface{}, err error)
	InsertMany(ctx context.Context, collection string, documents []interface{}) (insertedIDs []interface{}, err error)
	FindOne(ctx context.Context, collection string, filter interface{}, opts *FindOptions, result interface{}) error
	FindMany(ctx context.Context, collection string, filter interface{}, opts *FindOptions, results interface{}) error
	// FindOneAndUpdate applies update to the first match (by opts.Sort) and decodes the updated document
	FindOneAndUpdate(ctx context.Context, collection string, filter, update interface{}, opts *FindOptions, result interface{}) error
	// FindOneAndDelete removes the first match and decodes the removed document
	FindOneAndDelete(ctx context.Context, collection string, filter interface{}, opts *FindOptions, result interface{}) error
	DeleteMany(ctx context.Context, collection string, filter interface{}) (deleted int64, err error)
	CountDocuments(ctx context.Context, collection string, filter interface{}) (int64, error)
	Close() error
}

// FindOptions shapes a query. Zero values mean "not set".
type FindOptions struct {
	Sort       bson.D // field -> 1 ascending, -1 descending
	Limit      int64
	Projection bson.M // field -> 0 to exclude, 1 to include
}

// ErrNoDocuments is returned by single-document operations when nothing matches
var ErrNoDocuments = mongo.ErrNoDocuments

const (
	BackendMongo = "mongo"
	BackendLocal = "local"
)

// Config selects and configures a backend
type Config struct {
	Backend        string
	URI            string
	Database       string
	LocalFile      string // local backend only; empty keeps data in memory
	ConnectTimeout time.Duration
}

const (
	defaultConnectTimeout = 10 * time.Second
	// same default database the mongo shell and mongoose fall back to
	defaultDatabase = "test"
)

// ConnectionError reports that a store could not be reached or opened.
// Nothing can proceed without a connection.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s store connection failed: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Connect opens the backend named by cfg.Backend (default mongo)
func Connect(ctx context.Context, cfg Config) (DocStore, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMongo:
		return NewMongoDocStore(ctx, cfg)
	case BackendLocal:
		store, err := NewLocalDocStore(cfg.LocalFile)
		if err != nil {
			return nil, &ConnectionError{Backend: BackendLocal, Err: err}
		}
		return store, nil
	default:
		return nil, &ConnectionError{Backend: cfg.Backend, Err: fmt.Errorf("unknown backend %q", cfg.Backend)}
	}
}
