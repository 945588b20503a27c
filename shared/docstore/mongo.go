package docstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

type MongoDocStore struct {
	client    *mongo.Client
	dbName    string
	timeout   time.Duration
	closeOnce sync.Once
	closeErr  error
}

// NewMongoDocStore connects to cfg.URI and pings the primary. The database
// comes from cfg.Database, then the URI path, then "test".
func NewMongoDocStore(ctx context.Context, cfg Config) (*MongoDocStore, error) {
	if cfg.URI == "" {
		return nil, &ConnectionError{Backend: BackendMongo, Err: errors.New("connection URI is empty")}
	}
	cs, err := connstring.ParseAndValidate(cfg.URI)
	if err != nil {
		return nil, &ConnectionError{Backend: BackendMongo, Err: err}
	}
	dbName := cfg.Database
	if dbName == "" {
		dbName = cs.Database
	}
	if dbName == "" {
		dbName = defaultDatabase
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, &ConnectionError{Backend: BackendMongo, Err: err}
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &ConnectionError{Backend: BackendMongo, Err: err}
	}

	return &MongoDocStore{client: client, dbName: dbName, timeout: timeout}, nil
}

// Database returns the name of the database collections are opened in
func (m *MongoDocStore) Database() string { return m.dbName }

func (m *MongoDocStore) coll(name string) *mongo.Collection {
	return m.client.Database(m.dbName).Collection(name)
}

func (m *MongoDocStore) InsertOne(ctx context.Context, collection string, document interface{}) (interface{}, error) {
	res, err := m.coll(collection).InsertOne(ctx, document)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (m *MongoDocStore) InsertMany(ctx context.Context, collection string, documents []interface{}) ([]interface{}, error) {
	res, err := m.coll(collection).InsertMany(ctx, documents)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

func (m *MongoDocStore) FindOne(ctx context.Context, collection string, filter interface{}, opts *FindOptions, result interface{}) error {
	fo := options.FindOne()
	if opts != nil {
		if len(opts.Sort) > 0 {
			fo.SetSort(opts.Sort)
		}
		if len(opts.Projection) > 0 {
			fo.SetProjection(opts.Projection)
		}
	}
	return m.coll(collection).FindOne(ctx, filter, fo).Decode(result)
}

func (m *MongoDocStore) FindMany(ctx context.Context, collection string, filter interface{}, opts *FindOptions, results interface{}) error {
	fo := options.Find()
	if opts != nil {
		if len(opts.Sort) > 0 {
			fo.SetSort(opts.Sort)
		}
		if opts.Limit > 0 {
			fo.SetLimit(opts.Limit)
		}
		if len(opts.Projection) > 0 {
			fo.SetProjection(opts.Projection)
		}
	}
	cursor, err := m.coll(collection).Find(ctx, filter, fo)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, results)
}

func (m *MongoDocStore) FindOneAndUpdate(ctx context.Context, collection string, filter, update interface{}, opts *FindOptions, result interface{}) error {
	fo := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if opts != nil {
		if len(opts.Sort) > 0 {
			fo.SetSort(opts.Sort)
		}
		if len(opts.Projection) > 0 {
			fo.SetProjection(opts.Projection)
		}
	}
	return m.coll(collection).FindOneAndUpdate(ctx, filter, update, fo).Decode(result)
}

func (m *MongoDocStore) FindOneAndDelete(ctx context.Context, collection string, filter interface{}, opts *FindOptions, result interface{}) error {
	fo := options.FindOneAndDelete()
	if opts != nil {
		if len(opts.Sort) > 0 {
			fo.SetSort(opts.Sort)
		}
		if len(opts.Projection) > 0 {
			fo.SetProjection(opts.Projection)
		}
	}
	return m.coll(collection).FindOneAndDelete(ctx, filter, fo).Decode(result)
}

func (m *MongoDocStore) DeleteMany(ctx context.Context, collection string, filter interface{}) (int64, error) {
	res, err := m.coll(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *MongoDocStore) CountDocuments(ctx context.Context, collection string, filter interface{}) (int64, error) {
	return m.coll(collection).CountDocuments(ctx, filter)
}

// Close disconnects the client. Later calls return the first result.
func (m *MongoDocStore) Close() error {
	m.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		m.closeErr = m.client.Disconnect(ctx)
	})
	return m.closeErr
}
