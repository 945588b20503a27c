package person

import (
	"context"
	"fmt"
	"time"

	"crudgomodule/shared/docstore"
	"crudgomodule/shared/logging"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	// DefaultCollection matches the collection name a "Person" model maps to
	DefaultCollection       = "people"
	DefaultOperationTimeout = 10 * time.Second
	burritoLoversLimit      = 2
)

// earliest inserted first; ObjectIDs grow with insertion time
var byInsertion = bson.D{{Key: "_id", Value: 1}}

// RepositoryConfig configures a Repository
type RepositoryConfig struct {
	Collection       string
	OperationTimeout time.Duration
}

// Repository implements the Person operations on top of a DocStore.
//
// When several records match a single-record operation (FindOneByFavoriteFood,
// UpdateAgeByName) the earliest inserted one is used. Lookups and deletes
// report an absent record as a nil result and a nil error.
type Repository struct {
	store      docstore.DocStore
	collection string
	timeout    time.Duration
	logger     logging.Logger
}

func NewRepository(store docstore.DocStore, cfg RepositoryConfig, logger logging.Logger) *Repository {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
	return &Repository{
		store:      store,
		collection: cfg.Collection,
		timeout:    cfg.OperationTimeout,
		logger:     logger,
	}
}

func (r *Repository) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// InsertOne validates and stores a single person
func (r *Repository) InsertOne(ctx context.Context, name string, age *int, favoriteFoods []string) (*Person, error) {
	np := NewPerson{Name: name, Age: age, FavoriteFoods: favoriteFoods}
	if err := np.Validate(); err != nil {
		return nil, err
	}
	doc := toDocument(np)

	ctx, cancel := r.opContext(ctx)
	defer cancel()
	if _, err := r.store.InsertOne(ctx, r.collection, doc); err != nil {
		return nil, errors.Wrap(err, "insert person")
	}
	p := fromDocument(doc)
	r.logger.Debugw("person inserted", "id", p.ID, "name", p.Name)
	return &p, nil
}

// InsertMany validates every record before writing any of them. One invalid
// record rejects the whole batch.
func (r *Repository) InsertMany(ctx context.Context, people []NewPerson) ([]Person, error) {
	if len(people) == 0 {
		return []Person{}, nil
	}
	docs := make([]document, len(people))
	batch := make([]interface{}, len(people))
	for i, np := range people {
		if err := np.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		docs[i] = toDocument(np)
		batch[i] = docs[i]
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()
	if _, err := r.store.InsertMany(ctx, r.collection, batch); err != nil {
		return nil, errors.Wrap(err, "insert people")
	}
	r.logger.Debugw("people inserted", "count", len(docs))
	return fromDocuments(docs), nil
}

// FindByName returns every person with exactly this name, oldest record first
func (r *Repository) FindByName(ctx context.Context, name string) ([]Person, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	var docs []document
	err := r.store.FindMany(ctx, r.collection, bson.M{"name": name}, &docstore.FindOptions{Sort: byInsertion}, &docs)
	if err != nil {
		return nil, errors.Wrapf(err, "find people named %q", name)
	}
	return fromDocuments(docs), nil
}

// FindOneByFavoriteFood returns the earliest inserted person whose
// favoriteFoods contains food, or nil
func (r *Repository) FindOneByFavoriteFood(ctx context.Context, food string) (*Person, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	var doc document
	err := r.store.FindOne(ctx, r.collection, bson.M{"favoriteFoods": food}, &docstore.FindOptions{Sort: byInsertion}, &doc)
	return r.single(doc, err, "find person by favorite food %q", food)
}

// FindByID returns the person with id, or nil
func (r *Repository) FindByID(ctx context.Context, id string) (*Person, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	var doc document
	err = r.store.FindOne(ctx, r.collection, bson.M{"_id": oid}, nil, &doc)
	return r.single(doc, err, "find person %s", id)
}

// AppendFavoriteFood pushes food onto the end of the person's favoriteFoods.
// The append runs as a single $push on the store, so concurrent appends to
// the same record are not lost.
func (r *Repository) AppendFavoriteFood(ctx context.Context, id, food string) (*Person, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	if err := validate.Var(food, "required"); err != nil {
		return nil, fmt.Errorf("%w: food is required", ErrValidation)
	}
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	var doc document
	err = r.store.FindOneAndUpdate(ctx, r.collection,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"favoriteFoods": food}},
		nil, &doc)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "append favorite food to %s", id)
	}
	p := fromDocument(doc)
	return &p, nil
}

// UpdateAgeByName sets age on the earliest inserted person called name and
// returns the updated record, or nil when nobody has that name
func (r *Repository) UpdateAgeByName(ctx context.Context, name string, age int) (*Person, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	var doc document
	err := r.store.FindOneAndUpdate(ctx, r.collection,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"age": age}},
		&docstore.FindOptions{Sort: byInsertion}, &doc)
	return r.single(doc, err, "update age of %q", name)
}

// DeleteByID removes the person and returns it. Deleting an absent id
// returns nil, nil.
func (r *Repository) DeleteByID(ctx context.Context, id string) (*Person, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	var doc document
	err = r.store.FindOneAndDelete(ctx, r.collection, bson.M{"_id": oid}, nil, &doc)
	return r.single(doc, err, "delete person %s", id)
}

// DeleteManyByName removes everyone called name and returns how many were removed
func (r *Repository) DeleteManyByName(ctx context.Context, name string) (int64, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	n, err := r.store.DeleteMany(ctx, r.collection, bson.M{"name": name})
	if err != nil {
		return 0, errors.Wrapf(err, "delete people named %q", name)
	}
	return n, nil
}

// FindFoodLovers returns up to limit people who like food, sorted by name,
// without their age
func (r *Repository) FindFoodLovers(ctx context.Context, food string, limit int64) ([]Person, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	opts := &docstore.FindOptions{
		Sort:       bson.D{{Key: "name", Value: 1}},
		Limit:      limit,
		Projection: bson.M{"age": 0},
	}
	var docs []document
	if err := r.store.FindMany(ctx, r.collection, bson.M{"favoriteFoods": food}, opts, &docs); err != nil {
		return nil, errors.Wrapf(err, "find %s lovers", food)
	}
	return fromDocuments(docs), nil
}

func (r *Repository) FindBurritoLovers(ctx context.Context) ([]Person, error) {
	return r.FindFoodLovers(ctx, "burrito", burritoLoversLimit)
}

// Count returns the number of stored people
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	n, err := r.store.CountDocuments(ctx, r.collection, bson.M{})
	return n, errors.Wrap(err, "count people")
}

func (r *Repository) single(doc document, err error, format string, args ...interface{}) (*Person, error) {
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, format, args...)
	}
	p := fromDocument(doc)
	return &p, nil
}
