package person

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crudgomodule/shared/docstore"
	"crudgomodule/shared/logging"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func newTestRepository(t *testing.T) (*Repository, docstore.DocStore) {
	t.Helper()
	store, err := docstore.NewLocalDocStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewRepository(store, RepositoryConfig{}, logging.NewMockLogger()), store
}

func TestInsertOneDefaultsFavoriteFoods(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.InsertOne(ctx, "Alice", nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, p.FavoriteFoods)
	assert.Empty(t, p.FavoriteFoods)
	assert.Nil(t, p.Age)

	// stored as an empty array, not null or absent
	var raw bson.M
	oid, _ := ParseID(p.ID)
	require.NoError(t, store.FindOne(ctx, DefaultCollection, bson.M{"_id": oid}, nil, &raw))
	assert.Equal(t, bson.A{}, raw["favoriteFoods"])
	assert.NotContains(t, raw, "age")
}

func TestInsertOneRequiresName(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.InsertOne(ctx, "", IntPtr(30), []string{"pizza"})
	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "name is required")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertThenFindByIDRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	faker := gofakeit.New(7)

	for i := 0; i < 20; i++ {
		var age *int
		if i%3 != 0 {
			age = IntPtr(faker.Number(1, 99))
		}
		foods := make([]string, faker.Number(0, 4))
		for j := range foods {
			foods[j] = faker.Snack()
		}
		name := faker.Name()

		created, err := repo.InsertOne(ctx, name, age, foods)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		fetched, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, *created, *fetched)
		assert.Equal(t, name, fetched.Name)
		assert.Equal(t, age, fetched.Age)
		assert.Equal(t, foods, fetched.FavoriteFoods)
	}
}

func TestInsertManyAllOrNothing(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.InsertMany(ctx, []NewPerson{
		{Name: "Bob", Age: IntPtr(25), FavoriteFoods: []string{"sushi"}},
		{Age: IntPtr(22)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "record 1")

	n, _ := repo.Count(ctx)
	assert.Zero(t, n)

	created, err := repo.InsertMany(ctx, []NewPerson{
		{Name: "Bob", Age: IntPtr(25), FavoriteFoods: []string{"sushi"}},
		{Name: "Mary", Age: IntPtr(22), FavoriteFoods: []string{"tacos"}},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "Bob", created[0].Name)
	assert.Equal(t, "Mary", created[1].Name)
	assert.NotEqual(t, created[0].ID, created[1].ID)

	empty, err := repo.InsertMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindByName(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	first, _ := repo.InsertOne(ctx, "Alice", IntPtr(30), nil)
	_, _ = repo.InsertOne(ctx, "Bob", nil, nil)
	second, _ := repo.InsertOne(ctx, "Alice", IntPtr(41), nil)

	found, err := repo.FindByName(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, first.ID, found[0].ID)
	assert.Equal(t, second.ID, found[1].ID)

	none, err := repo.FindByName(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFindOneByFavoriteFoodPicksEarliest(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	alice, _ := repo.InsertOne(ctx, "Alice", nil, []string{"pizza", "burrito"})
	_, _ = repo.InsertOne(ctx, "Aaron", nil, []string{"burrito"})

	p, err := repo.FindOneByFavoriteFood(ctx, "burrito")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, alice.ID, p.ID)

	p, err = repo.FindOneByFavoriteFood(ctx, "lasagna")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFindByIDNotFoundAndInvalid(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.FindByID(ctx, "64b0b9e2c7f9c947f1a0575b")
	require.NoError(t, err)
	assert.Nil(t, p)

	for _, bad := range []string{"", "not-an-id", "64b0b9e2c7f9c947f1a0575", "zzb0b9e2c7f9c947f1a0575b"} {
		_, err := repo.FindByID(ctx, bad)
		assert.True(t, errors.Is(err, ErrInvalidID), "id %q", bad)
	}
}

func TestAppendFavoriteFood(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	alice, err := repo.InsertOne(ctx, "Alice", IntPtr(30), []string{"pizza", "burrito"})
	require.NoError(t, err)

	updated, err := repo.AppendFavoriteFood(ctx, alice.ID, "hamburger")
	require.NoError(t, err)
	assert.Equal(t, []string{"pizza", "burrito", "hamburger"}, updated.FavoriteFoods)
	assert.Equal(t, 30, *updated.Age)

	// duplicates are allowed
	updated, err = repo.AppendFavoriteFood(ctx, alice.ID, "pizza")
	require.NoError(t, err)
	assert.Equal(t, []string{"pizza", "burrito", "hamburger", "pizza"}, updated.FavoriteFoods)

	_, err = repo.AppendFavoriteFood(ctx, "64b0b9e2c7f9c947f1a0575b", "hamburger")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.AppendFavoriteFood(ctx, "bogus", "hamburger")
	assert.True(t, errors.Is(err, ErrInvalidID))

	_, err = repo.AppendFavoriteFood(ctx, alice.ID, "")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestAppendFavoriteFoodConcurrent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	p, err := repo.InsertOne(ctx, "Alice", nil, nil)
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AppendFavoriteFood(ctx, p.ID, "taco")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.FavoriteFoods, workers)
}

func TestUpdateAgeByName(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	bob1, _ := repo.InsertOne(ctx, "Bob", IntPtr(25), []string{"sushi"})
	bob2, _ := repo.InsertOne(ctx, "Bob", IntPtr(61), nil)

	updated, err := repo.UpdateAgeByName(ctx, "Bob", 20)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, bob1.ID, updated.ID)
	assert.Equal(t, 20, *updated.Age)
	assert.Equal(t, []string{"sushi"}, updated.FavoriteFoods)

	untouched, _ := repo.FindByID(ctx, bob2.ID)
	assert.Equal(t, 61, *untouched.Age)

	missing, err := repo.UpdateAgeByName(ctx, "Nobody", 20)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteByIDIsIdempotent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	p, _ := repo.InsertOne(ctx, "Carl", nil, nil)

	removed, err := repo.DeleteByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, p.ID, removed.ID)

	again, err := repo.DeleteByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	_, err = repo.DeleteByID(ctx, "nope")
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestDeleteManyByName(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	n, err := repo.DeleteManyByName(ctx, "Mary")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, _ = repo.InsertMany(ctx, []NewPerson{{Name: "Mary"}, {Name: "Bob"}, {Name: "Mary"}})
	n, err = repo.DeleteManyByName(ctx, "Mary")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, _ := repo.Count(ctx)
	assert.Equal(t, int64(1), left)
}

func TestFindBurritoLovers(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.InsertMany(ctx, []NewPerson{
		{Name: "Dave", Age: IntPtr(40), FavoriteFoods: []string{"burrito"}},
		{Name: "Amy", Age: IntPtr(31), FavoriteFoods: []string{"burrito"}},
		{Name: "Zoe", Age: IntPtr(25), FavoriteFoods: []string{"burrito"}},
		{Name: "Abe", Age: IntPtr(70), FavoriteFoods: []string{"sushi"}},
	})
	require.NoError(t, err)

	lovers, err := repo.FindBurritoLovers(ctx)
	require.NoError(t, err)
	require.Len(t, lovers, 2)
	assert.Equal(t, "Amy", lovers[0].Name)
	assert.Equal(t, "Dave", lovers[1].Name)
	for _, p := range lovers {
		assert.Nil(t, p.Age)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, []string{"burrito"}, p.FavoriteFoods)
	}

	all, err := repo.FindFoodLovers(ctx, "burrito", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOperationTimeoutApplies(t *testing.T) {
	store, err := docstore.NewLocalDocStore("")
	require.NoError(t, err)
	repo := NewRepository(store, RepositoryConfig{OperationTimeout: time.Nanosecond}, logging.NewMockLogger())

	time.Sleep(time.Millisecond)
	_, err = repo.InsertOne(context.Background(), "Late", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
