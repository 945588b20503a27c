package runner

import (
	"context"

	"crudgomodule/internal/person"
)

// Sample ids used by the script unless overridden. They are expected to
// refer to records created by an earlier run.
const (
	DefaultPersonID1 = "64b0b9e2c7f9c947f1a0575b"
	DefaultPersonID2 = "64b0b9e2c7f9c947f1a0575c"
)

// Step names, in script order
const (
	StepInsertOne             = "insertOne"
	StepInsertMany            = "insertMany"
	StepFindByName            = "findByName"
	StepFindOneByFavoriteFood = "findOneByFavoriteFood"
	StepFindByID              = "findById"
	StepAppendFavoriteFood    = "appendFavoriteFood"
	StepUpdateAgeByName       = "updateAgeByName"
	StepDeleteByID            = "deleteById"
	StepDeleteManyByName      = "deleteManyByName"
	StepFindBurritoLovers     = "findBurritoLovers"
)

// People is the set of person operations the script drives
type People interface {
	InsertOne(ctx context.Context, name string, age *int, favoriteFoods []string) (*person.Person, error)
	InsertMany(ctx context.Context, people []person.NewPerson) ([]person.Person, error)
	FindByName(ctx context.Context, name string) ([]person.Person, error)
	FindOneByFavoriteFood(ctx context.Context, food string) (*person.Person, error)
	FindByID(ctx context.Context, id string) (*person.Person, error)
	AppendFavoriteFood(ctx context.Context, id, food string) (*person.Person, error)
	UpdateAgeByName(ctx context.Context, name string, age int) (*person.Person, error)
	DeleteByID(ctx context.Context, id string) (*person.Person, error)
	DeleteManyByName(ctx context.Context, name string) (int64, error)
	FindBurritoLovers(ctx context.Context) ([]person.Person, error)
}

// ScriptIDs are the existing record ids the script looks up, updates and deletes
type ScriptIDs struct {
	PersonID1 string
	PersonID2 string
}

// DefaultScript returns the fixed demonstration sequence
func DefaultScript(people People, ids ScriptIDs) []Step {
	if ids.PersonID1 == "" {
		ids.PersonID1 = DefaultPersonID1
	}
	if ids.PersonID2 == "" {
		ids.PersonID2 = DefaultPersonID2
	}

	return []Step{
		{Name: StepInsertOne, Run: func(ctx context.Context) (interface{}, error) {
			return people.InsertOne(ctx, "Alice", person.IntPtr(30), []string{"pizza", "burrito"})
		}},
		{Name: StepInsertMany, Run: func(ctx context.Context) (interface{}, error) {
			return people.InsertMany(ctx, []person.NewPerson{
				{Name: "Bob", Age: person.IntPtr(25), FavoriteFoods: []string{"sushi"}},
				{Name: "Mary", Age: person.IntPtr(22), FavoriteFoods: []string{"tacos"}},
			})
		}},
		{Name: StepFindByName, Run: func(ctx context.Context) (interface{}, error) {
			return people.FindByName(ctx, "Alice")
		}},
		{Name: StepFindOneByFavoriteFood, Run: func(ctx context.Context) (interface{}, error) {
			return people.FindOneByFavoriteFood(ctx, "burrito")
		}},
		{Name: StepFindByID, Run: func(ctx context.Context) (interface{}, error) {
			return people.FindByID(ctx, ids.PersonID1)
		}},
		{Name: StepAppendFavoriteFood, Run: func(ctx context.Context) (interface{}, error) {
			return people.AppendFavoriteFood(ctx, ids.PersonID1, "hamburger")
		}},
		{Name: StepUpdateAgeByName, Run: func(ctx context.Context) (interface{}, error) {
			return people.UpdateAgeByName(ctx, "Bob", 20)
		}},
		{Name: StepDeleteByID, Run: func(ctx context.Context) (interface{}, error) {
			return people.DeleteByID(ctx, ids.PersonID2)
		}},
		{Name: StepDeleteManyByName, Run: func(ctx context.Context) (interface{}, error) {
			return people.DeleteManyByName(ctx, "Mary")
		}},
		{Name: StepFindBurritoLovers, Run: func(ctx context.Context) (interface{}, error) {
			return people.FindBurritoLovers(ctx)
		}},
	}
}
