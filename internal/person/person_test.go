package person

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	msgShouldBeValid   = "record should pass validation"
	msgShouldBeInvalid = "record should fail validation"
)

func TestNewPersonValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   NewPerson
		wantErr bool
	}{
		{name: "name only", input: NewPerson{Name: "Alice"}},
		{name: "all fields", input: NewPerson{Name: "Bob", Age: IntPtr(25), FavoriteFoods: []string{"sushi"}}},
		{name: "zero age", input: NewPerson{Name: "Baby", Age: IntPtr(0)}},
		{name: "missing name", input: NewPerson{Age: IntPtr(30)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				require.Error(t, err, msgShouldBeInvalid)
				assert.True(t, errors.Is(err, ErrValidation))
				assert.Contains(t, err.Error(), "name is required")
				return
			}
			require.NoError(t, err, msgShouldBeValid)
		})
	}
}

func TestDocumentMapping(t *testing.T) {
	foods := []string{"pizza", "burrito"}
	doc := toDocument(NewPerson{Name: "Alice", Age: IntPtr(30), FavoriteFoods: foods})
	assert.False(t, doc.ID.IsZero())

	// caller slices are not aliased
	foods[0] = "kale"
	assert.Equal(t, []string{"pizza", "burrito"}, doc.FavoriteFoods)

	p := fromDocument(doc)
	assert.Equal(t, doc.ID.Hex(), p.ID)
	assert.Equal(t, 30, *p.Age)

	empty := fromDocument(document{ID: primitive.NewObjectID(), Name: "Carl"})
	assert.NotNil(t, empty.FavoriteFoods)
	assert.Nil(t, empty.Age)

	assert.NotNil(t, toDocument(NewPerson{Name: "Dan"}).FavoriteFoods)
}

func TestParseID(t *testing.T) {
	oid, err := ParseID("64b0b9e2c7f9c947f1a0575b")
	require.NoError(t, err)
	assert.Equal(t, "64b0b9e2c7f9c947f1a0575b", oid.Hex())

	_, err = ParseID("64B0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidID))
	assert.Contains(t, err.Error(), "64B0")
}
