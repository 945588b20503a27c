package person

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Person is a stored record as seen by callers
type Person struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Age           *int     `json:"age,omitempty"`
	FavoriteFoods []string `json:"favoriteFoods"`
}

// NewPerson holds the fields accepted at creation time
type NewPerson struct {
	Name          string   `json:"name" validate:"required"`
	Age           *int     `json:"age,omitempty"`
	FavoriteFoods []string `json:"favoriteFoods"`
}

// document is the persisted shape of a Person
type document struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Age           *int               `bson:"age,omitempty"`
	FavoriteFoods []string           `bson:"favoriteFoods"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names ("name") instead of Go field names ("Name")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the fields required at creation
func (p NewPerson) Validate() error {
	if err := validate.Struct(p); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
		return fmt.Sprintf("%s is %s", fe.Field(), fe.Tag())
	})
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ", "))
}

// toDocument maps a validated NewPerson to its stored form. Missing
// favoriteFoods become an empty list, never null.
func toDocument(p NewPerson) document {
	foods := make([]string, len(p.FavoriteFoods))
	copy(foods, p.FavoriteFoods)
	var age *int
	if p.Age != nil {
		v := *p.Age
		age = &v
	}
	return document{
		ID:            primitive.NewObjectID(),
		Name:          p.Name,
		Age:           age,
		FavoriteFoods: foods,
	}
}

func fromDocument(d document) Person {
	foods := d.FavoriteFoods
	if foods == nil {
		foods = []string{}
	}
	return Person{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Age:           d.Age,
		FavoriteFoods: foods,
	}
}

func fromDocuments(docs []document) []Person {
	return lo.Map(docs, func(d document, _ int) Person { return fromDocument(d) })
}

// ParseID converts the external id form into an ObjectID
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w %q", ErrInvalidID, id)
	}
	return oid, nil
}

// IntPtr is a convenience for the optional age field
func IntPtr(v int) *int { return &v }
