package person

import "github.com/pkg/errors"

var (
	// ErrValidation means a required field is missing or malformed; nothing was written
	ErrValidation = errors.New("invalid person")
	// ErrNotFound means the record a mutation targets does not exist
	ErrNotFound = errors.New("person not found")
	// ErrInvalidID means an id is not a 24 character hex ObjectID
	ErrInvalidID = errors.New("invalid person id")
)
