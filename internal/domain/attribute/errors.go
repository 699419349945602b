package attribute

import "errors"

var (
	// ErrInvalidValue is returned when raw input cannot be parsed for the attribute type
	ErrInvalidValue = errors.New("invalid attribute value")

	// ErrInvalidType is returned for a type outside the known set
	ErrInvalidType = errors.New("invalid attribute type")
)
