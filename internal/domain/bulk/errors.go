package bulk

import "errors"

var (
	// ErrRowNotFound is returned when no row has the requested assessment id
	ErrRowNotFound = errors.New("assessment row not found")

	// ErrAttributeNotFound is returned when no row holds the requested attribute
	ErrAttributeNotFound = errors.New("attribute not found")

	// ErrAttributeIndex is returned for an attribute index outside the row
	ErrAttributeIndex = errors.New("attribute index out of range")

	// ErrNotApplicable is returned when editing an attribute the assessment does not have
	ErrNotApplicable = errors.New("attribute is not applicable to the assessment")

	// ErrNoRequiredInfo is returned when supporting information is supplied for
	// an attribute whose current value does not ask for it
	ErrNoRequiredInfo = errors.New("attribute value does not require supporting information")
)
