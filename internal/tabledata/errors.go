package tabledata

import "github.com/pkg/errors"

// Error kinds returned by data object operations. Every failing call wraps
// one of these with field context; callers discriminate with errors.Is.
// A failed call leaves the data object's prior state fully intact.
var (
	// ErrInvalidField reports a field id unknown to the schema, outside
	// this data object's scope, or accessed through the wrong shape.
	ErrInvalidField = errors.New("invalid field")

	// ErrSizeMismatch reports a byte-array length that does not equal the
	// field's byte-padded bit-width.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrOutOfRange reports a value that does not fit the field's
	// declared bit-width.
	ErrOutOfRange = errors.New("value out of range")

	// ErrInactiveField reports a read of a field that is not active or
	// holds no value.
	ErrInactiveField = errors.New("inactive field")

	// ErrNotApplicable reports an action-id query on a non-action schema
	// or a parent query when no parent of that kind exists.
	ErrNotApplicable = errors.New("not applicable")

	// ErrAllocation reports a container allocation against a
	// non-container field or with a field subset outside the container.
	ErrAllocation = errors.New("allocation failure")
)
