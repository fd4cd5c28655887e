package share

import "errors"

var (
	// ErrInvalid marks a request body missing a required field or
	// exceeding a column limit. Mapped to 400 at the HTTP layer.
	ErrInvalid = errors.New("invalid request")

	// ErrConflict marks an insert that collided with an existing uid.
	// With 6 random alphanumeric characters this is vanishingly rare,
	// so it is surfaced rather than retried.
	ErrConflict = errors.New("uid already exists")
)
