package registry

import "errors"

var (
	// ErrNotFound is returned when an id does not name a known record
	ErrNotFound = errors.New("record not found")
	// ErrInvalidCustomer wraps validation failures of a customer profile
	ErrInvalidCustomer = errors.New("invalid customer")
)
