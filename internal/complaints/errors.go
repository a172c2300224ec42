package complaints

import "errors"

var (
	// ErrComplaintNotFound is returned when no complaint matches a lookup.
	ErrComplaintNotFound = errors.New("complaint not found")

	// ErrDuplicateTicket is returned when a ticket number is already taken.
	ErrDuplicateTicket = errors.New("ticket number already exists")

	// ErrInvalidStatus is returned for a status outside the allowed set.
	ErrInvalidStatus = errors.New("invalid complaint status")

	// ErrMissingTicket is returned when a complaint is created without a ticket.
	ErrMissingTicket = errors.New("ticket number is required")
)
