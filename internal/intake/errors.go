package intake

import "errors"

var (
	// ErrCollaboratorTimeout marks an outbound send or media download that
	// exceeded its deadline.
	ErrCollaboratorTimeout = errors.New("intake: collaborator timed out")

	// ErrRegistrationFailed is returned when a complaint could not be persisted.
	ErrRegistrationFailed = errors.New("intake: complaint registration failed")

	// ErrLookupFailed is returned when the complaint store could not answer a status query.
	ErrLookupFailed = errors.New("intake: status lookup failed")

	// ErrDispatcherClosed is returned by Submit after Stop.
	ErrDispatcherClosed = errors.New("intake: dispatcher closed")
)
