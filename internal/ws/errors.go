package ws

import "errors"

var (
	// ErrDuplicateSession means a handle was registered twice. Handles are
	// server-generated, so this is an internal invariant violation: the
	// caller logs it and closes the connection.
	ErrDuplicateSession = errors.New("session handle already registered")

	// ErrUnknownSession means a join or leave referenced a handle that is
	// not (or no longer) registered.
	ErrUnknownSession = errors.New("unknown session handle")

	// ErrReservedRoom rejects explicit joins and leaves of personal rooms.
	ErrReservedRoom = errors.New("personal rooms cannot be joined or left")

	// ErrNotAMember rejects a subscription or message whose requester is
	// not a current member of the target conversation or group.
	ErrNotAMember = errors.New("not a member of the target")

	// ErrPersistence means the message was not made durable; no fanout has
	// happened and none will.
	ErrPersistence = errors.New("message not persisted")
)
