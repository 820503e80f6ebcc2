package circuit

import "errors"

var (
	// ErrNotConnected is returned when a rotation is requested before
	// Connect has succeeded or after Disconnect.
	ErrNotConnected = errors.New("control channel is not connected")

	// ErrUnreachable is returned when the control channel cannot be
	// opened at all.
	ErrUnreachable = errors.New("control channel is unreachable")

	// ErrAuthMissing is returned when the control channel demands a
	// secret and none was supplied.
	ErrAuthMissing = errors.New("control channel requires authentication but no password was supplied")

	// ErrAuthRejected is returned when the control channel rejects the
	// supplied password.
	ErrAuthRejected = errors.New("control channel rejected the password")

	// ErrSignalRejected is returned when the control channel refuses a
	// rotation signal.
	ErrSignalRejected = errors.New("control channel rejected the rotation signal")
)
