package requisition

import "errors"

var (
	// ErrNotFound means the referenced requisition is unknown.
	ErrNotFound = errors.New("not found")

	// ErrIllegalTransition means the operation is not legal from the current
	// status, or the actor's role lacks permission for it. The aggregate and
	// its history are left untouched.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrValidation means a mandatory field for the transition is missing or
	// malformed.
	ErrValidation = errors.New("validation failed")
)
