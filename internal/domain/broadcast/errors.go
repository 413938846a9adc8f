package broadcast

import "errors"

// Sentinel kinds for broadcaster errors.
var (
	ErrClosed        = errors.New("broadcaster closed")
	ErrUnknownPolicy = errors.New("unknown broadcast policy")
)
