package alert

import "errors"

// Precondition failures, reported in check order.
var (
	ErrConnectionUnavailable = errors.New("connection unavailable")
	ErrLocationUnavailable   = errors.New("location unavailable")
	ErrEmptyMessage          = errors.New("message is empty")
	ErrMessageTooLong        = errors.New("message too long")
)
