package app

import "errors"

// ErrConfig is returned when the environment holds unusable values.
var ErrConfig = errors.New("invalid config")
