package seal

import "errors"

// Public, stable errors for callers.
var (
	ErrPassphraseTooShort = errors.New("passphrase too short")
	ErrInvalidEnvelope    = errors.New("invalid sealed envelope")
	ErrDecrypt            = errors.New("sealed data could not be opened")
)
