package fleet

import "errors"

// ErrValidation marks payloads rejected before any write.
var ErrValidation = errors.New("validation failed")
