package analytics

import "errors"

// ErrInvalidRange marks malformed or inverted date bounds. It is never
// retried and surfaces as a client error at the HTTP boundary.
var ErrInvalidRange = errors.New("invalid date range")
