package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so callers can branch with errors.Is:
// - ErrNotFound: key or record does not exist (cache miss, registry 404)
// - ErrUnavailable: backing service not connected or not configured
// - ErrTimeout: the call exceeded its deadline
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrTimeout     = errors.New("timeout")
)
