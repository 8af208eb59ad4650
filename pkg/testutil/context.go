package testutil

import (
	"net/http"
	"time"

	"screener/pkg/requestcontext"
)

// FixedTime is the clock value used across tests that assert timestamps.
var FixedTime = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

// FixedClock returns FixedTime.
func FixedClock() time.Time {
	return FixedTime
}

// WithRequestID attaches a request ID the way the request-ID middleware would.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}
