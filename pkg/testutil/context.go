package testutil

import (
	"net/http"
	"time"

	"treasury/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped clock, as the request time
// middleware would.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID sets the request ID, as the request ID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
