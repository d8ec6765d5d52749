package testutil

import (
	"net/http"
	"time"

	"formgate/pkg/requestcontext"
)

// WithClientMetadata attaches a client IP and user agent to the request
// context, simulating the metadata middleware.
func WithClientMetadata(req *http.Request, ip, userAgent string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, userAgent)
	return req.WithContext(ctx)
}

// WithRequestTime pins the request time, simulating the time middleware so
// tests get deterministic timestamps.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}

// WithLocale sets the negotiated locale, simulating the locale middleware.
func WithLocale(req *http.Request, locale string) *http.Request {
	return req.WithContext(requestcontext.WithLocale(req.Context(), locale))
}
