package testutil

import (
	"net/http"
	"time"

	"deeproof/pkg/requestcontext"
)

// WithWallet adds an authenticated wallet address to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithWallet(req *http.Request, wallet string) *http.Request {
	ctx := requestcontext.WithWalletAddress(req.Context(), wallet)
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock so handlers and services
// observe a deterministic "now".
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}
