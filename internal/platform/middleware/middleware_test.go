package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "deeproof/pkg/domain-errors"
	"deeproof/pkg/requestcontext"
	"deeproof/pkg/testutil"
)

const testWallet = "0x742d35cc6634c0532925a3b844bc454e4438f44e"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	if token == "valid-token" {
		return &JWTClaims{WalletAddress: testWallet}, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

func okProbe(onRequest func(r *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if onRequest != nil {
			onRequest(r)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func Test_RequireAuth(t *testing.T) {
	var seenWallet string
	handler := RequireAuth(stubValidator{}, discardLogger())(okProbe(func(r *http.Request) {
		seenWallet = GetWalletAddress(r.Context())
	}))

	t.Run("valid token sets wallet in context", func(t *testing.T) {
		seenWallet = ""
		req := testutil.NewRequest(t, http.MethodPost, "/kyc/submit")
		req.Header.Set("Authorization", "Bearer valid-token")

		rr := testutil.DoRequest(handler, req)

		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, testWallet, seenWallet)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/kyc/submit")
		req.Header.Set("Authorization", "Bearer bogus")

		rr := testutil.DoRequest(handler, req)

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("missing header", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/kyc/submit")

		rr := testutil.DoRequest(handler, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func Test_GetWalletAddress(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/")
	assert.Empty(t, GetWalletAddress(req.Context()))

	req = testutil.WithWallet(req, testWallet)
	assert.Equal(t, testWallet, GetWalletAddress(req.Context()))
}

func Test_RequireAdminKey(t *testing.T) {
	handler := RequireAdminKey("secret", discardLogger())(okProbe(nil))

	t.Run("correct key", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPatch, "/kyc/status/"+testWallet)
		req.Header.Set("X-Admin-Key", "secret")

		testutil.AssertStatusOK(t, testutil.DoRequest(handler, req))
	})

	t.Run("wrong key", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPatch, "/kyc/status/"+testWallet)
		req.Header.Set("X-Admin-Key", "guess")

		testutil.AssertStatus(t, testutil.DoRequest(handler, req), http.StatusUnauthorized)
	})

	t.Run("unconfigured key disables the route", func(t *testing.T) {
		disabled := RequireAdminKey("", discardLogger())(okProbe(nil))
		req := testutil.NewRequest(t, http.MethodPatch, "/kyc/status/"+testWallet)
		req.Header.Set("X-Admin-Key", "secret")

		testutil.AssertStatus(t, testutil.DoRequest(disabled, req), http.StatusNotFound)
	})
}

func Test_RequestID(t *testing.T) {
	var seen string
	handler := RequestID(okProbe(func(r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates an ID", func(t *testing.T) {
		seen = ""
		rr := testutil.DoRequest(handler, testutil.NewRequest(t, http.MethodGet, "/"))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))
	})

	t.Run("honors inbound ID", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set("X-Request-ID", "upstream-id")

		rr := testutil.DoRequest(handler, req)

		assert.Equal(t, "upstream-id", seen)
		assert.Equal(t, "upstream-id", rr.Header().Get("X-Request-ID"))
	})
}

func Test_RequestTime(t *testing.T) {
	var first, second time.Time
	handler := RequestTime(okProbe(func(r *http.Request) {
		first = requestcontext.Now(r.Context())
		second = requestcontext.Now(r.Context())
	}))

	testutil.DoRequest(handler, testutil.NewRequest(t, http.MethodGet, "/"))

	require.False(t, first.IsZero())
	assert.Equal(t, first, second)
}

func Test_RequestTime_PinnedClock(t *testing.T) {
	pinned := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	var seen time.Time
	probe := okProbe(func(r *http.Request) {
		seen = requestcontext.Now(r.Context())
	})

	req := testutil.WithRequestTime(testutil.NewRequest(t, http.MethodGet, "/"), pinned)
	testutil.DoRequest(probe, req)

	assert.Equal(t, pinned, seen)
}

func Test_Recovery(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := testutil.DoRequest(handler, testutil.NewRequest(t, http.MethodGet, "/"))

	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal")
}

func Test_ContentTypeJSON(t *testing.T) {
	handler := ContentTypeJSON(okProbe(nil))

	t.Run("json body accepted", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/", `{}`)
		testutil.AssertStatusOK(t, testutil.DoRequest(handler, req))
	})

	t.Run("json with charset accepted", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/", `{}`)
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		testutil.AssertStatusOK(t, testutil.DoRequest(handler, req))
	})

	t.Run("non-json body rejected", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/", `hello`)
		req.Header.Set("Content-Type", "text/plain")
		testutil.AssertStatus(t, testutil.DoRequest(handler, req), http.StatusUnsupportedMediaType)
	})

	t.Run("bodyless request passes", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/")
		testutil.AssertStatusOK(t, testutil.DoRequest(handler, req))
	})
}
