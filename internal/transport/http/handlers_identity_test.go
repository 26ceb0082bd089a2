package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"deeproof/internal/identity"
	"deeproof/pkg/testutil"
)

func newIdentityRouter(t *testing.T, store *identity.InMemoryStore) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := identity.NewService(store, nil, logger, nil)
	handler := NewIdentityHandler(svc, logger)
	r := chi.NewRouter()
	handler.Register(r)
	return r
}

func Test_HandleBind(t *testing.T) {
	router := newIdentityRouter(t, identity.NewInMemoryStore())

	req := testutil.NewJSONRequest(t, http.MethodPost, "/identity/bind",
		map[string]any{"walletAddress": testWallet, "identityCommitment": "commitment-1"})
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[map[string]any](t, rr)
	data, ok := (*resp)["data"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, testWallet, data["walletAddress"])
	assert.Equal(t, "commitment-1", data["identityCommitment"])
}

func Test_HandleBind_Duplicate(t *testing.T) {
	store := identity.NewInMemoryStore()
	router := newIdentityRouter(t, store)

	body := map[string]any{"walletAddress": testWallet}
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/identity/bind", body))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/identity/bind", body))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
}

func Test_HandleGetIdentity_NotFound(t *testing.T) {
	router := newIdentityRouter(t, identity.NewInMemoryStore())

	req := testutil.NewRequest(t, http.MethodGet, "/identity/"+testWallet)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func Test_HandleGetIdentity(t *testing.T) {
	store := identity.NewInMemoryStore()
	router := newIdentityRouter(t, store)

	bind := testutil.NewJSONRequest(t, http.MethodPost, "/identity/bind",
		map[string]any{"walletAddress": testWallet})
	testutil.AssertStatus(t, testutil.DoRequest(router, bind), http.StatusCreated)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/identity/"+testWallet))
	testutil.AssertStatusOK(t, rr)
}
