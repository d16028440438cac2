package admin

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, token, actor string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seenActor string
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	handler := RequireAdminToken("owner-secret", logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenActor = GetAdminActorID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/owner/tenants", nil)
	if token != "" {
		r.Header.Set("X-Admin-Token", token)
	}
	if actor != "" {
		r.Header.Set("X-Admin-Actor-ID", actor)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w, seenActor
}

func TestRequireAdminTokenAccepts(t *testing.T) {
	w, actor := serve(t, "owner-secret", "ops@vendo")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops@vendo", actor)
}

func TestRequireAdminTokenRejectsMismatch(t *testing.T) {
	w, _ := serve(t, "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdminTokenRejectsMissing(t *testing.T) {
	w, _ := serve(t, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActorIDAbsentOutsideAdminRequests(t *testing.T) {
	w, actor := serve(t, "owner-secret", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, actor)
}
