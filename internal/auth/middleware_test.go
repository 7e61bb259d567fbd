package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/keep-bouncing-back/internal/model"
)

type countingRecorder struct {
	reasons []string
}

func (c *countingRecorder) RecordAuthFailure(reason string) {
	c.reasons = append(c.reasons, reason)
}

// echoAccount writes the id of the account found in the context.
var echoAccount = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "no account", http.StatusTeapot)
		return
	}
	w.Write([]byte(account.Email))
})

func TestRequireAuth_ValidBearer(t *testing.T) {
	guard, ts, _ := newTestGuard(t, &model.Account{ID: 3, Email: "ana@example.com"})
	rec := &countingRecorder{}
	h := RequireAuth(guard, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))(echoAccount)

	token, err := ts.Issue("3")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.Value)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@example.com", w.Body.String())
	assert.Empty(t, rec.reasons)
}

func TestRequireAuth_Rejects(t *testing.T) {
	guard, ts, _ := newTestGuard(t, &model.Account{ID: 3})
	expired, _ := ts.IssueWithTTL("3", -1)

	tests := []struct {
		name       string
		header     string
		wantReason string
	}{
		{"no header", "", ReasonMissingToken},
		{"basic scheme", "Basic dXNlcjpwYXNz", ReasonMissingToken},
		{"expired", "Bearer " + expired.Value, ReasonInvalidToken},
		{"lowercase scheme garbage", "bearer abc", ReasonInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &countingRecorder{}
			h := RequireAuth(guard, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))(echoAccount)

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			assert.Contains(t, w.Body.String(), `"error":"unauthorized"`)
			assert.Equal(t, []string{tt.wantReason}, rec.reasons)
		})
	}
}

func TestRequireAuth_StorageError(t *testing.T) {
	guard, ts, fake := newTestGuard(t)
	fake.err = errors.New("db down")
	h := RequireAuth(guard, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))(echoAccount)

	token, _ := ts.Issue("3")
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.Value)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc", "abc"},
		{"Bearer  padded ", "padded"},
		{"Token abc", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, BearerToken(req), "header %q", tt.header)
	}
}
