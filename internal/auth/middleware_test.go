package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// whoami echoes the resolved principal's name, or "anonymous".
var whoami = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		w.Write([]byte("anonymous"))
		return
	}
	w.Write([]byte(p.Username))
})

func TestRequireAuth_Bearer(t *testing.T) {
	ts := newTestTokenService(t)
	pair, _ := ts.Issue(5, "kim")
	h := RequireAuth(BearerExtractor(ts))(whoami)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + pair.AccessToken, http.StatusOK, "kim"},
		{"lowercase scheme", "bearer " + pair.AccessToken, http.StatusOK, "kim"},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized, ""},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireAuth_Headers(t *testing.T) {
	h := RequireAuth(HeaderExtractor())(whoami)

	req := httptest.NewRequest(http.MethodPost, "/posts/1/like", nil)
	req.Header.Set(HeaderUserID, "3")
	req.Header.Set(HeaderUsername, "%EA%B9%80%EB%AF%BC%EC%88%98")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "김민수", rec.Body.String())

	bad := httptest.NewRequest(http.MethodPost, "/posts/1/like", nil)
	bad.Header.Set(HeaderUserID, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth_AllowsAnonymous(t *testing.T) {
	h := OptionalAuth(HeaderExtractor())(whoami)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}
