package mockapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/mockapi"
	"github.com/sakif/feedclient/internal/model"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newServer(t *testing.T, mode auth.Mode) *mockapi.Server {
	t.Helper()
	srv, err := mockapi.New(mockapi.Config{
		Mode:         mode,
		JWTSecret:    testSecret,
		PasswordCost: bcrypt.MinCost,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return srv
}

// do sends one request to srv and returns the recorder.
func do(srv *mockapi.Server, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func TestNew_RejectsBadConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := mockapi.New(mockapi.Config{Mode: auth.ModeBearer, JWTSecret: "short"}, logger)
	assert.Error(t, err)

	_, err = mockapi.New(mockapi.Config{Mode: "cookie"}, logger)
	assert.Error(t, err)
}

func TestServer_Health(t *testing.T) {
	srv := newServer(t, auth.ModeUsername)

	rr := do(srv, http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	h := decodeBody[model.Health](t, rr)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, mockapi.Version, h.Version)
}

func TestServer_UsernameMode(t *testing.T) {
	srv := newServer(t, auth.ModeUsername)

	t.Run("login creates user", func(t *testing.T) {
		rr := do(srv, http.MethodPost, "/login", `{"username":"kim"}`, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		rec := decodeBody[model.UserRecord](t, rr)
		assert.Equal(t, "kim", rec.Username)
		assert.Equal(t, int64(1), rec.UserID)
	})

	t.Run("write without identity is 401", func(t *testing.T) {
		rr := do(srv, http.MethodPost, "/posts", `{"content":"hi","username":"kim"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		body := decodeBody[mockapi.ErrorResponse](t, rr)
		assert.Equal(t, "unauthorized", body.Error)
	})

	headers := http.Header{
		auth.HeaderUserID:   {"1"},
		auth.HeaderUsername: {"kim"},
	}

	t.Run("create needs matching author name", func(t *testing.T) {
		rr := do(srv, http.MethodPost, "/posts", `{"content":"hi"}`, headers)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = do(srv, http.MethodPost, "/posts", `{"content":"hi","username":"lee"}`, headers)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = do(srv, http.MethodPost, "/posts", `{"content":"hi","username":"kim"}`, headers)
		require.Equal(t, http.StatusOK, rr.Code)
		p := decodeBody[model.Post](t, rr)
		assert.Equal(t, "kim", p.Author.Username)
	})

	t.Run("validation error shape", func(t *testing.T) {
		rr := do(srv, http.MethodPost, "/posts", `{"content":"","username":"kim"}`, headers)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody[mockapi.ErrorResponse](t, rr)
		assert.Equal(t, "validation_error", body.Error)
		assert.Equal(t, "content", body.Field)
	})

	t.Run("unknown user id is 401", func(t *testing.T) {
		rr := do(srv, http.MethodPost, "/posts/1/like", "", http.Header{auth.HeaderUserID: {"42"}})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("like reports count", func(t *testing.T) {
		rr := do(srv, http.MethodPost, "/posts/1/like", "", headers)
		require.Equal(t, http.StatusOK, rr.Code)
		res := decodeBody[model.LikeResult](t, rr)
		assert.Equal(t, 1, res.LikesCount)
	})

	t.Run("anonymous read", func(t *testing.T) {
		rr := do(srv, http.MethodGet, "/posts?page=1&limit=5", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		page := decodeBody[model.Page[model.Post]](t, rr)
		require.Len(t, page.Items, 1)
		assert.False(t, page.Items[0].IsLiked)
		assert.Equal(t, 1, page.Items[0].LikesCount)
		assert.Equal(t, 5, page.Size)
	})

	t.Run("page params are validated", func(t *testing.T) {
		for _, q := range []string{"page=0", "limit=0", "limit=51", "page=x"} {
			rr := do(srv, http.MethodGet, "/posts?"+q, "", nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code, q)
		}
	})
}

func TestServer_UsernameHeaderIsPercentDecoded(t *testing.T) {
	srv := newServer(t, auth.ModeUsername)
	rr := do(srv, http.MethodPost, "/login", `{"username":"김철수"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	headers := http.Header{
		auth.HeaderUserID:   {"1"},
		auth.HeaderUsername: {model.EncodeUsername("김철수")},
	}
	body := `{"content":"안녕","username":"` + model.EncodeUsername("김철수") + `"}`
	rr = do(srv, http.MethodPost, "/posts", body, headers)
	require.Equal(t, http.StatusOK, rr.Code)
	p := decodeBody[model.Post](t, rr)
	assert.Equal(t, "김철수", p.Author.Username)
}

func TestServer_BearerMode(t *testing.T) {
	srv := newServer(t, auth.ModeBearer)

	rr := do(srv, http.MethodPost, "/login", `{"username":"kim"}`, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "name login is not served in bearer mode")

	rr = do(srv, http.MethodPost, "/auth/signup", `{"username":"kim","password":"secret1"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(srv, http.MethodPost, "/auth/login", `{"username":"kim","password":"nope-nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(srv, http.MethodPost, "/auth/login", `{"username":"kim","password":"secret1"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	pair := decodeBody[model.TokenPair](t, rr)
	require.NotEmpty(t, pair.AccessToken)

	bearer := http.Header{"Authorization": {"Bearer " + pair.AccessToken}}

	rr = do(srv, http.MethodGet, "/users/me", "", bearer)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeBody[model.Profile](t, rr)
	assert.Equal(t, "kim", me.Username)

	rr = do(srv, http.MethodGet, "/users/me", "", http.Header{"Authorization": {"Bearer " + pair.RefreshToken}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "refresh tokens are not access tokens")

	rr = do(srv, http.MethodPost, "/posts", `{"content":"no name needed"}`, bearer)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_Follows(t *testing.T) {
	srv := newServer(t, auth.ModeUsername)
	do(srv, http.MethodPost, "/login", `{"username":"kim"}`, nil)
	do(srv, http.MethodPost, "/login", `{"username":"lee"}`, nil)
	kim := http.Header{auth.HeaderUserID: {"1"}, auth.HeaderUsername: {"kim"}}

	rr := do(srv, http.MethodPost, "/follows", `{}`, kim)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(srv, http.MethodPost, "/follows", `{"following_id":2}`, kim)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeBody[model.FollowResult](t, rr).IsFollowing)

	rr = do(srv, http.MethodGet, "/profile/me/following", "", kim)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decodeBody[model.Page[model.UserSummary]](t, rr)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "lee", page.Items[0].Username)

	rr = do(srv, http.MethodDelete, "/follows", `{"following_id":2}`, kim)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decodeBody[model.FollowResult](t, rr).IsFollowing)
}
