package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/feedclient/internal/apperror"
	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/model"
)

type staticSource struct{ id *model.Identity }

func (s staticSource) Current() *model.Identity { return s.id }

func newTestClient(t *testing.T, h http.Handler, mode auth.Mode, id *model.Identity) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, mode, staticSource{id},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return c
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"ftp://host", "://nope", "localhost:8000"} {
		_, err := New(raw, auth.ModeBearer, nil)
		assert.Error(t, err, raw)
	}
}

// =========================================================================
// REQUEST SHAPING
// =========================================================================

func TestDo_SendsJSONAndDecodes(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotCT string
	var gotBody map[string]any

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.RawQuery
		gotCT = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"content":"hello","author":{"id":1,"username":"kim"},"likes_count":0,"is_liked":false}`))
	})
	c := newTestClient(t, h, auth.ModeUsername, &model.Identity{UserID: 1, Username: "kim"})

	var post model.Post
	err := c.Do(context.Background(), http.MethodPost, "/posts", url.Values{"x": {"1"}},
		map[string]string{"content": "hello"}, &post)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/posts", gotPath)
	assert.Equal(t, "x=1", gotQuery)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "hello", gotBody["content"])
	assert.Equal(t, int64(1), post.ID)
	assert.Equal(t, "kim", post.Author.Username)
}

func TestDo_StampsIdentityAndRequestID(t *testing.T) {
	var gotAuth, reqID string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		reqID = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, h, auth.ModeBearer, &model.Identity{AccessToken: "tok"})

	require.NoError(t, c.Delete(context.Background(), "/posts/1", nil))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.NotEmpty(t, reqID)
}

func TestDo_EmptySuccessBody(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, h, auth.ModeBearer, nil)

	var out model.Post
	assert.NoError(t, c.Delete(context.Background(), "/posts/1", &out))
}

func TestDo_MalformedSuccessBody(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	})
	c := newTestClient(t, h, auth.ModeBearer, nil)

	var out model.Post
	err := c.Get(context.Background(), "/posts/1", nil, &out)
	require.Error(t, err)
	assert.Zero(t, apperror.StatusOf(err))
}

// =========================================================================
// ERROR TAXONOMY
// =========================================================================

func TestDo_HTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		sentinel  error
		wantMsg   string
		wantField string
	}{
		{"401 passes through", 401, `{"detail":"인증 정보가 유효하지 않습니다"}`, apperror.ErrUnauthorized, "인증 정보가 유효하지 않습니다", ""},
		{"400 detail string", 400, `{"detail":"Username already registered"}`, apperror.ErrValidation, "Username already registered", ""},
		{"422 detail list", 422, `{"detail":[{"loc":["body","content"],"msg":"field required"}]}`, apperror.ErrValidation, "field required", "content"},
		{"400 message and field", 400, `{"error":"validation_error","message":"content is required","field":"content"}`, apperror.ErrValidation, "content is required", "content"},
		{"404", 404, `{"detail":"Post not found"}`, apperror.ErrNotFound, "Post not found", ""},
		{"500 not json", 500, `Internal Server Error`, apperror.ErrServer, "", ""},
		{"503 empty", 503, ``, apperror.ErrServer, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			c := newTestClient(t, h, auth.ModeBearer, nil)

			err := c.Get(context.Background(), "/x", nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var httpErr *apperror.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.Status)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
			assert.Equal(t, tt.wantField, httpErr.Field)
			assert.Equal(t, tt.body, string(httpErr.Body))
		})
	}
}

func TestDo_NoRetry(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := newTestClient(t, h, auth.ModeBearer, nil)

	_ = c.Get(context.Background(), "/posts", nil, nil)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := New(addr, auth.ModeBearer, nil)
	require.NoError(t, err)

	err = c.Get(context.Background(), "/posts", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrTransport)
	assert.Equal(t, apperror.MsgTransport, apperror.UserMessage(err))
}

func TestDo_CancelledContext(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), auth.ModeBearer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Get(ctx, "/posts", nil, nil)
	assert.ErrorIs(t, err, apperror.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}
