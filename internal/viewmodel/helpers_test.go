package viewmodel

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/feedclient/internal/api"
	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/credential"
	"github.com/sakif/feedclient/internal/dispatch"
	"github.com/sakif/feedclient/internal/mockapi"
	"github.com/sakif/feedclient/internal/model"
	"github.com/sakif/feedclient/internal/storage/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newLiveSession returns a Session wired to a fresh stub API over HTTP.
func newLiveSession(t *testing.T, mode auth.Mode) (*Session, *mockapi.Server) {
	t.Helper()
	logger := quietLogger()

	srv, err := mockapi.New(mockapi.Config{
		Mode:         mode,
		JWTSecret:    "test-secret-at-least-16-chars!!",
		PasswordCost: bcrypt.MinCost,
	}, logger)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	creds := credential.New(memory.New(), mode, logger)
	d, err := dispatch.New(ts.URL, mode, creds, dispatch.WithLogger(logger))
	require.NoError(t, err)

	return NewSession(api.New(d, mode, creds), creds, logger), srv
}

// call is one request seen by fakeRequester.
type call struct {
	Method string
	Path   string
	Query  url.Values
}

// fakeRequester answers facade calls from a script without any HTTP.
type fakeRequester struct {
	mu      sync.Mutex
	calls   []call
	respond func(c call) (any, error)
}

func (f *fakeRequester) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	c := call{Method: method, Path: path, Query: query}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	respond := f.respond
	f.mu.Unlock()

	v, err := respond(c)
	if err != nil {
		return err
	}
	if out == nil || v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeRequester) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// newFakeSession returns a signed-in username-mode Session over a
// fakeRequester.
func newFakeSession(t *testing.T, respond func(c call) (any, error)) (*Session, *fakeRequester) {
	t.Helper()
	fake := &fakeRequester{respond: respond}
	creds := credential.New(memory.New(), auth.ModeUsername, quietLogger())
	require.NoError(t, creds.Save(context.Background(), &model.Identity{UserID: 1, Username: "kim"}))
	return NewSession(api.New(fake, auth.ModeUsername, creds), creds, quietLogger()), fake
}

func posts(ids ...int64) []model.Post {
	out := make([]model.Post, len(ids))
	for i, id := range ids {
		out[i] = model.Post{ID: id}
	}
	return out
}

func ids(ps []model.Post) []int64 {
	out := make([]int64, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
