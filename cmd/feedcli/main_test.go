package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/mockapi"
)

type cli struct {
	api string
}

// newStub starts an empty stub API and returns its URL.
func newStub(t *testing.T, mode auth.Mode) string {
	t.Helper()
	srv, err := mockapi.New(mockapi.Config{
		Mode:         mode,
		JWTSecret:    "test-secret-at-least-16-chars!!",
		PasswordCost: bcrypt.MinCost,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// newCLI starts a stub API and points FEED_STORE_PATH at a fresh file, so
// consecutive runs share one stored identity.
func newCLI(t *testing.T, mode auth.Mode) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FEED_STORE_PATH", filepath.Join(dir, "creds", "feedcli.db"))
	t.Setenv("FEED_AUTH_MODE", string(mode))
	return &cli{api: newStub(t, mode)}
}

func (c *cli) run(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"--api", c.api}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCLI_UsernameFlow(t *testing.T) {
	c := newCLI(t, auth.ModeUsername)

	code, out, _ := c.run("whoami")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Not signed in.")

	code, out, _ = c.run("login", "kim")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Signed in as kim.")

	code, out, _ = c.run("post", "hello", "world")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Posted #1.")

	code, out, _ = c.run("like", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "#1: liked, 1 likes")

	code, out, _ = c.run("like", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "#1: liked, 1 likes", "liking twice changes nothing")

	code, out, _ = c.run("comment", "1", "first!")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "now has 1 comments")

	code, out, _ = c.run("feed")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "1 likes (you), 1 comments")

	code, out, _ = c.run("show", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "kim: first!")

	code, out, _ = c.run("logout")
	require.Equal(t, 0, code)
	code, out, _ = c.run("whoami")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Not signed in.")
}

func TestCLI_BearerNeedsPassword(t *testing.T) {
	c := newCLI(t, auth.ModeBearer)

	code, _, errOut := c.run("login", "kim")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "--password is required")

	code, _, _ = c.run("signup", "kim", "--password", "secret1")
	require.Equal(t, 0, code)

	code, _, errOut = c.run("login", "kim", "--password", "wrong-one")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "incorrect username or password")

	code, out, _ := c.run("login", "kim", "--password", "secret1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Signed in as kim.")

	code, out, _ = c.run("profile")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "kim (id 1)")
}

func TestCLI_Errors(t *testing.T) {
	c := newCLI(t, auth.ModeUsername)

	code, _, errOut := c.run("post", "anonymous")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Run `feedcli login <username>`")

	code, _, errOut = c.run("show", "42")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Not found.")

	code, _, errOut = c.run("delete", "abc")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "is not an id")

	code, _, _ = c.run("dance")
	assert.Equal(t, 2, code)

	code, _, _ = c.run("--mode", "cookie", "whoami")
	assert.Equal(t, 2, code)
}

func TestCLI_StaleIdentityIsCleared(t *testing.T) {
	c := newCLI(t, auth.ModeUsername)
	code, _, _ := c.run("login", "kim")
	require.Equal(t, 0, code)

	// A restarted server does not know user 1 any more.
	c.api = newStub(t, auth.ModeUsername)

	code, _, errOut := c.run("post", "hello")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "session has expired")
}
