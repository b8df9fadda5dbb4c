package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/sakif/feedclient/internal/model"
)

// Mode selects how a deployment carries identity. Exactly one is active.
type Mode string

const (
	// ModeBearer sends "Authorization: Bearer <access token>".
	ModeBearer Mode = "bearer"
	// ModeUsername sends X-User-ID and a percent-encoded x-username.
	ModeUsername Mode = "username"
)

// ParseMode accepts the config spelling of a Mode, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBearer:
		return ModeBearer, nil
	case ModeUsername:
		return ModeUsername, nil
	default:
		return "", fmt.Errorf("auth: unknown mode %q (want %q or %q)", s, ModeBearer, ModeUsername)
	}
}

// Header names of the username variant.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUsername = "x-username"
)

// IdentitySource is what Transport reads before each request.
// *credential.Store implements it.
type IdentitySource interface {
	Current() *model.Identity
}

// Transport is the interception step of the dispatcher: an http.RoundTripper
// that stamps the current identity on every outgoing request.
//
// It never fails a request. An identity that cannot be used in the active
// mode is logged and the request goes out unauthenticated; the server's 401
// then reaches the caller unchanged.
type Transport struct {
	Base   http.RoundTripper
	Mode   Mode
	Source IdentitySource
	Logger *slog.Logger
}

// Attach wraps base (http.DefaultTransport when nil) with identity stamping.
func Attach(base http.RoundTripper, mode Mode, source IdentitySource, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{Base: base, Mode: mode, Source: source, Logger: logger}
}

// RoundTrip implements http.RoundTripper. The caller's request is cloned,
// never modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	t.stamp(out)
	return t.base().RoundTrip(out)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) stamp(req *http.Request) {
	defer func() {
		if r := recover(); r != nil {
			t.Logger.Warn("identity stamping failed, sending unauthenticated",
				slog.String("path", req.URL.Path),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if t.Source == nil {
		return
	}
	id := t.Source.Current()
	if id == nil {
		return
	}

	switch t.Mode {
	case ModeBearer:
		if !id.HasToken() {
			t.Logger.Warn("stored identity has no access token, sending unauthenticated",
				slog.String("path", req.URL.Path))
			return
		}
		tok := &oauth2.Token{AccessToken: id.AccessToken, TokenType: "Bearer"}
		tok.SetAuthHeader(req)

	case ModeUsername:
		if id.Username == "" {
			t.Logger.Warn("stored identity has no username, sending unauthenticated",
				slog.String("path", req.URL.Path))
			return
		}
		if id.UserID > 0 {
			req.Header.Set(HeaderUserID, strconv.FormatInt(id.UserID, 10))
		}
		req.Header.Set(HeaderUsername, model.EncodeUsername(id.Username))

	default:
		t.Logger.Warn("unknown auth mode, sending unauthenticated",
			slog.String("mode", string(t.Mode)))
	}
}
