// Package viewmodel holds per-screen state: what a screen shows, how it
// loads more, and how it reacts to the server.
//
// Every screen is built on an explicit *Session rather than a process
// global. The Session owns the credential store and the API facade, and it
// is the one place where errors are classified: a 401 signs the user out
// and raises the login-required flag, everything else becomes a message.
package viewmodel

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/sakif/feedclient/internal/api"
	"github.com/sakif/feedclient/internal/apperror"
	"github.com/sakif/feedclient/internal/credential"
	"github.com/sakif/feedclient/internal/model"
)

// Session is the signed-in context every screen shares.
type Session struct {
	api    *api.Client
	creds  *credential.Store
	logger *slog.Logger

	loginRequired atomic.Bool
}

// NewSession ties a facade to the credential store it stamps from.
func NewSession(client *api.Client, creds *credential.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{api: client, creds: creds, logger: logger}
}

// Init seeds the in-memory identity from storage. Call once at start.
func (s *Session) Init(ctx context.Context) *model.Identity {
	id := s.creds.Load(ctx)
	if id != nil {
		s.logger.Debug("session restored", slog.String("username", id.Username))
	}
	return id
}

// API returns the facade the screens call.
func (s *Session) API() *api.Client { return s.api }

// Identity returns the signed-in identity, or nil.
func (s *Session) Identity() *model.Identity { return s.creds.Current() }

func (s *Session) LoggedIn() bool { return s.creds.Current() != nil }

// LoginRequired reports whether the last failure was a rejected identity.
// A host shows its login screen while this is set.
func (s *Session) LoginRequired() bool { return s.loginRequired.Load() }

// Login signs in and persists the new identity, replacing any old one.
func (s *Session) Login(ctx context.Context, username, password string) error {
	id, err := s.api.Auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return s.adopt(ctx, id)
}

// Signup creates the account and signs in.
func (s *Session) Signup(ctx context.Context, username, password string) error {
	id, err := s.api.Auth.Signup(ctx, username, password)
	if err != nil {
		return err
	}
	return s.adopt(ctx, id)
}

func (s *Session) adopt(ctx context.Context, id *model.Identity) error {
	if err := s.creds.Save(ctx, id); err != nil {
		return err
	}
	s.loginRequired.Store(false)
	s.logger.Info("signed in", slog.String("username", id.Username))
	return nil
}

// Logout forgets the identity locally. There is no server call.
func (s *Session) Logout(ctx context.Context) error {
	return s.creds.Clear(ctx)
}

// HandleError turns err into the message a screen should show. A 401
// additionally signs out and raises LoginRequired.
func (s *Session) HandleError(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, apperror.ErrUnauthorized) {
		s.logger.Info("identity rejected by server, signing out")
		if clearErr := s.Logout(ctx); clearErr != nil {
			s.logger.Error("clearing rejected identity", slog.String("error", clearErr.Error()))
		}
		s.loginRequired.Store(true)
	} else if !errors.Is(err, apperror.ErrValidation) && !errors.Is(err, apperror.ErrNotFound) {
		s.logger.Warn("request failed", slog.String("error", err.Error()))
	}
	return apperror.UserMessage(err)
}
