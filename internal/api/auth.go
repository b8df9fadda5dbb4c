package api

import (
	"context"
	"net/http"

	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/model"
)

// AuthAPI signs users in. It returns identities; persisting them is the
// session's job.
type AuthAPI struct{ base }

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// Login authenticates and returns the new identity.
//
// Bearer mode posts username and password to /auth/login and gets a token
// pair back; user id and name are read from the token claims. Username mode
// posts the bare username to /login, which answers with the user record
// (creating the user on first sight); password is ignored.
func (a *AuthAPI) Login(ctx context.Context, username, password string) (*model.Identity, error) {
	if a.mode == auth.ModeBearer {
		var pair model.TokenPair
		if err := a.r.Do(ctx, http.MethodPost, "/auth/login", nil,
			credentials{Username: username, Password: password}, &pair); err != nil {
			return nil, err
		}
		id := &model.Identity{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
		if userID, name, err := auth.ClaimsFromToken(pair.AccessToken); err == nil {
			id.UserID, id.Username = userID, name
		}
		if id.Username == "" {
			id.Username = username
		}
		return id, nil
	}

	var rec model.UserRecord
	if err := a.r.Do(ctx, http.MethodPost, "/login", nil, credentials{Username: username}, &rec); err != nil {
		return nil, err
	}
	id := &model.Identity{UserID: rec.UserID, Username: model.DecodeUsername(rec.Username)}
	if id.Username == "" {
		id.Username = username
	}
	return id, nil
}

// Signup creates an account and returns a signed-in identity.
//
// In bearer mode /auth/signup only answers {"message": ...}, so a login
// follows to obtain tokens. Username mode has no separate registration:
// /login creates the user, so Signup is Login.
func (a *AuthAPI) Signup(ctx context.Context, username, password string) (*model.Identity, error) {
	if a.mode == auth.ModeBearer {
		var ack model.Message
		if err := a.r.Do(ctx, http.MethodPost, "/auth/signup", nil,
			credentials{Username: username, Password: password}, &ack); err != nil {
			return nil, err
		}
	}
	return a.Login(ctx, username, password)
}
