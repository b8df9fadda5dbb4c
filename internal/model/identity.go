package model

import "encoding/json"

// Identity is the locally stored credential of the signed-in user.
//
// Two shapes exist, one per deployment:
//   - bearer:   AccessToken (+ RefreshToken) set; UserID/Username are decoded
//     from the token claims when possible
//   - username: UserID + Username only, sent as headers on every request
//
// An Identity is never edited in place. Login replaces it wholesale.
type Identity struct {
	UserID       int64  `json:"userId,omitempty"`
	Username     string `json:"username"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// HasToken reports whether this is a bearer identity.
func (i *Identity) HasToken() bool {
	return i != nil && i.AccessToken != ""
}

// TokenPair is the persisted record of the bearer variant, in the same
// shape the server returns from /auth/login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// UserRecord is the persisted record of the username variant.
type UserRecord struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// UnmarshalJSON accepts the id under any of the spellings the username
// servers have used: userId, user_id or id.
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	var r struct {
		UserID    *int64 `json:"userId"`
		UserIDAlt *int64 `json:"user_id"`
		ID        *int64 `json:"id"`
		Username  string `json:"username"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	u.Username = r.Username
	switch {
	case r.UserID != nil:
		u.UserID = *r.UserID
	case r.UserIDAlt != nil:
		u.UserID = *r.UserIDAlt
	case r.ID != nil:
		u.UserID = *r.ID
	default:
		u.UserID = 0
	}
	return nil
}
