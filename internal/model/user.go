// Package model defines the data structures used throughout the application.
package model

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// Author is the embedded user reference carried by posts and comments.
type Author struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// UserSummary is one entry of a user search (or follower list) result.
//
// The username may arrive percent-encoded: the username-header variant
// stores what the client sent in x-username, which is encodeURIComponent
// output. DecodeUsername undoes that at the deserialization boundary.
type UserSummary struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	FollowersCount  int    `json:"followers_count,omitempty"`
	FollowingCount  int    `json:"following_count,omitempty"`
}

// UnmarshalJSON decodes the username on the way in.
func (u *UserSummary) UnmarshalJSON(data []byte) error {
	type raw UserSummary
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*u = UserSummary(r)
	u.Username = DecodeUsername(u.Username)
	return nil
}

// Profile is the response of GET /users/{id} and GET /users/me.
//
// Posts and Comments are optional on the wire (the bearer variant omits
// them); they are always non-nil after decoding.
type Profile struct {
	ID              int64      `json:"id"`
	Username        string     `json:"username"`
	ProfileImageURL string     `json:"profile_image_url,omitempty"`
	PostsCount      int        `json:"posts_count"`
	FollowersCount  int        `json:"followers_count"`
	FollowingCount  int        `json:"following_count"`
	IsFollowing     *bool      `json:"is_following,omitempty"`
	Posts           []Post     `json:"posts"`
	Comments        []Comment  `json:"comments"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// UnmarshalJSON applies the profile defaults: empty collections instead of
// nil, and percent-decoded usernames everywhere in the tree.
func (p *Profile) UnmarshalJSON(data []byte) error {
	type raw Profile
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*p = Profile(r)
	p.Username = DecodeUsername(p.Username)
	if p.Posts == nil {
		p.Posts = []Post{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	for i := range p.Posts {
		p.Posts[i].Author.Username = DecodeUsername(p.Posts[i].Author.Username)
	}
	for i := range p.Comments {
		p.Comments[i].Author.Username = DecodeUsername(p.Comments[i].Author.Username)
	}
	return nil
}

// DecodeUsername reverses encodeURIComponent-style percent-encoding.
//
// Only strings containing '%' are touched, and an invalid escape sequence
// keeps the raw text: a display name is better shown mangled than dropped.
// PathUnescape is used (not QueryUnescape) because '+' is a literal plus in
// encodeURIComponent output, not a space.
func DecodeUsername(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// EncodeUsername percent-encodes a display name so it can travel in an
// HTTP header restricted to visible ASCII. Spaces become %20, never '+'.
func EncodeUsername(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// FollowResult is the server's confirmation of a follow or unfollow.
type FollowResult struct {
	UserID      int64 `json:"user_id"`
	IsFollowing bool  `json:"is_following"`
}
