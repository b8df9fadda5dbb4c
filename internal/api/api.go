// Package api is the typed facade over the feed HTTP API.
//
// Each method is one HTTP call: it builds the path and body, sends them
// through the dispatcher and returns the decoded payload. Errors come back
// exactly as the dispatcher produced them; classifying them is the
// view-model's job.
//
// GROUPS:
//
//	Auth      login, signup
//	Posts     list, list by user, get, create, update, delete, like, unlike
//	Comments  list, create, update, delete
//	Search    users
//	Users     profile, me, my posts, followers, following
//	Follows   follow, unfollow
//	System    health
package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/sakif/feedclient/internal/auth"
)

// Requester sends one request and decodes the response.
// *dispatch.Client implements it.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

// Client groups the operation sets. Build it with New.
type Client struct {
	Auth     *AuthAPI
	Posts    *PostsAPI
	Comments *CommentsAPI
	Search   *SearchAPI
	Users    *UsersAPI
	Follows  *FollowsAPI
	System   *SystemAPI
}

// New wires every group to the same requester.
//
// identity is read only in username mode, where the create bodies must
// carry the author's name; the headers are the dispatcher's business.
func New(r Requester, mode auth.Mode, identity auth.IdentitySource) *Client {
	b := base{r: r, mode: mode, identity: identity}
	return &Client{
		Auth:     &AuthAPI{b},
		Posts:    &PostsAPI{b},
		Comments: &CommentsAPI{b},
		Search:   &SearchAPI{b},
		Users:    &UsersAPI{b},
		Follows:  &FollowsAPI{b},
		System:   &SystemAPI{b},
	}
}

type base struct {
	r        Requester
	mode     auth.Mode
	identity auth.IdentitySource
}

// authorName is the username create bodies carry in username mode, and ""
// otherwise (the field is then omitted from the JSON).
func (b base) authorName() string {
	if b.mode != auth.ModeUsername || b.identity == nil {
		return ""
	}
	if id := b.identity.Current(); id != nil {
		return id.Username
	}
	return ""
}

func pageQuery(page, limit int) url.Values {
	return url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
}

func idPath(prefix string, id int64, suffix string) string {
	return prefix + strconv.FormatInt(id, 10) + suffix
}
