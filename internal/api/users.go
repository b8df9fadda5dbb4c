package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sakif/feedclient/internal/model"
)

// SearchAPI covers GET /search.
type SearchAPI struct{ base }

// Users finds users whose name contains query. The query is sent as a
// normal query parameter; result names are percent-decoded on decode.
func (s *SearchAPI) Users(ctx context.Context, query string, page, limit int) (model.Page[model.UserSummary], error) {
	q := pageQuery(page, limit)
	q.Set("username", query)
	var out model.Page[model.UserSummary]
	err := s.r.Do(ctx, http.MethodGet, "/search", q, nil, &out)
	return out, err
}

// UsersAPI covers /users and /profile/me.
type UsersAPI struct{ base }

// Profile returns a user with their posts and comments.
func (u *UsersAPI) Profile(ctx context.Context, userID int64) (model.Profile, error) {
	var out model.Profile
	err := u.r.Do(ctx, http.MethodGet, idPath("/users/", userID, ""), nil, nil, &out)
	return out, err
}

// Me returns the signed-in user's profile.
func (u *UsersAPI) Me(ctx context.Context) (model.Profile, error) {
	var out model.Profile
	err := u.r.Do(ctx, http.MethodGet, "/users/me", nil, nil, &out)
	return out, err
}

func (u *UsersAPI) MyPosts(ctx context.Context, page, limit int) (model.Page[model.Post], error) {
	var out model.Page[model.Post]
	err := u.r.Do(ctx, http.MethodGet, "/profile/me/posts", pageQuery(page, limit), nil, &out)
	return out, err
}

func (u *UsersAPI) Followers(ctx context.Context, page, limit int) (model.Page[model.UserSummary], error) {
	return u.userList(ctx, "/profile/me/followers", pageQuery(page, limit))
}

func (u *UsersAPI) Following(ctx context.Context, page, limit int) (model.Page[model.UserSummary], error) {
	return u.userList(ctx, "/profile/me/following", pageQuery(page, limit))
}

func (u *UsersAPI) userList(ctx context.Context, path string, q url.Values) (model.Page[model.UserSummary], error) {
	var out model.Page[model.UserSummary]
	err := u.r.Do(ctx, http.MethodGet, path, q, nil, &out)
	return out, err
}

// FollowsAPI covers /follows.
type FollowsAPI struct{ base }

type followBody struct {
	FollowingID int64 `json:"following_id"`
}

func (f *FollowsAPI) Follow(ctx context.Context, userID int64) (model.FollowResult, error) {
	var out model.FollowResult
	err := f.r.Do(ctx, http.MethodPost, "/follows", nil, followBody{FollowingID: userID}, &out)
	return out, err
}

// Unfollow sends DELETE with a JSON body, as the follows endpoint expects.
func (f *FollowsAPI) Unfollow(ctx context.Context, userID int64) (model.FollowResult, error) {
	var out model.FollowResult
	err := f.r.Do(ctx, http.MethodDelete, "/follows", nil, followBody{FollowingID: userID}, &out)
	return out, err
}

// SystemAPI covers GET /.
type SystemAPI struct{ base }

func (s *SystemAPI) Health(ctx context.Context) (model.Health, error) {
	var out model.Health
	err := s.r.Do(ctx, http.MethodGet, "/", nil, nil, &out)
	return out, err
}
