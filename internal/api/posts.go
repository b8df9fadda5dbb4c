package api

import (
	"context"
	"net/http"

	"github.com/sakif/feedclient/internal/model"
)

// PostsAPI covers /posts.
type PostsAPI struct{ base }

type contentBody struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// List returns one page of the feed.
func (p *PostsAPI) List(ctx context.Context, page, limit int) (model.Page[model.Post], error) {
	var out model.Page[model.Post]
	err := p.r.Do(ctx, http.MethodGet, "/posts", pageQuery(page, limit), nil, &out)
	return out, err
}

// ListByUser returns one page of a single author's posts.
func (p *PostsAPI) ListByUser(ctx context.Context, userID int64, page, limit int) (model.Page[model.Post], error) {
	var out model.Page[model.Post]
	err := p.r.Do(ctx, http.MethodGet, idPath("/posts/user/", userID, ""), pageQuery(page, limit), nil, &out)
	return out, err
}

func (p *PostsAPI) Get(ctx context.Context, id int64) (model.Post, error) {
	var out model.Post
	err := p.r.Do(ctx, http.MethodGet, idPath("/posts/", id, ""), nil, nil, &out)
	return out, err
}

// Create publishes a post as the current user.
func (p *PostsAPI) Create(ctx context.Context, content string) (model.Post, error) {
	var out model.Post
	body := contentBody{Content: content, Username: p.authorName()}
	err := p.r.Do(ctx, http.MethodPost, "/posts", nil, body, &out)
	return out, err
}

func (p *PostsAPI) Update(ctx context.Context, id int64, content string) (model.Post, error) {
	var out model.Post
	err := p.r.Do(ctx, http.MethodPut, idPath("/posts/", id, ""), nil, contentBody{Content: content}, &out)
	return out, err
}

func (p *PostsAPI) Delete(ctx context.Context, id int64) error {
	return p.r.Do(ctx, http.MethodDelete, idPath("/posts/", id, ""), nil, nil, nil)
}

// Like returns the server's count after the like. The server is
// idempotent: liking twice leaves the count unchanged.
func (p *PostsAPI) Like(ctx context.Context, id int64) (model.LikeResult, error) {
	var out model.LikeResult
	err := p.r.Do(ctx, http.MethodPost, idPath("/posts/", id, "/like"), nil, nil, &out)
	return out, err
}

func (p *PostsAPI) Unlike(ctx context.Context, id int64) (model.LikeResult, error) {
	var out model.LikeResult
	err := p.r.Do(ctx, http.MethodDelete, idPath("/posts/", id, "/like"), nil, nil, &out)
	return out, err
}
