package api

import (
	"context"
	"net/http"

	"github.com/sakif/feedclient/internal/model"
)

// CommentsAPI covers /posts/{id}/comments and /comments/{id}.
type CommentsAPI struct{ base }

func (c *CommentsAPI) List(ctx context.Context, postID int64, page, limit int) (model.Page[model.Comment], error) {
	var out model.Page[model.Comment]
	err := c.r.Do(ctx, http.MethodGet, idPath("/posts/", postID, "/comments"), pageQuery(page, limit), nil, &out)
	return out, err
}

func (c *CommentsAPI) Create(ctx context.Context, postID int64, content string) (model.Comment, error) {
	var out model.Comment
	body := contentBody{Content: content, Username: c.authorName()}
	err := c.r.Do(ctx, http.MethodPost, idPath("/posts/", postID, "/comments"), nil, body, &out)
	return out, err
}

func (c *CommentsAPI) Update(ctx context.Context, commentID int64, content string) (model.Comment, error) {
	var out model.Comment
	err := c.r.Do(ctx, http.MethodPut, idPath("/comments/", commentID, ""), nil, contentBody{Content: content}, &out)
	return out, err
}

func (c *CommentsAPI) Delete(ctx context.Context, commentID int64) error {
	return c.r.Do(ctx, http.MethodDelete, idPath("/comments/", commentID, ""), nil, nil, nil)
}
