package viewmodel

import (
	"context"
	"errors"

	"github.com/sakif/feedclient/internal/apperror"
	"github.com/sakif/feedclient/internal/model"
)

// PostDetailView is one post with its comment thread.
type PostDetailView struct {
	screen
	likes    liker
	id       int64
	comments *Paginator[model.Comment]

	// guarded by screen.mu
	post     *model.Post
	notFound bool
	deleted  bool
}

// NewPostDetailView creates the view for post id. Nothing is fetched until Load.
func NewPostDetailView(s *Session, id int64, limit int) *PostDetailView {
	v := &PostDetailView{screen: screen{session: s}, id: id}
	v.comments = NewPaginator[model.Comment](func(ctx context.Context, page, n int) (model.Page[model.Comment], error) {
		return s.api.Comments.List(ctx, id, page, n)
	}, limit, s)
	return v
}

// Load fetches the post, then the first page of comments. A missing post
// sets NotFound and skips the comments.
func (v *PostDetailView) Load(ctx context.Context) error {
	p, err := v.session.api.Posts.Get(ctx, v.id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			v.mu.Lock()
			if !v.closed {
				v.notFound = true
			}
			v.mu.Unlock()
		}
		return v.fail(ctx, err)
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.post = &p
	v.notFound = false
	v.mu.Unlock()
	v.succeed()

	return v.comments.Refresh(ctx)
}

// Post returns the loaded post.
func (v *PostDetailView) Post() (model.Post, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.post == nil {
		return model.Post{}, false
	}
	return *v.post, true
}

func (v *PostDetailView) NotFound() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.notFound
}

// Deleted reports whether the post was deleted from this screen; the host
// navigates away.
func (v *PostDetailView) Deleted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deleted
}

// Comments returns the comment list state to render.
func (v *PostDetailView) Comments() Snapshot[model.Comment] { return v.comments.Snapshot() }

func (v *PostDetailView) LoadMoreComments(ctx context.Context) error {
	return v.comments.LoadMore(ctx)
}

func (v *PostDetailView) RetryComments(ctx context.Context) error {
	return v.comments.Retry(ctx)
}

func (v *PostDetailView) OnScroll(ctx context.Context, scrollTop, viewportHeight, documentHeight float64) error {
	return v.comments.OnScroll(ctx, scrollTop, viewportHeight, documentHeight)
}

func (v *PostDetailView) Close() {
	v.close()
	v.comments.Close()
}

// updatePost applies fn to the loaded post unless the view is closed.
func (v *PostDetailView) updatePost(fn func(*model.Post)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.post == nil {
		return
	}
	fn(v.post)
}

// ToggleLike likes or unlikes the post and applies the server's count.
func (v *PostDetailView) ToggleLike(ctx context.Context) error {
	current, ok := v.Post()
	if !ok {
		return nil
	}
	res, sent, err := v.likes.send(ctx, v.session, v.id, current.IsLiked)
	if !sent {
		return nil
	}
	if err != nil {
		return v.fail(ctx, err)
	}
	v.updatePost(func(p *model.Post) { applyLike(p, !current.IsLiked, res) })
	v.succeed()
	return nil
}

// EditPost updates the post's content.
func (v *PostDetailView) EditPost(ctx context.Context, content string) error {
	p, err := v.session.api.Posts.Update(ctx, v.id, content)
	if err != nil {
		return v.fail(ctx, err)
	}
	v.updatePost(func(cur *model.Post) { *cur = p })
	v.succeed()
	return nil
}

// DeletePost deletes the post and marks the view Deleted.
func (v *PostDetailView) DeletePost(ctx context.Context) error {
	if err := v.session.api.Posts.Delete(ctx, v.id); err != nil {
		return v.fail(ctx, err)
	}
	v.mu.Lock()
	if !v.closed {
		v.deleted = true
	}
	v.mu.Unlock()
	v.succeed()
	return nil
}

// AddComment posts a comment, puts it at the top of the thread and bumps
// the post's comment count.
func (v *PostDetailView) AddComment(ctx context.Context, content string) (model.Comment, error) {
	c, err := v.session.api.Comments.Create(ctx, v.id, content)
	if err != nil {
		return model.Comment{}, v.fail(ctx, err)
	}
	v.comments.Prepend(c)
	v.updatePost(func(p *model.Post) { p.CommentsCount = model.Floor(p.CommentsCount + 1) })
	v.succeed()
	return c, nil
}

// EditComment replaces a comment with the server's updated version.
func (v *PostDetailView) EditComment(ctx context.Context, id int64, content string) (model.Comment, error) {
	c, err := v.session.api.Comments.Update(ctx, id, content)
	if err != nil {
		return model.Comment{}, v.fail(ctx, err)
	}
	v.comments.Replace(commentID(id), c)
	v.succeed()
	return c, nil
}

// DeleteComment removes a comment and lowers the post's comment count,
// never below zero.
func (v *PostDetailView) DeleteComment(ctx context.Context, id int64) error {
	if err := v.session.api.Comments.Delete(ctx, id); err != nil {
		return v.fail(ctx, err)
	}
	v.comments.Remove(commentID(id))
	v.updatePost(func(p *model.Post) { p.CommentsCount = model.Floor(p.CommentsCount - 1) })
	v.succeed()
	return nil
}
