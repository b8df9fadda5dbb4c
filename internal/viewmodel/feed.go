package viewmodel

import (
	"context"

	"github.com/sakif/feedclient/internal/model"
)

// FeedView is the home screen: the paginated post feed.
type FeedView struct {
	screen
	likes liker
	posts *Paginator[model.Post]
}

// NewFeedView creates an empty feed that fetches limit posts per page.
func NewFeedView(s *Session, limit int) *FeedView {
	v := &FeedView{screen: screen{session: s}}
	v.posts = NewPaginator[model.Post](s.api.Posts.List, limit, s)
	return v
}

func (v *FeedView) Refresh(ctx context.Context) error  { return v.posts.Refresh(ctx) }
func (v *FeedView) LoadMore(ctx context.Context) error { return v.posts.LoadMore(ctx) }
func (v *FeedView) Retry(ctx context.Context) error    { return v.posts.Retry(ctx) }

func (v *FeedView) OnScroll(ctx context.Context, scrollTop, viewportHeight, documentHeight float64) error {
	return v.posts.OnScroll(ctx, scrollTop, viewportHeight, documentHeight)
}

// Snapshot returns the list state to render.
func (v *FeedView) Snapshot() Snapshot[model.Post] { return v.posts.Snapshot() }

// Close unmounts the screen; late results are discarded.
func (v *FeedView) Close() {
	v.close()
	v.posts.Close()
}

// Create publishes a post and puts it at the top of the feed.
func (v *FeedView) Create(ctx context.Context, content string) (model.Post, error) {
	p, err := v.session.api.Posts.Create(ctx, content)
	if err != nil {
		return model.Post{}, v.fail(ctx, err)
	}
	v.posts.Prepend(p)
	v.succeed()
	return p, nil
}

// Edit updates a post's content and swaps in the server's version.
func (v *FeedView) Edit(ctx context.Context, id int64, content string) (model.Post, error) {
	p, err := v.session.api.Posts.Update(ctx, id, content)
	if err != nil {
		return model.Post{}, v.fail(ctx, err)
	}
	v.posts.Replace(postID(id), p)
	v.succeed()
	return p, nil
}

// Delete removes a post on the server and from the feed.
func (v *FeedView) Delete(ctx context.Context, id int64) error {
	if err := v.session.api.Posts.Delete(ctx, id); err != nil {
		return v.fail(ctx, err)
	}
	v.posts.Remove(postID(id))
	v.succeed()
	return nil
}

// ToggleLike likes or unlikes a post in the feed and applies the server's
// confirmed count. A post not in the feed is a no-op.
func (v *FeedView) ToggleLike(ctx context.Context, id int64) error {
	current, ok := v.posts.Find(postID(id))
	if !ok {
		return nil
	}
	res, sent, err := v.likes.send(ctx, v.session, id, current.IsLiked)
	if !sent {
		return nil
	}
	if err != nil {
		return v.fail(ctx, err)
	}
	v.posts.Update(postID(id), func(p *model.Post) { applyLike(p, !current.IsLiked, res) })
	v.succeed()
	return nil
}
