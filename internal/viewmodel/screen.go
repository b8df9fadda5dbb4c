package viewmodel

import (
	"context"
	"sync"

	"github.com/sakif/feedclient/internal/model"
)

// screen is the state every view shares: the session, the notice line and
// the unmounted flag.
type screen struct {
	session *Session

	mu     sync.Mutex
	notice string
	closed bool
}

// Notice is the message from the last failed action, or "".
func (s *screen) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// fail records the user-visible message for err and returns err.
func (s *screen) fail(ctx context.Context, err error) error {
	msg := s.session.HandleError(ctx, err)
	s.mu.Lock()
	if !s.closed {
		s.notice = msg
	}
	s.mu.Unlock()
	return err
}

func (s *screen) succeed() {
	s.mu.Lock()
	s.notice = ""
	s.mu.Unlock()
}

func (s *screen) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *screen) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// liker sends like and unlike calls, one at a time per post. A toggle on a
// post whose previous toggle is still pending is dropped.
type liker struct {
	mu      sync.Mutex
	pending map[int64]bool
}

// send likes the post when liked is false and unlikes it when true. ok is
// false when the toggle was dropped.
func (l *liker) send(ctx context.Context, s *Session, postID int64, liked bool) (res model.LikeResult, ok bool, err error) {
	l.mu.Lock()
	if l.pending == nil {
		l.pending = make(map[int64]bool)
	}
	if l.pending[postID] {
		l.mu.Unlock()
		return model.LikeResult{}, false, nil
	}
	l.pending[postID] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.pending, postID)
		l.mu.Unlock()
	}()

	if liked {
		res, err = s.api.Posts.Unlike(ctx, postID)
	} else {
		res, err = s.api.Posts.Like(ctx, postID)
	}
	return res, true, err
}

// applyLike sets the post to what the server confirmed. The count is the
// server's, never a local increment; is_liked falls back to the requested
// state when the server leaves it out.
func applyLike(p *model.Post, requested bool, res model.LikeResult) {
	p.IsLiked = requested
	if res.IsLiked != nil {
		p.IsLiked = *res.IsLiked
	}
	p.LikesCount = model.Floor(res.LikesCount)
}

func postID(id int64) func(model.Post) bool {
	return func(p model.Post) bool { return p.ID == id }
}

func commentID(id int64) func(model.Comment) bool {
	return func(c model.Comment) bool { return c.ID == id }
}
