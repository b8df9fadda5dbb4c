package viewmodel

import (
	"context"
	"errors"

	"github.com/sakif/feedclient/internal/apperror"
	"github.com/sakif/feedclient/internal/model"
)

// ProfileView is a user's page: counts, posts and comments.
type ProfileView struct {
	screen
	likes liker

	// guarded by screen.mu
	profile  *model.Profile
	notFound bool
}

func NewProfileView(s *Session) *ProfileView {
	return &ProfileView{screen: screen{session: s}}
}

// Load fetches the profile of userID, or of the signed-in user when userID
// is 0.
func (v *ProfileView) Load(ctx context.Context, userID int64) error {
	var (
		prof model.Profile
		err  error
	)
	if userID == 0 {
		prof, err = v.session.api.Users.Me(ctx)
	} else {
		prof, err = v.session.api.Users.Profile(ctx, userID)
	}

	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			v.mu.Lock()
			if !v.closed {
				v.notFound = true
				v.profile = nil
			}
			v.mu.Unlock()
		}
		return v.fail(ctx, err)
	}

	v.mu.Lock()
	if !v.closed {
		v.profile = &prof
		v.notFound = false
	}
	v.mu.Unlock()
	v.succeed()
	return nil
}

// Profile returns a copy of the loaded profile.
func (v *ProfileView) Profile() (model.Profile, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.profile == nil {
		return model.Profile{}, false
	}
	p := *v.profile
	p.Posts = append([]model.Post(nil), v.profile.Posts...)
	p.Comments = append([]model.Comment(nil), v.profile.Comments...)
	return p, true
}

func (v *ProfileView) NotFound() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.notFound
}

// IsSelf reports whether the loaded profile is the signed-in user's.
func (v *ProfileView) IsSelf() bool {
	id := v.session.Identity()
	p, ok := v.Profile()
	return ok && id != nil && id.UserID == p.ID
}

func (v *ProfileView) Close() { v.close() }

func (v *ProfileView) update(fn func(*model.Profile)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.profile == nil {
		return
	}
	fn(v.profile)
}

// ToggleFollow follows or unfollows the profile's user. The follower count
// moves by one only when the server reports a change of state.
func (v *ProfileView) ToggleFollow(ctx context.Context) error {
	p, ok := v.Profile()
	if !ok {
		return nil
	}
	following := p.IsFollowing != nil && *p.IsFollowing

	var (
		res model.FollowResult
		err error
	)
	if following {
		res, err = v.session.api.Follows.Unfollow(ctx, p.ID)
	} else {
		res, err = v.session.api.Follows.Follow(ctx, p.ID)
	}
	if err != nil {
		return v.fail(ctx, err)
	}

	v.update(func(cur *model.Profile) {
		was := cur.IsFollowing != nil && *cur.IsFollowing
		now := res.IsFollowing
		cur.IsFollowing = &now
		switch {
		case now && !was:
			cur.FollowersCount++
		case !now && was:
			cur.FollowersCount = model.Floor(cur.FollowersCount - 1)
		}
	})
	v.succeed()
	return nil
}

// ToggleLike likes or unlikes one of the profile's posts.
func (v *ProfileView) ToggleLike(ctx context.Context, id int64) error {
	p, ok := v.Profile()
	if !ok {
		return nil
	}
	var current *model.Post
	for i := range p.Posts {
		if p.Posts[i].ID == id {
			current = &p.Posts[i]
			break
		}
	}
	if current == nil {
		return nil
	}

	res, sent, err := v.likes.send(ctx, v.session, id, current.IsLiked)
	if !sent {
		return nil
	}
	if err != nil {
		return v.fail(ctx, err)
	}
	liked := current.IsLiked
	v.update(func(cur *model.Profile) {
		for i := range cur.Posts {
			if cur.Posts[i].ID == id {
				applyLike(&cur.Posts[i], !liked, res)
			}
		}
	})
	v.succeed()
	return nil
}
