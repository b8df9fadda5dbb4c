// Package mockapi is an in-memory stand-in for the feed HTTP API.
//
// It implements every endpoint the client facade calls, in either auth
// mode, so the client can be developed and tested without the real
// backend. State lives in memory and is lost on restart; a client holding
// an identity from a previous run then gets 401, which is exactly the
// stale-credential path the session has to handle.
//
// LAYERS (same split as a real service):
//
//	handler.go  HTTP: decode, call Feed, encode or map the error
//	feed.go     rules: validation, ownership, counters
//	server.go   wiring: router, middleware, graceful shutdown
package mockapi

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sakif/feedclient/internal/apperror"
	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/model"
)

// Validation limits, matching the feed backend's schema.
const (
	MinPasswordLength = 6
	MaxUsernameLength = 30
	MaxContentLength  = 500
	MaxPageLimit      = 50
)

type user struct {
	id           int64
	username     string
	passwordHash string
	createdAt    time.Time
}

type post struct {
	id        int64
	authorID  int64
	content   string
	likes     map[int64]struct{}
	comments  int
	createdAt time.Time
	updatedAt *time.Time
}

type comment struct {
	id        int64
	postID    int64
	authorID  int64
	content   string
	createdAt time.Time
	updatedAt *time.Time
}

// Feed holds all state of the stub API behind one mutex.
type Feed struct {
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	users    []*user // ordered by id
	posts    []*post // ordered by id
	comments []*comment
	follows  map[int64]map[int64]struct{} // follower → followed
	nextID   struct{ user, post, comment int64 }
}

// NewFeed creates an empty Feed.
func NewFeed(passwords *auth.PasswordService, logger *slog.Logger) *Feed {
	return &Feed{
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
		follows:   make(map[int64]map[int64]struct{}),
	}
}

// =========================================================================
// USERS AND SESSIONS
// =========================================================================

func validUsername(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if utf8.RuneCountInString(name) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	return nil
}

// Signup registers a password account (bearer mode).
func (f *Feed) Signup(ctx context.Context, username, password string) error {
	if err := validUsername(username); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	hash, err := f.passwords.Hash(password)
	if err != nil {
		return apperror.ValidationFailed("password", err.Error())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userByNameLocked(username) != nil {
		return apperror.ValidationFailed("username", "Username already registered")
	}
	u := f.addUserLocked(strings.TrimSpace(username))
	u.passwordHash = hash

	f.logger.Info("user signed up", slog.Int64("user_id", u.id))
	return nil
}

// Authenticate checks a password login (bearer mode).
func (f *Feed) Authenticate(ctx context.Context, username, password string) (int64, string, error) {
	f.mu.Lock()
	u := f.userByNameLocked(username)
	f.mu.Unlock()

	if u == nil || u.passwordHash == "" {
		return 0, "", apperror.Unauthorized("incorrect username or password")
	}
	if err := f.passwords.Verify(u.passwordHash, password); err != nil {
		return 0, "", apperror.Unauthorized("incorrect username or password")
	}
	return u.id, u.username, nil
}

// LoginByName returns the user with this name, creating it on first use
// (username mode).
func (f *Feed) LoginByName(ctx context.Context, username string) (model.UserRecord, error) {
	if err := validUsername(username); err != nil {
		return model.UserRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.userByNameLocked(username)
	if u == nil {
		u = f.addUserLocked(strings.TrimSpace(username))
		f.logger.Info("user created on login", slog.Int64("user_id", u.id))
	}
	return model.UserRecord{UserID: u.id, Username: u.username}, nil
}

// Resolve confirms a principal still names an existing user and fills in
// the stored username.
func (f *Feed) Resolve(p auth.Principal) (auth.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userLocked(p.UserID)
	if u == nil {
		return auth.Principal{}, apperror.Unauthorized("unknown user")
	}
	return auth.Principal{UserID: u.id, Username: u.username}, nil
}

func (f *Feed) addUserLocked(name string) *user {
	f.nextID.user++
	u := &user{id: f.nextID.user, username: name, createdAt: f.now().UTC()}
	f.users = append(f.users, u)
	return u
}

func (f *Feed) userLocked(id int64) *user {
	i, ok := slices.BinarySearchFunc(f.users, id, func(u *user, id int64) int { return cmpID(u.id, id) })
	if !ok {
		return nil
	}
	return f.users[i]
}

func (f *Feed) userByNameLocked(name string) *user {
	name = strings.TrimSpace(name)
	for _, u := range f.users {
		if u.username == name {
			return u
		}
	}
	return nil
}

func cmpID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// =========================================================================
// POSTS
// =========================================================================

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return content, nil
}

// ListPosts returns the feed, newest first. viewer may be 0.
func (f *Feed) ListPosts(ctx context.Context, viewer int64, page, limit int) model.Page[model.Post] {
	return f.listPosts(viewer, page, limit, func(*post) bool { return true })
}

// ListUserPosts returns one author's posts, newest first.
func (f *Feed) ListUserPosts(ctx context.Context, authorID, viewer int64, page, limit int) (model.Page[model.Post], error) {
	f.mu.Lock()
	exists := f.userLocked(authorID) != nil
	f.mu.Unlock()
	if !exists {
		return model.Page[model.Post]{}, apperror.NotFound("user", fmt.Sprint(authorID))
	}
	return f.listPosts(viewer, page, limit, func(p *post) bool { return p.authorID == authorID }), nil
}

func (f *Feed) listPosts(viewer int64, page, limit int, keep func(*post) bool) model.Page[model.Post] {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []model.Post
	for i := len(f.posts) - 1; i >= 0; i-- {
		if keep(f.posts[i]) {
			all = append(all, f.postViewLocked(f.posts[i], viewer))
		}
	}
	return paginate(all, page, limit)
}

func (f *Feed) GetPost(ctx context.Context, id, viewer int64) (model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.postLocked(id)
	if p == nil {
		return model.Post{}, apperror.NotFound("post", fmt.Sprint(id))
	}
	return f.postViewLocked(p, viewer), nil
}

func (f *Feed) CreatePost(ctx context.Context, authorID int64, content string) (model.Post, error) {
	content, err := validContent(content)
	if err != nil {
		return model.Post{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID.post++
	p := &post{
		id:        f.nextID.post,
		authorID:  authorID,
		content:   content,
		likes:     make(map[int64]struct{}),
		createdAt: f.now().UTC(),
	}
	f.posts = append(f.posts, p)
	return f.postViewLocked(p, authorID), nil
}

func (f *Feed) UpdatePost(ctx context.Context, id, caller int64, content string) (model.Post, error) {
	content, err := validContent(content)
	if err != nil {
		return model.Post{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p, err := f.ownPostLocked(id, caller)
	if err != nil {
		return model.Post{}, err
	}
	now := f.now().UTC()
	p.content = content
	p.updatedAt = &now
	return f.postViewLocked(p, caller), nil
}

// DeletePost removes the post and its comments.
func (f *Feed) DeletePost(ctx context.Context, id, caller int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.ownPostLocked(id, caller); err != nil {
		return err
	}
	f.posts = slices.DeleteFunc(f.posts, func(p *post) bool { return p.id == id })
	f.comments = slices.DeleteFunc(f.comments, func(c *comment) bool { return c.postID == id })
	return nil
}

// Like and Unlike are idempotent: repeating one leaves the count unchanged.
func (f *Feed) Like(ctx context.Context, id, caller int64) (model.LikeResult, error) {
	return f.setLike(id, caller, true)
}

func (f *Feed) Unlike(ctx context.Context, id, caller int64) (model.LikeResult, error) {
	return f.setLike(id, caller, false)
}

func (f *Feed) setLike(id, caller int64, liked bool) (model.LikeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.postLocked(id)
	if p == nil {
		return model.LikeResult{}, apperror.NotFound("post", fmt.Sprint(id))
	}
	if liked {
		p.likes[caller] = struct{}{}
	} else {
		delete(p.likes, caller)
	}
	return model.LikeResult{PostID: p.id, IsLiked: &liked, LikesCount: len(p.likes)}, nil
}

func (f *Feed) postLocked(id int64) *post {
	i, ok := slices.BinarySearchFunc(f.posts, id, func(p *post, id int64) int { return cmpID(p.id, id) })
	if !ok {
		return nil
	}
	return f.posts[i]
}

func (f *Feed) ownPostLocked(id, caller int64) (*post, error) {
	p := f.postLocked(id)
	if p == nil {
		return nil, apperror.NotFound("post", fmt.Sprint(id))
	}
	if p.authorID != caller {
		return nil, apperror.Forbidden("only the author can change this post")
	}
	return p, nil
}

func (f *Feed) postViewLocked(p *post, viewer int64) model.Post {
	_, liked := p.likes[viewer]
	return model.Post{
		ID:            p.id,
		Content:       p.content,
		Author:        f.authorLocked(p.authorID),
		LikesCount:    len(p.likes),
		IsLiked:       viewer != 0 && liked,
		CommentsCount: p.comments,
		CreatedAt:     p.createdAt,
		UpdatedAt:     p.updatedAt,
	}
}

func (f *Feed) authorLocked(id int64) model.Author {
	if u := f.userLocked(id); u != nil {
		return model.Author{ID: u.id, Username: u.username}
	}
	return model.Author{ID: id}
}

// =========================================================================
// COMMENTS
// =========================================================================

// ListComments returns a post's comments, oldest first.
func (f *Feed) ListComments(ctx context.Context, postID int64, page, limit int) (model.Page[model.Comment], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.postLocked(postID) == nil {
		return model.Page[model.Comment]{}, apperror.NotFound("post", fmt.Sprint(postID))
	}
	var all []model.Comment
	for _, c := range f.comments {
		if c.postID == postID {
			all = append(all, f.commentViewLocked(c))
		}
	}
	return paginate(all, page, limit), nil
}

func (f *Feed) CreateComment(ctx context.Context, postID, authorID int64, content string) (model.Comment, error) {
	content, err := validContent(content)
	if err != nil {
		return model.Comment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.postLocked(postID)
	if p == nil {
		return model.Comment{}, apperror.NotFound("post", fmt.Sprint(postID))
	}
	f.nextID.comment++
	c := &comment{
		id:        f.nextID.comment,
		postID:    postID,
		authorID:  authorID,
		content:   content,
		createdAt: f.now().UTC(),
	}
	f.comments = append(f.comments, c)
	p.comments++
	return f.commentViewLocked(c), nil
}

func (f *Feed) UpdateComment(ctx context.Context, id, caller int64, content string) (model.Comment, error) {
	content, err := validContent(content)
	if err != nil {
		return model.Comment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.ownCommentLocked(id, caller)
	if err != nil {
		return model.Comment{}, err
	}
	now := f.now().UTC()
	c.content = content
	c.updatedAt = &now
	return f.commentViewLocked(c), nil
}

func (f *Feed) DeleteComment(ctx context.Context, id, caller int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.ownCommentLocked(id, caller)
	if err != nil {
		return err
	}
	f.comments = slices.DeleteFunc(f.comments, func(x *comment) bool { return x.id == id })
	if p := f.postLocked(c.postID); p != nil {
		p.comments = model.Floor(p.comments - 1)
	}
	return nil
}

func (f *Feed) ownCommentLocked(id, caller int64) (*comment, error) {
	for _, c := range f.comments {
		if c.id != id {
			continue
		}
		if c.authorID != caller {
			return nil, apperror.Forbidden("only the author can change this comment")
		}
		return c, nil
	}
	return nil, apperror.NotFound("comment", fmt.Sprint(id))
}

func (f *Feed) commentViewLocked(c *comment) model.Comment {
	return model.Comment{
		ID:        c.id,
		PostID:    c.postID,
		Content:   c.content,
		Author:    f.authorLocked(c.authorID),
		CreatedAt: c.createdAt,
		UpdatedAt: c.updatedAt,
	}
}

// =========================================================================
// SEARCH, PROFILES, FOLLOWS
// =========================================================================

// SearchUsers matches a case-insensitive substring of the username.
func (f *Feed) SearchUsers(ctx context.Context, query string, page, limit int) (model.Page[model.UserSummary], error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return model.Page[model.UserSummary]{}, apperror.ValidationFailed("username", "search term is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []model.UserSummary
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.username), query) {
			all = append(all, f.summaryLocked(u))
		}
	}
	return paginate(all, page, limit), nil
}

// Profile returns a user with all their posts and comments.
func (f *Feed) Profile(ctx context.Context, userID, viewer int64) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.userLocked(userID)
	if u == nil {
		return model.Profile{}, apperror.NotFound("user", fmt.Sprint(userID))
	}

	prof := model.Profile{
		ID:             u.id,
		Username:       u.username,
		FollowersCount: f.followerCountLocked(u.id),
		FollowingCount: len(f.follows[u.id]),
		Posts:          []model.Post{},
		Comments:       []model.Comment{},
		CreatedAt:      u.createdAt,
	}
	for i := len(f.posts) - 1; i >= 0; i-- {
		if f.posts[i].authorID == u.id {
			prof.Posts = append(prof.Posts, f.postViewLocked(f.posts[i], viewer))
		}
	}
	for _, c := range f.comments {
		if c.authorID == u.id {
			prof.Comments = append(prof.Comments, f.commentViewLocked(c))
		}
	}
	prof.PostsCount = len(prof.Posts)
	if viewer != 0 && viewer != u.id {
		_, following := f.follows[viewer][u.id]
		prof.IsFollowing = &following
	}
	return prof, nil
}

// Followers lists the users following userID.
func (f *Feed) Followers(ctx context.Context, userID int64, page, limit int) model.Page[model.UserSummary] {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []model.UserSummary
	for _, u := range f.users {
		if _, ok := f.follows[u.id][userID]; ok {
			all = append(all, f.summaryLocked(u))
		}
	}
	return paginate(all, page, limit)
}

// Following lists the users userID follows.
func (f *Feed) Following(ctx context.Context, userID int64, page, limit int) model.Page[model.UserSummary] {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []model.UserSummary
	for _, u := range f.users {
		if _, ok := f.follows[userID][u.id]; ok {
			all = append(all, f.summaryLocked(u))
		}
	}
	return paginate(all, page, limit)
}

func (f *Feed) Follow(ctx context.Context, caller, target int64) (model.FollowResult, error) {
	if caller == target {
		return model.FollowResult{}, apperror.ValidationFailed("following_id", "you cannot follow yourself")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.userLocked(target) == nil {
		return model.FollowResult{}, apperror.NotFound("user", fmt.Sprint(target))
	}
	if f.follows[caller] == nil {
		f.follows[caller] = make(map[int64]struct{})
	}
	f.follows[caller][target] = struct{}{}
	return model.FollowResult{UserID: target, IsFollowing: true}, nil
}

func (f *Feed) Unfollow(ctx context.Context, caller, target int64) (model.FollowResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.userLocked(target) == nil {
		return model.FollowResult{}, apperror.NotFound("user", fmt.Sprint(target))
	}
	delete(f.follows[caller], target)
	return model.FollowResult{UserID: target, IsFollowing: false}, nil
}

func (f *Feed) followerCountLocked(id int64) int {
	n := 0
	for _, set := range f.follows {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}

func (f *Feed) summaryLocked(u *user) model.UserSummary {
	return model.UserSummary{
		ID:             u.id,
		Username:       u.username,
		FollowersCount: f.followerCountLocked(u.id),
		FollowingCount: len(f.follows[u.id]),
	}
}

// paginate slices one page out of all. A page past the end is empty but
// still reports the real total.
func paginate[T any](all []T, page, limit int) model.Page[T] {
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := min(start+limit, len(all))
	items := make([]T, end-start)
	copy(items, all[start:end])
	return model.NewPage(items, page, limit, len(all))
}
