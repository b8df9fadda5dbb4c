package mockapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/feedclient/internal/apperror"
	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/model"
)

// Version is reported by GET /.
const Version = "1.0.0"

const defaultPageLimit = 10

// Handler serves the feed endpoints on top of a Feed.
type Handler struct {
	feed   *Feed
	tokens *auth.TokenService // nil in username mode
	mode   auth.Mode
	logger *slog.Logger
}

// NewHandler creates a Handler. tokens is required in bearer mode only.
func NewHandler(feed *Feed, tokens *auth.TokenService, mode auth.Mode, logger *slog.Logger) *Handler {
	return &Handler{feed: feed, tokens: tokens, mode: mode, logger: logger}
}

// =========================================================================
// REQUEST HELPERS
// =========================================================================

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a positive integer")
	}
	return id, nil
}

// pageParams reads ?page&limit. page defaults to 1, limit to 10.
func pageParams(r *http.Request) (page, limit int, err error) {
	page, limit = 1, defaultPageLimit
	if s := r.URL.Query().Get("page"); s != "" {
		if page, err = strconv.Atoi(s); err != nil || page < 1 {
			return 0, 0, apperror.ValidationFailed("page", "page must be at least 1")
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 1 || limit > MaxPageLimit {
			return 0, 0, apperror.ValidationFailed("limit", "limit must be between 1 and 50")
		}
	}
	return page, limit, nil
}

// viewer is the caller's id on OptionalAuth routes, 0 when anonymous.
func viewer(r *http.Request) int64 {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p.UserID
}

// caller is the resolved principal on RequireAuth routes.
func caller(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// =========================================================================
// SYSTEM AND AUTH
// =========================================================================

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Health{Status: "ok", Version: Version})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleSignup registers a password account.
//
// HTTP: POST /auth/signup {"username": "...", "password": "..."}
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.feed.Signup(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Message{Message: "User created successfully"})
}

// HandleTokenLogin issues a token pair.
//
// HTTP: POST /auth/login {"username": "...", "password": "..."}
func (h *Handler) HandleTokenLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, name, err := h.feed.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	pair, err := h.tokens.Issue(id, name)
	if err != nil {
		h.logger.Error("issuing tokens", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// HandleNameLogin signs in by name alone, creating the user if needed.
//
// HTTP: POST /login {"username": "..."}
func (h *Handler) HandleNameLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.feed.LoginByName(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// =========================================================================
// POSTS
// =========================================================================

type contentRequest struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

// checkAuthorName enforces the username-mode rule that create bodies name
// their author, and that the name is the caller's.
func (h *Handler) checkAuthorName(r *http.Request, name string) error {
	if h.mode != auth.ModeUsername {
		return nil
	}
	name = model.DecodeUsername(strings.TrimSpace(name))
	if name == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if name != caller(r).Username {
		return apperror.Forbidden("username does not match the signed-in user")
	}
	return nil
}

func (h *Handler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.feed.ListPosts(r.Context(), viewer(r), page, limit))
}

func (h *Handler) HandleListUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.feed.ListUserPosts(r.Context(), userID, viewer(r), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.feed.GetPost(r.Context(), id, viewer(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.checkAuthorName(r, req.Username); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.feed.CreatePost(r.Context(), caller(r).UserID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req contentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.feed.UpdatePost(r.Context(), id, caller(r).UserID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.feed.DeletePost(r.Context(), id, caller(r).UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Message{Message: "Post deleted"})
}

func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	h.handleLike(w, r, true)
}

func (h *Handler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	h.handleLike(w, r, false)
}

func (h *Handler) handleLike(w http.ResponseWriter, r *http.Request, like bool) {
	id, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	op := h.feed.Unlike
	if like {
		op = h.feed.Like
	}
	res, err := op(r.Context(), id, caller(r).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =========================================================================
// COMMENTS
// =========================================================================

func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.feed.ListComments(r.Context(), postID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req contentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.checkAuthorName(r, req.Username); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.feed.CreateComment(r.Context(), postID, caller(r).UserID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req contentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.feed.UpdateComment(r.Context(), id, caller(r).UserID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.feed.DeleteComment(r.Context(), id, caller(r).UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Message{Message: "Comment deleted"})
}

// =========================================================================
// SEARCH, USERS, FOLLOWS
// =========================================================================

// HandleSearch: GET /search?username=...&page&limit
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.feed.SearchUsers(r.Context(), r.URL.Query().Get("username"), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeProfile(w, r, id, viewer(r))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	me := caller(r).UserID
	h.writeProfile(w, r, me, me)
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, id, viewerID int64) {
	prof, err := h.feed.Profile(r.Context(), id, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (h *Handler) HandleMyPosts(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	me := caller(r).UserID
	out, err := h.feed.ListUserPosts(r.Context(), me, me, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleFollowers(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.feed.Followers(r.Context(), caller(r).UserID, page, limit))
}

func (h *Handler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.feed.Following(r.Context(), caller(r).UserID, page, limit))
}

type followRequest struct {
	FollowingID int64 `json:"following_id"`
}

func (h *Handler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	h.handleFollow(w, r, true)
}

func (h *Handler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	h.handleFollow(w, r, false)
}

func (h *Handler) handleFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	var req followRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.FollowingID <= 0 {
		writeError(w, apperror.ValidationFailed("following_id", "following_id is required"))
		return
	}
	op := h.feed.Unfollow
	if follow {
		op = h.feed.Follow
	}
	res, err := op(r.Context(), caller(r).UserID, req.FollowingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
