package mockapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/middleware"
)

// Config holds stub server configuration.
type Config struct {
	Addr      string
	Mode      auth.Mode
	JWTSecret string // bearer mode only

	// PasswordCost overrides the bcrypt cost; 0 means the default.
	// Tests set bcrypt.MinCost.
	PasswordCost int
}

// Server is the stub API: a chi router over a Feed.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	feed   *Feed
	tokens *auth.TokenService
}

// New assembles the dependency chain: PasswordService → Feed → Handler →
// routes. Bearer mode also needs a TokenService, so a missing or short
// JWTSecret is an error there.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}

	passwords := auth.NewPasswordService()
	if cfg.PasswordCost > 0 {
		passwords = auth.NewPasswordServiceForTest(cfg.PasswordCost)
	}
	s.feed = NewFeed(passwords, logger)

	switch cfg.Mode {
	case auth.ModeBearer:
		tokens, err := auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("mockapi: %w", err)
		}
		s.tokens = tokens
	case auth.ModeUsername:
	default:
		return nil, fmt.Errorf("mockapi: unknown auth mode %q", cfg.Mode)
	}

	s.setupRoutes()
	return s, nil
}

// Handler returns the root handler, for httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.router }

// Feed exposes the state behind the server, for seeding in tests.
func (s *Server) Feed() *Feed { return s.feed }

// extractor resolves the caller for the active mode and checks the user
// still exists; a token or header naming an unknown user is a 401.
func (s *Server) extractor() auth.Extractor {
	read := auth.HeaderExtractor()
	if s.config.Mode == auth.ModeBearer {
		read = auth.BearerExtractor(s.tokens)
	}
	return func(r *http.Request) (auth.Principal, error) {
		p, err := read(r)
		if err != nil {
			return auth.Principal{}, err
		}
		return s.feed.Resolve(p)
	}
}

// setupRoutes wires the routes.
//
// ROUTES:
//
//	GET    /                          health
//	POST   /auth/signup, /auth/login  bearer mode
//	POST   /login                     username mode
//	GET    /posts, /posts/{id}, /posts/user/{id}, /posts/{id}/comments, /search, /users/{id}
//	       anonymous allowed; the caller, if known, gets is_liked / is_following
//	everything else                   requires a caller (401 otherwise)
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.StripSlashes)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	h := NewHandler(s.feed, s.tokens, s.config.Mode, s.logger)
	extract := s.extractor()

	s.router.Get("/", h.HandleHealth)

	if s.config.Mode == auth.ModeBearer {
		s.router.Post("/auth/signup", h.HandleSignup)
		s.router.Post("/auth/login", h.HandleTokenLogin)
	} else {
		s.router.Post("/login", h.HandleNameLogin)
	}

	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(extract))
		r.Get("/posts", h.HandleListPosts)
		r.Get("/posts/{postID}", h.HandleGetPost)
		r.Get("/posts/user/{userID}", h.HandleListUserPosts)
		r.Get("/posts/{postID}/comments", h.HandleListComments)
		r.Get("/search", h.HandleSearch)
		r.Get("/users/{userID}", h.HandleProfile)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(extract))
		r.Post("/posts", h.HandleCreatePost)
		r.Put("/posts/{postID}", h.HandleUpdatePost)
		r.Delete("/posts/{postID}", h.HandleDeletePost)
		r.Post("/posts/{postID}/like", h.HandleLike)
		r.Delete("/posts/{postID}/like", h.HandleUnlike)
		r.Post("/posts/{postID}/comments", h.HandleCreateComment)
		r.Put("/comments/{commentID}", h.HandleUpdateComment)
		r.Delete("/comments/{commentID}", h.HandleDeleteComment)
		r.Get("/users/me", h.HandleMe)
		r.Get("/profile/me/posts", h.HandleMyPosts)
		r.Get("/profile/me/followers", h.HandleFollowers)
		r.Get("/profile/me/following", h.HandleFollowing)
		r.Post("/follows", h.HandleFollow)
		r.Delete("/follows", h.HandleUnfollow)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully, giving
// in-flight requests up to 10 seconds.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mock API starting",
			slog.String("addr", s.config.Addr),
			slog.String("mode", string(s.config.Mode)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mockapi: server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("mockapi: graceful shutdown failed: %w", err)
		}
		s.logger.Info("mock API stopped")
	}
	return nil
}
