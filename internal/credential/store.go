// Package credential holds the signed-in identity.
//
// The identity lives in two places: durably in a storage.Storage under a
// well-known key, and in memory for the dispatcher to read on every request.
// Load seeds memory from storage once at start; Save and Clear write both.
//
// STORAGE KEYS:
//
//	"tokens" → {"access_token": "...", "refresh_token": "...", "token_type": "bearer"}   (bearer mode)
//	"user"   → {"userId": 42, "username": "kim"}                                        (username mode)
//
// A stored identity never expires here. It is trusted until the server
// answers 401, and then the session layer calls Clear.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/model"
	"github.com/sakif/feedclient/internal/storage"
)

const (
	KeyTokens = "tokens"
	KeyUser   = "user"
)

// ErrInvalidIdentity is returned by Save for an identity that cannot be
// used in the store's mode.
var ErrInvalidIdentity = errors.New("credential: identity unusable in this mode")

var _ auth.IdentitySource = (*Store)(nil)

// Store is the process-wide credential holder. Writes are last-wins.
type Store struct {
	backend storage.Storage
	mode    auth.Mode
	logger  *slog.Logger

	mu      sync.RWMutex
	current *model.Identity
}

// New creates a Store over backend. Nothing is read until Load.
func New(backend storage.Storage, mode auth.Mode, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, mode: mode, logger: logger}
}

// Mode returns the auth mode the store persists for.
func (s *Store) Mode() auth.Mode { return s.mode }

// Load reads the persisted identity and makes it current.
//
// It never fails: an absent record, an unreadable backend and a corrupt
// record all yield nil. A corrupt record is also deleted so the next start
// does not trip over it again.
func (s *Store) Load(ctx context.Context) *model.Identity {
	var id *model.Identity
	switch s.mode {
	case auth.ModeBearer:
		id = s.loadTokens(ctx)
	case auth.ModeUsername:
		id = s.loadUser(ctx)
	default:
		s.logger.Warn("credential: unknown auth mode", slog.String("mode", string(s.mode)))
	}

	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
	return clone(id)
}

func (s *Store) loadTokens(ctx context.Context) *model.Identity {
	raw, ok := s.read(ctx, KeyTokens)
	if !ok {
		return nil
	}

	var pair model.TokenPair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil || pair.AccessToken == "" {
		s.purge(ctx, KeyTokens, err)
		return nil
	}

	id := &model.Identity{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	s.enrich(id)
	return id
}

func (s *Store) loadUser(ctx context.Context) *model.Identity {
	raw, ok := s.read(ctx, KeyUser)
	if !ok {
		return nil
	}

	var rec model.UserRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Username == "" {
		s.purge(ctx, KeyUser, err)
		return nil
	}
	return &model.Identity{UserID: rec.UserID, Username: rec.Username}
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("credential: reading stored identity",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return "", false
	}
	return raw, true
}

func (s *Store) purge(ctx context.Context, key string, cause error) {
	attrs := []any{slog.String("key", key)}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	s.logger.Warn("credential: discarding corrupt stored identity", attrs...)

	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Error("credential: purging corrupt identity",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// enrich fills UserID and Username from the access token's claims where
// they are missing. A token without readable claims is still used as is.
func (s *Store) enrich(id *model.Identity) {
	if id.UserID != 0 && id.Username != "" {
		return
	}
	userID, username, err := auth.ClaimsFromToken(id.AccessToken)
	if err != nil {
		s.logger.Debug("credential: access token claims unreadable", slog.String("error", err.Error()))
		return
	}
	if id.UserID == 0 {
		id.UserID = userID
	}
	if id.Username == "" {
		id.Username = username
	}
}

// Save persists id, replacing whatever was stored, and makes it current.
func (s *Store) Save(ctx context.Context, id *model.Identity) error {
	if id == nil {
		return fmt.Errorf("%w: nil identity", ErrInvalidIdentity)
	}
	next := clone(id)

	var key string
	var record any
	switch s.mode {
	case auth.ModeBearer:
		if !next.HasToken() {
			return fmt.Errorf("%w: bearer mode needs an access token", ErrInvalidIdentity)
		}
		s.enrich(next)
		key = KeyTokens
		record = model.TokenPair{AccessToken: next.AccessToken, RefreshToken: next.RefreshToken, TokenType: "bearer"}
	case auth.ModeUsername:
		if next.Username == "" {
			return fmt.Errorf("%w: username mode needs a username", ErrInvalidIdentity)
		}
		key = KeyUser
		record = model.UserRecord{UserID: next.UserID, Username: next.Username}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidIdentity, s.mode)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("credential: encoding identity: %w", err)
	}
	if err := s.backend.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("credential: saving identity: %w", err)
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

// Clear removes the persisted identity under both keys and forgets the
// current one. The in-memory identity is dropped even if the backend fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	err := errors.Join(
		s.backend.Delete(ctx, KeyTokens),
		s.backend.Delete(ctx, KeyUser),
	)
	if err != nil {
		return fmt.Errorf("credential: clearing identity: %w", err)
	}
	return nil
}

// Current returns a copy of the identity as of the last Load, Save or Clear,
// or nil when signed out.
func (s *Store) Current() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current)
}

func clone(id *model.Identity) *model.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
