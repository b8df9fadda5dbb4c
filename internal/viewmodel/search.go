package viewmodel

import (
	"context"
	"strings"

	"github.com/sakif/feedclient/internal/model"
)

// SearchView is the user search screen. Each new query starts a fresh
// result list; results of an abandoned query are discarded.
type SearchView struct {
	screen
	limit int

	// guarded by screen.mu
	query   string
	results *Paginator[model.UserSummary]
}

func NewSearchView(s *Session, limit int) *SearchView {
	return &SearchView{screen: screen{session: s}, limit: limit}
}

// Search runs a new query. A blank query clears the results without a
// network call.
func (v *SearchView) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	if v.results != nil {
		v.results.Close()
	}
	v.query = query
	v.results = nil
	if query == "" {
		v.mu.Unlock()
		return nil
	}
	api := v.session.api
	results := NewPaginator[model.UserSummary](func(ctx context.Context, page, n int) (model.Page[model.UserSummary], error) {
		return api.Search.Users(ctx, query, page, n)
	}, v.limit, v.session)
	v.results = results
	v.mu.Unlock()

	return results.Refresh(ctx)
}

// Query returns the active query.
func (v *SearchView) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

func (v *SearchView) current() *Paginator[model.UserSummary] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.results
}

// LoadMore fetches the next page of the active query.
func (v *SearchView) LoadMore(ctx context.Context) error {
	if r := v.current(); r != nil {
		return r.LoadMore(ctx)
	}
	return nil
}

func (v *SearchView) Retry(ctx context.Context) error {
	if r := v.current(); r != nil {
		return r.Retry(ctx)
	}
	return nil
}

func (v *SearchView) OnScroll(ctx context.Context, scrollTop, viewportHeight, documentHeight float64) error {
	if r := v.current(); r != nil {
		return r.OnScroll(ctx, scrollTop, viewportHeight, documentHeight)
	}
	return nil
}

// Snapshot returns the results to render; the zero Snapshot before any
// query.
func (v *SearchView) Snapshot() Snapshot[model.UserSummary] {
	if r := v.current(); r != nil {
		return r.Snapshot()
	}
	return Snapshot[model.UserSummary]{Items: []model.UserSummary{}}
}

func (v *SearchView) Close() {
	v.mu.Lock()
	v.closed = true
	r := v.results
	v.mu.Unlock()
	if r != nil {
		r.Close()
	}
}
