package viewmodel

import (
	"context"
	"slices"
	"sync"

	"github.com/sakif/feedclient/internal/model"
)

// State is where a paginated list is in its fetch cycle.
//
//	Idle ──fetch──▶ Loading ──ok──▶ Idle
//	                        └─err─▶ Error ──Retry──▶ Loading
type State int

const (
	Idle State = iota
	Loading
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// FetchFunc loads one page of a collection.
type FetchFunc[T any] func(ctx context.Context, page, limit int) (model.Page[T], error)

// Merge combines a fetched page with the items already held.
//
// Page 1 replaces everything; any later page is appended after the current
// items in order. Items are never deduplicated, so a collection that
// shifts between fetches can show an item twice. hasMore is true while
// requested is below the server's page count.
func Merge[T any](current []T, requested int, result model.Page[T]) (items []T, hasMore bool) {
	if requested <= 1 {
		items = slices.Clone(result.Items)
	} else {
		items = append(slices.Clone(current), result.Items...)
	}
	if items == nil {
		items = []T{}
	}
	return items, requested < result.Pages
}

// Snapshot is a consistent copy of a Paginator's state.
type Snapshot[T any] struct {
	Items   []T
	Page    int // last page merged; 0 before the first load
	HasMore bool
	State   State
	Message string // user-visible error of the last failed fetch
}

// Loaded reports whether at least one page has been merged.
func (s Snapshot[T]) Loaded() bool { return s.Page > 0 }

// Empty reports whether the list has loaded and has nothing to show.
func (s Snapshot[T]) Empty() bool {
	return s.Loaded() && s.State != Loading && len(s.Items) == 0
}

// ShowLoadMore reports whether a "load more" control belongs on screen.
func (s Snapshot[T]) ShowLoadMore() bool {
	return s.Loaded() && s.HasMore && s.State == Idle
}

// Paginator holds one paginated list.
//
// At most one fetch is in flight. A trigger that arrives while one is
// running, after the last page, or after Close is dropped without any
// network call. A completion that arrives after Close is discarded.
type Paginator[T any] struct {
	fetch   FetchFunc[T]
	limit   int
	session *Session

	mu         sync.Mutex
	items      []T
	page       int
	hasMore    bool
	state      State
	message    string
	failedPage int
	closed     bool
}

// NewPaginator creates an empty list that fetches limit items per page.
// session, when non-nil, classifies fetch errors.
func NewPaginator[T any](fetch FetchFunc[T], limit int, session *Session) *Paginator[T] {
	if limit < 1 {
		limit = 10
	}
	return &Paginator[T]{fetch: fetch, limit: limit, session: session, items: []T{}, hasMore: true}
}

// Refresh fetches page 1 and replaces the list.
func (p *Paginator[T]) Refresh(ctx context.Context) error {
	return p.load(ctx, func() (int, bool) { return 1, true })
}

// LoadMore fetches the page after the last merged one. Before the first
// load it fetches page 1.
func (p *Paginator[T]) LoadMore(ctx context.Context) error {
	return p.load(ctx, func() (int, bool) { return p.page + 1, p.hasMore })
}

// Retry repeats the fetch that failed. It is a no-op unless the list is in
// the Error state.
func (p *Paginator[T]) Retry(ctx context.Context) error {
	return p.load(ctx, func() (int, bool) { return p.failedPage, p.state == Error })
}

// OnScroll loads the next page when the viewport is near the bottom.
func (p *Paginator[T]) OnScroll(ctx context.Context, scrollTop, viewportHeight, documentHeight float64) error {
	if !NearBottom(scrollTop, viewportHeight, documentHeight) {
		return nil
	}
	return p.LoadMore(ctx)
}

// load runs one guarded fetch. next is called under the lock and returns
// the page to fetch and whether to fetch at all.
func (p *Paginator[T]) load(ctx context.Context, next func() (int, bool)) error {
	p.mu.Lock()
	if p.closed || p.state == Loading {
		p.mu.Unlock()
		return nil
	}
	page, ok := next()
	if !ok || page < 1 {
		p.mu.Unlock()
		return nil
	}
	p.state = Loading
	p.mu.Unlock()

	result, err := p.fetch(ctx, page, p.limit)

	var message string
	if err != nil && p.session != nil {
		message = p.session.HandleError(ctx, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	if err != nil {
		p.state = Error
		p.failedPage = page
		p.message = message
		return err
	}
	p.items, p.hasMore = Merge(p.items, page, result)
	p.page = page
	p.state = Idle
	p.message = ""
	p.failedPage = 0
	return nil
}

// Close marks the list as unmounted. In-flight results are then dropped.
func (p *Paginator[T]) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (p *Paginator[T]) Snapshot() Snapshot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot[T]{
		Items:   slices.Clone(p.items),
		Page:    p.page,
		HasMore: p.hasMore,
		State:   p.state,
		Message: p.message,
	}
}

// Items returns a copy of the held items.
func (p *Paginator[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

// =========================================================================
// LOCAL MUTATIONS
// Applied after the server confirmed a change, instead of refetching.
// =========================================================================

// Prepend puts a newly created item at the top.
func (p *Paginator[T]) Prepend(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.items = append([]T{item}, p.items...)
}

// Update applies fn to every item match selects. It reports whether any
// item matched.
func (p *Paginator[T]) Update(match func(T) bool, fn func(*T)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	found := false
	for i := range p.items {
		if match(p.items[i]) {
			fn(&p.items[i])
			found = true
		}
	}
	return found
}

// Replace swaps every item match selects for item.
func (p *Paginator[T]) Replace(match func(T) bool, item T) bool {
	return p.Update(match, func(t *T) { *t = item })
}

// Remove drops every item match selects and reports how many went.
func (p *Paginator[T]) Remove(match func(T) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	before := len(p.items)
	p.items = slices.DeleteFunc(p.items, match)
	return before - len(p.items)
}

// Find returns a copy of the first item match selects.
func (p *Paginator[T]) Find(match func(T) bool) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.IndexFunc(p.items, match)
	if i < 0 {
		var zero T
		return zero, false
	}
	return p.items[i], true
}
