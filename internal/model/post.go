package model

import (
	"encoding/json"
	"time"
)

// Post is a single feed entry as returned by the posts endpoints.
//
// Identity is ID. LikesCount and CommentsCount are never negative on the
// client: every local adjustment goes through Floor.
type Post struct {
	ID            int64      `json:"id"`
	Content       string     `json:"content"`
	Author        Author     `json:"author"`
	LikesCount    int        `json:"likes_count"`
	IsLiked       bool       `json:"is_liked"`
	CommentsCount int        `json:"comments_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// Comment belongs to exactly one post.
type Comment struct {
	ID        int64      `json:"id"`
	PostID    int64      `json:"post_id,omitempty"`
	Content   string     `json:"content"`
	Author    Author     `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// LikeResult is the server's confirmation of a like or unlike.
//
// IsLiked is a pointer because older deployments answer with the count
// only; the caller then falls back to the state it asked for.
type LikeResult struct {
	PostID     int64 `json:"post_id,omitempty"`
	IsLiked    *bool `json:"is_liked,omitempty"`
	LikesCount int   `json:"likes_count"`
}

// Page is one page of a paginated collection.
//
// Wire shape: {"items": [...], "total": n, "page": p, "size": s, "pages": t}.
// Pages is the total page count. After decoding, Items is never nil and
// 1 <= Page, 1 <= Pages hold, so an empty collection reads as "page 1 of 1".
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// pageJSON has Page's fields but none of its methods, so decoding into it
// does not recurse into UnmarshalJSON.
type pageJSON[T any] Page[T]

// UnmarshalJSON applies the defaults described on Page.
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	var r pageJSON[T]
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*p = Page[T](r)
	p.normalize()
	return nil
}

func (p *Page[T]) normalize() {
	if p.Items == nil {
		p.Items = []T{}
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Pages < 1 {
		p.Pages = 1
	}
}

// NewPage builds a normalized page. Used by the stub API and by tests.
func NewPage[T any](items []T, page, size, total int) Page[T] {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	p := Page[T]{Items: items, Total: total, Page: page, Size: size, Pages: pages}
	p.normalize()
	return p
}

// Health is the response of GET /.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Floor clamps a counter at zero.
func Floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Message is the {"message": "..."} acknowledgement returned by signup and
// delete endpoints.
type Message struct {
	Message string `json:"message"`
}
