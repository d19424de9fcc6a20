package model

import (
	"regexp"
	"strings"
	"time"
)

// Post is a piece of content owned by exactly one author.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Author    string    `json:"author"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy of the post.
func (p *Post) Clone() *Post {
	c := *p
	return &c
}

// PostPatch holds the mutable fields of a post. Nil fields are left unchanged.
// Author is not patchable.
type PostPatch struct {
	Title    *string
	Content  *string
	Category *string
	Slug     *string
}

// IsEmpty reports whether the patch changes nothing.
func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Category == nil && p.Slug == nil
}

// Apply merges the patch into post.
func (p PostPatch) Apply(post *Post) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Category != nil {
		post.Category = *p.Category
	}
	if p.Slug != nil {
		post.Slug = *p.Slug
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lowercases title and replaces every run of whitespace with a hyphen.
func Slugify(title string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(title), "-")
}

// Page is a request-scoped pagination window.
type Page struct {
	Number int
	Limit  int
}

// Skip returns the number of items before the window.
func (p Page) Skip() int {
	return (p.Number - 1) * p.Limit
}
