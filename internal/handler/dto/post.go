package dto

import "github.com/postboard/postboard/internal/model"

// CreatePostRequest represents the request body for creating a post.
// Any author field in the body is ignored.
type CreatePostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content,omitempty"`
	Category string `json:"category,omitempty"`
}

// UpdatePostRequest represents the request body for updating a post.
// Absent fields are left unchanged; author cannot be patched.
type UpdatePostRequest struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Category *string `json:"category,omitempty"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// ToPostListResponse returns posts as a non-nil slice so an empty page
// encodes as [].
func ToPostListResponse(posts []*model.Post) []*model.Post {
	if posts == nil {
		return []*model.Post{}
	}
	return posts
}
