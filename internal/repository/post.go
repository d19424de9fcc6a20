package repository

import (
	"context"
	"errors"

	"github.com/postboard/postboard/internal/model"
)

// Common errors for post repository operations.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrPostExists   = errors.New("post id already exists")
	// ErrInvalidPostID rejects a caller-supplied id that is not in the
	// backend's native format (ULID in memory, ObjectID hex in Mongo).
	ErrInvalidPostID = errors.New("invalid post id")
)

// PostFilter narrows Find results. An empty Category matches every post.
type PostFilter struct {
	Category string
}

// PostRepository is the store of record for posts. Both implementations
// return posts in insertion order and report unknown or malformed ids as
// ErrPostNotFound.
type PostRepository interface {
	// Create assigns an id when post.ID is empty, persists the post and
	// returns the stored form. A non-empty id in another format fails with
	// ErrInvalidPostID.
	Create(ctx context.Context, post *model.Post) (*model.Post, error)
	FindByID(ctx context.Context, id string) (*model.Post, error)
	// Find returns up to limit posts matching filter after skipping skip of
	// them. A limit of 0 means no limit; a skip past the end yields an empty
	// slice.
	Find(ctx context.Context, filter PostFilter, skip, limit int) ([]*model.Post, error)
	// Update merges patch into the stored post and returns the result.
	Update(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
