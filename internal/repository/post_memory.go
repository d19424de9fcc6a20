package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/postboard/postboard/internal/model"
)

// MemoryPostRepository is an ephemeral PostRepository. Its contents live as
// long as the instance; every mutation holds the write lock so insertion
// order and concurrent updates stay consistent.
type MemoryPostRepository struct {
	mu    sync.RWMutex
	order []string
	posts map[string]*model.Post
	now   func() time.Time
}

var _ PostRepository = (*MemoryPostRepository)(nil)

// NewMemoryPostRepository returns an empty in-memory post repository.
func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{
		posts: make(map[string]*model.Post),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of post.
func (r *MemoryPostRepository) Create(_ context.Context, post *model.Post) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := post.Clone()
	if stored.ID == "" {
		stored.ID = ulid.Make().String()
	} else if _, err := ulid.ParseStrict(stored.ID); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPostID, stored.ID)
	}
	if _, exists := r.posts[stored.ID]; exists {
		return nil, ErrPostExists
	}

	now := r.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.posts[stored.ID] = stored
	r.order = append(r.order, stored.ID)

	return stored.Clone(), nil
}

// FindByID returns a copy of the post with id.
func (r *MemoryPostRepository) FindByID(_ context.Context, id string) (*model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return post.Clone(), nil
}

// Find returns a window of matching posts in insertion order.
func (r *MemoryPostRepository) Find(_ context.Context, filter PostFilter, skip, limit int) ([]*model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Post, 0)
	matched := 0
	for _, id := range r.order {
		post := r.posts[id]
		if filter.Category != "" && post.Category != filter.Category {
			continue
		}
		matched++
		if matched <= skip {
			continue
		}
		result = append(result, post.Clone())
		if limit > 0 && len(result) == limit {
			break
		}
	}

	return result, nil
}

// Update merges patch into the stored post.
func (r *MemoryPostRepository) Update(_ context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}

	patch.Apply(post)
	post.UpdatedAt = r.now()

	return post.Clone(), nil
}

// Delete removes the post permanently.
func (r *MemoryPostRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(r.posts, id)

	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return nil
}

// Ping always succeeds.
func (r *MemoryPostRepository) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored posts.
func (r *MemoryPostRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
