package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/postboard/postboard/internal/apperr"
	"github.com/postboard/postboard/internal/cache"
	"github.com/postboard/postboard/internal/metrics"
	"github.com/postboard/postboard/internal/model"
	"github.com/postboard/postboard/internal/repository"
)

// Pagination bounds for ListPosts.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

const msgTitleRequired = "Title is required"

// PostCache is a read-through cache for single posts. GetPost reports a miss
// with cache.ErrCacheMiss.
type PostCache interface {
	GetPost(ctx context.Context, id string) (*model.Post, error)
	SetPost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id string) error
}

// PostService handles post business logic.
type PostService struct {
	repo    repository.PostRepository
	cache   PostCache
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPostService creates a new PostService. postCache may be nil.
func NewPostService(repo repository.PostRepository, postCache PostCache, logger *slog.Logger, recorder metrics.Recorder) *PostService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		repo:    repo,
		cache:   postCache,
		logger:  logger,
		metrics: recorder,
	}
}

// CreatePostInput defines input for creating a post.
type CreatePostInput struct {
	Title    string
	Content  string
	Category string
}

// ListPostsInput defines the filter and window for listing posts. Nil Page
// and Limit take the defaults.
type ListPostsInput struct {
	Category string
	Page     *int
	Limit    *int
}

// UpdatePostInput defines the fields a caller may change. Nil fields are left
// as they are.
type UpdatePostInput struct {
	Title    *string
	Content  *string
	Category *string
}

// CreatePost stores a new post authored by callerID.
func (s *PostService) CreatePost(ctx context.Context, callerID string, input CreatePostInput) (*model.Post, error) {
	if isBlank(input.Title) {
		return nil, apperr.Validation(msgTitleRequired)
	}

	post := &model.Post{
		Title:    input.Title,
		Content:  input.Content,
		Category: input.Category,
		Author:   callerID,
		Slug:     model.Slugify(input.Title),
	}

	created, err := s.repo.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.metrics.IncPostCreated()
	return created, nil
}

// ListPosts returns one page of posts in insertion order.
func (s *PostService) ListPosts(ctx context.Context, input ListPostsInput) ([]*model.Post, error) {
	page, err := resolvePage(input)
	if err != nil {
		return nil, err
	}

	posts, err := s.repo.Find(ctx, repository.PostFilter{Category: input.Category}, page.Skip(), page.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// GetPost returns the post with id, serving from cache when possible.
func (s *PostService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	if s.cache != nil {
		cached, err := s.cache.GetPost(ctx, id)
		if err == nil {
			s.metrics.IncPostCacheHit()
			return cached, nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncPostCacheMiss()
		} else {
			s.logger.Warn("post cache read failed", slog.String("post_id", id), slog.String("error", err.Error()))
		}
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, postError("get", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPost(ctx, post); err != nil {
			s.logger.Warn("post cache write failed", slog.String("post_id", id), slog.String("error", err.Error()))
		}
	}
	return post, nil
}

// UpdatePost applies input to the post with id on behalf of callerID.
func (s *PostService) UpdatePost(ctx context.Context, callerID, id string, input UpdatePostInput) (*model.Post, error) {
	post, err := s.authorize(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil && isBlank(*input.Title) {
		return nil, apperr.Validation(msgTitleRequired)
	}

	patch := model.PostPatch{
		Title:    input.Title,
		Content:  input.Content,
		Category: input.Category,
	}
	if input.Title != nil {
		slug := model.Slugify(*input.Title)
		patch.Slug = &slug
	}
	if patch.IsEmpty() {
		return post, nil
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, postError("update", err)
	}
	s.invalidate(ctx, id)

	s.metrics.IncPostUpdated()
	return updated, nil
}

// DeletePost permanently removes the post with id on behalf of callerID.
func (s *PostService) DeletePost(ctx context.Context, callerID, id string) error {
	if _, err := s.authorize(ctx, callerID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return postError("delete", err)
	}
	s.invalidate(ctx, id)

	s.metrics.IncPostDeleted()
	return nil
}

// authorize loads the post and applies the ownership rule shared by every
// mutation.
func (s *PostService) authorize(ctx context.Context, callerID, id string) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, postError("get", err)
	}
	if !canModify(callerID, post) {
		s.metrics.IncOwnershipDenied()
		return nil, apperr.ErrForbidden
	}
	return post, nil
}

func (s *PostService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePost(ctx, id); err != nil {
		s.logger.Warn("post cache invalidation failed", slog.String("post_id", id), slog.String("error", err.Error()))
	}
}

// canModify reports whether callerID may update or delete post.
func canModify(callerID string, post *model.Post) bool {
	return callerID != "" && post.Author == callerID
}

func resolvePage(input ListPostsInput) (model.Page, error) {
	page := model.Page{Number: DefaultPage, Limit: DefaultLimit}
	if input.Page != nil {
		if *input.Page < 1 {
			return page, apperr.Validation("page must be a positive integer")
		}
		page.Number = *input.Page
	}
	if input.Limit != nil {
		if *input.Limit < 1 {
			return page, apperr.Validation("limit must be a positive integer")
		}
		page.Limit = min(*input.Limit, MaxLimit)
	}
	if page.Number-1 > math.MaxInt32/page.Limit {
		return page, apperr.Validation("page out of range")
	}
	return page, nil
}

func postError(op string, err error) error {
	if errors.Is(err, repository.ErrPostNotFound) {
		return apperr.ErrNotFound
	}
	return fmt.Errorf("failed to %s post: %w", op, err)
}
