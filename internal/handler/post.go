package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/postboard/postboard/internal/apperr"
	"github.com/postboard/postboard/internal/auth"
	"github.com/postboard/postboard/internal/handler/dto"
	"github.com/postboard/postboard/internal/service"
)

// PostHandler handles HTTP requests for post operations.
type PostHandler struct {
	svc    *service.PostService
	logger *slog.Logger
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(svc *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /posts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	callerID := auth.MustCallerFromContext(r.Context())
	post, err := h.svc.CreatePost(r.Context(), callerID, service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	h.logger.Info("post_created",
		"post_id", post.ID,
		"author", post.Author,
		"category", post.Category,
	)

	writeJSON(w, http.StatusCreated, post)
}

// List handles GET /posts.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := intQueryParam(query, "page")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}
	limit, err := intQueryParam(query, "limit")
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	posts, err := h.svc.ListPosts(r.Context(), service.ListPostsInput{
		Category: query.Get("category"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPostListResponse(posts))
}

// Get handles GET /posts/{id}.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// Update handles PUT /posts/{id}.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.UpdatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	callerID := auth.MustCallerFromContext(r.Context())
	post, err := h.svc.UpdatePost(r.Context(), callerID, id, service.UpdatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	h.logger.Info("post_updated", "post_id", post.ID)

	writeJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id}.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	callerID := auth.MustCallerFromContext(r.Context())
	if err := h.svc.DeletePost(r.Context(), callerID, id); err != nil {
		apperr.Respond(w, r, h.logger, err)
		return
	}

	h.logger.Info("post_deleted", "post_id", id)

	writeJSON(w, http.StatusOK, dto.DeleteResponse{Success: true})
}

// intQueryParam parses an optional integer query parameter. Range checks
// belong to the service.
func intQueryParam(query url.Values, name string) (*int, error) {
	raw := query.Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Validation(name + " must be an integer")
	}
	return &n, nil
}
