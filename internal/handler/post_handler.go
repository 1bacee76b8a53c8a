package handler

import (
	"context"
	"net/http"

	"postline-server/internal/domain"
	"postline-server/internal/middleware"
	"postline-server/pkg/response"

	"github.com/rs/zerolog"
)

type PostService interface {
	Feed(ctx context.Context, opts domain.ListOptions) ([]*domain.PostResponse, error)
	ChannelPosts(ctx context.Context, channelID, viewerID string, opts domain.ListOptions) ([]*domain.PostResponse, error)
	Get(ctx context.Context, postID, viewerID, viewerKey string) (*domain.PostResponse, error)
	Add(ctx context.Context, ownerID string, req *domain.CreatePostRequest, imagePath string) (*domain.PostResponse, error)
	Delete(ctx context.Context, principalID, postID string) error
	UpdateDetails(ctx context.Context, principalID, postID string, req *domain.UpdatePostRequest) (*domain.PostResponse, error)
	UpdateImage(ctx context.Context, principalID, postID, imagePath string) (*domain.PostResponse, error)
	ToggleVisibility(ctx context.Context, principalID, postID string) (*domain.PostResponse, error)
	ToggleLike(ctx context.Context, userID, postID string) (*domain.ToggleResponse, error)
	ToggleSave(ctx context.Context, userID, postID string) (*domain.ToggleResponse, error)
	Liked(ctx context.Context, userID string, opts domain.ListOptions) ([]*domain.PostResponse, error)
	Saved(ctx context.Context, userID string, opts domain.ListOptions) ([]*domain.PostResponse, error)
}

type PostHandler struct {
	service    PostService
	uploads    uploader
	trustProxy bool
}

func NewPostHandler(service PostService, uploadDir string, maxUpload int64, trustProxy bool, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		service:    service,
		uploads:    newUploader(uploadDir, maxUpload, logger),
		trustProxy: trustProxy,
	}
}

func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.Feed(r.Context(), listOptions(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, posts)
}

func (h *PostHandler) ChannelPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ChannelPosts(r.Context(), pathVar(r, "channelId"), middleware.GetUserID(r), listOptions(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, posts)
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), pathVar(r, "postId"), middleware.GetUserID(r), clientIP(r, h.trustProxy))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, post)
}

func (h *PostHandler) Add(w http.ResponseWriter, r *http.Request) {
	form, err := h.uploads.parse(w, r, "post_image")
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer form.cleanup()

	req := domain.CreatePostRequest{
		Title:    form.value("title"),
		Content:  form.value("content"),
		Category: form.value("category"),
	}

	post, err := h.service.Add(r.Context(), middleware.GetUserID(r), &req, form.file("post_image"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.GetUserID(r), pathVar(r, "postId")); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]string{
		"message": "Post deleted",
	})
}

func (h *PostHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	post, err := h.service.UpdateDetails(r.Context(), middleware.GetUserID(r), pathVar(r, "postId"), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, post)
}

func (h *PostHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	form, err := h.uploads.parse(w, r, "post_image")
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer form.cleanup()

	post, err := h.service.UpdateImage(r.Context(), middleware.GetUserID(r), pathVar(r, "postId"), form.file("post_image"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, post)
}

func (h *PostHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.ToggleVisibility(r.Context(), middleware.GetUserID(r), pathVar(r, "postId"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, post)
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.ToggleLike)
}

func (h *PostHandler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.ToggleSave)
}

func (h *PostHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, string, string) (*domain.ToggleResponse, error)) {
	result, err := fn(r.Context(), middleware.GetUserID(r), pathVar(r, "postId"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *PostHandler) Liked(w http.ResponseWriter, r *http.Request) {
	h.reacted(w, r, h.service.Liked)
}

func (h *PostHandler) Saved(w http.ResponseWriter, r *http.Request) {
	h.reacted(w, r, h.service.Saved)
}

func (h *PostHandler) reacted(w http.ResponseWriter, r *http.Request, fn func(context.Context, string, domain.ListOptions) ([]*domain.PostResponse, error)) {
	posts, err := fn(r.Context(), middleware.GetUserID(r), listOptions(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, posts)
}
