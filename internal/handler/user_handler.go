package handler

import (
	"context"
	"net/http"
	"strconv"

	"postline-server/internal/domain"
	"postline-server/internal/middleware"
	"postline-server/internal/tracker"
	"postline-server/pkg/response"

	"github.com/rs/zerolog"
)

type UserService interface {
	GetByID(ctx context.Context, id string) (*domain.PublicUser, error)
	UpdateAccount(ctx context.Context, userID string, req *domain.UpdateAccountRequest) (*domain.PublicUser, error)
	UpdateChannel(ctx context.Context, userID string, req *domain.UpdateChannelRequest) (*domain.PublicUser, error)
	UpdatePassword(ctx context.Context, userID string, req *domain.UpdatePasswordRequest) error
	UpdateAvatar(ctx context.Context, userID, avatarPath string) (*domain.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID, coverPath string) (*domain.PublicUser, error)
	ChannelProfile(ctx context.Context, handle, viewerID string) (*domain.ChannelProfile, error)
	History(ctx context.Context, userID string, limit int) ([]*domain.PostResponse, error)
}

type UserHandler struct {
	userService UserService
	uploads     uploader
}

func NewUserHandler(userService UserService, uploadDir string, maxUpload int64, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		uploads:     newUploader(uploadDir, maxUpload, logger),
	}
}

func (h *UserHandler) Current(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByID(r.Context(), middleware.GetUserID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, user)
}

func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	user, err := h.userService.UpdateAccount(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, user)
}

func (h *UserHandler) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	user, err := h.userService.UpdateChannel(r.Context(), middleware.GetUserID(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, user)
}

func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	if err := h.userService.UpdatePassword(r.Context(), middleware.GetUserID(r), &req); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]string{
		"message": "Password updated",
	})
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.userService.UpdateAvatar)
}

func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "cover_image", h.userService.UpdateCoverImage)
}

func (h *UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update func(context.Context, string, string) (*domain.PublicUser, error)) {
	form, err := h.uploads.parse(w, r, field)
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer form.cleanup()

	user, err := update(r.Context(), middleware.GetUserID(r), form.file(field))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, user)
}

// Channel is served to anonymous visitors too; the owner sees hidden posts
// counted.
func (h *UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.ChannelProfile(r.Context(), pathVar(r, "username"), middleware.GetUserID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, profile)
}

func (h *UserHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > tracker.HistoryLimit {
		limit = tracker.HistoryLimit
	}

	posts, err := h.userService.History(r.Context(), middleware.GetUserID(r), limit)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, posts)
}
