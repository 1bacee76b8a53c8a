package handler

import (
	"context"
	"net/http"

	"postline-server/internal/domain"
	"postline-server/internal/middleware"
	"postline-server/internal/service"
	"postline-server/pkg/response"

	"github.com/rs/zerolog"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest, uploads service.RegisterUploads) (*domain.PublicUser, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	DeleteAccount(ctx context.Context, userID string, req *domain.DeleteAccountRequest) error
}

type AuthHandler struct {
	authService AuthService
	cookies     *middleware.CookieJar
	uploads     uploader
}

func NewAuthHandler(authService AuthService, cookies *middleware.CookieJar, uploadDir string, maxUpload int64, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		uploads:     newUploader(uploadDir, maxUpload, logger),
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form, err := h.uploads.parse(w, r, "avatar", "cover_image")
	if err != nil {
		response.FromError(w, err)
		return
	}
	defer form.cleanup()

	req := domain.RegisterRequest{
		Username:  form.value("username"),
		FirstName: form.value("first_name"),
		LastName:  form.value("last_name"),
		Email:     form.value("email"),
		Password:  form.value("password"),
	}

	user, err := h.authService.Register(r.Context(), &req, service.RegisterUploads{
		AvatarPath:     form.file("avatar"),
		CoverImagePath: form.file("cover_image"),
	})
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	loginResp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.cookies.SetTokens(w, &domain.TokenPair{
		AccessToken:  loginResp.AccessToken,
		RefreshToken: loginResp.RefreshToken,
		ExpiresIn:    loginResp.ExpiresIn,
	})
	response.Success(w, loginResp)
}

// Refresh takes the refresh token from its cookie, or from the JSON body
// for clients that do not keep cookies.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := middleware.RefreshToken(r)
	if token == "" {
		var req domain.RefreshTokenRequest
		if err := decodeOptionalJSON(r, &req); err != nil {
			response.FromError(w, err)
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		response.FromError(w, err)
		return
	}

	h.cookies.SetTokens(w, pair)
	response.Success(w, pair)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.GetUserID(r)); err != nil {
		response.FromError(w, err)
		return
	}

	h.cookies.Clear(w)
	response.Success(w, map[string]string{
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	if err := h.authService.DeleteAccount(r.Context(), middleware.GetUserID(r), &req); err != nil {
		response.FromError(w, err)
		return
	}

	h.cookies.Clear(w)
	response.Success(w, map[string]string{
		"message": "Account deleted",
	})
}
