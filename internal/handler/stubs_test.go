package handler

import (
	"context"
	"os"

	"postline-server/internal/domain"
	"postline-server/internal/service"
	"postline-server/pkg/jwt"
)

// staticVerifier accepts the tokens it knows and maps them to user ids.
type staticVerifier map[string]string

func (v staticVerifier) VerifyAccess(token string) (*jwt.Claims, error) {
	id, ok := v[token]
	if !ok {
		return nil, domain.NewError(domain.KindInvalidCredential, domain.CodeInvalidAccessToken, nil)
	}
	return &jwt.Claims{UserID: id}, nil
}

type staticUsers map[string]*domain.User

func (u staticUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, domain.ErrNotFound
}

type stubAuth struct {
	calls int

	registerReq     *domain.RegisterRequest
	registerUploads service.RegisterUploads
	spooledContent  map[string]string

	loginResp *domain.LoginResponse
	pair      *domain.TokenPair
	refreshed string

	userID string
	err    error
}

func (s *stubAuth) Register(ctx context.Context, req *domain.RegisterRequest, uploads service.RegisterUploads) (*domain.PublicUser, error) {
	s.calls++
	s.registerReq = req
	s.registerUploads = uploads
	s.spooledContent = map[string]string{}
	for field, path := range map[string]string{"avatar": uploads.AvatarPath, "cover_image": uploads.CoverImagePath} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err == nil {
			s.spooledContent[field] = string(data)
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &domain.PublicUser{ID: "new-user", Username: req.Username}, nil
}

func (s *stubAuth) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.loginResp, nil
}

func (s *stubAuth) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	s.calls++
	s.refreshed = refreshToken
	if refreshToken == "" {
		return nil, domain.NewError(domain.KindAuthRequired, domain.CodeRefreshTokenMissing, nil)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.pair, nil
}

func (s *stubAuth) Logout(ctx context.Context, userID string) error {
	s.calls++
	s.userID = userID
	return s.err
}

func (s *stubAuth) DeleteAccount(ctx context.Context, userID string, req *domain.DeleteAccountRequest) error {
	s.calls++
	s.userID = userID
	return s.err
}

type stubUsers struct {
	calls    int
	userID   string
	viewerID string
	handle   string
	limit    int
	path     string
	err      error
}

func (s *stubUsers) record(userID string) (*domain.PublicUser, error) {
	s.calls++
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &domain.PublicUser{ID: userID}, nil
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (*domain.PublicUser, error) {
	return s.record(id)
}

func (s *stubUsers) UpdateAccount(ctx context.Context, userID string, req *domain.UpdateAccountRequest) (*domain.PublicUser, error) {
	return s.record(userID)
}

func (s *stubUsers) UpdateChannel(ctx context.Context, userID string, req *domain.UpdateChannelRequest) (*domain.PublicUser, error) {
	return s.record(userID)
}

func (s *stubUsers) UpdatePassword(ctx context.Context, userID string, req *domain.UpdatePasswordRequest) error {
	_, err := s.record(userID)
	return err
}

func (s *stubUsers) UpdateAvatar(ctx context.Context, userID, avatarPath string) (*domain.PublicUser, error) {
	s.path = avatarPath
	return s.record(userID)
}

func (s *stubUsers) UpdateCoverImage(ctx context.Context, userID, coverPath string) (*domain.PublicUser, error) {
	s.path = coverPath
	return s.record(userID)
}

func (s *stubUsers) ChannelProfile(ctx context.Context, handle, viewerID string) (*domain.ChannelProfile, error) {
	s.calls++
	s.handle = handle
	s.viewerID = viewerID
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ChannelProfile{Channel: &domain.PublicUser{Username: handle}, IsOwner: viewerID != ""}, nil
}

func (s *stubUsers) History(ctx context.Context, userID string, limit int) ([]*domain.PostResponse, error) {
	s.calls++
	s.userID = userID
	s.limit = limit
	return []*domain.PostResponse{}, s.err
}

type stubPosts struct {
	calls     int
	userID    string
	postID    string
	viewerKey string
	opts      domain.ListOptions
	req       interface{}
	imagePath string
	err       error
}

func (s *stubPosts) list(userID string, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	s.calls++
	s.userID = userID
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	return []*domain.PostResponse{}, nil
}

func (s *stubPosts) one(userID, postID string) (*domain.PostResponse, error) {
	s.calls++
	s.userID = userID
	s.postID = postID
	if s.err != nil {
		return nil, s.err
	}
	return &domain.PostResponse{ID: postID, OwnerID: userID}, nil
}

func (s *stubPosts) Feed(ctx context.Context, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	return s.list("", opts)
}

func (s *stubPosts) ChannelPosts(ctx context.Context, channelID, viewerID string, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	s.postID = channelID
	return s.list(viewerID, opts)
}

func (s *stubPosts) Get(ctx context.Context, postID, viewerID, viewerKey string) (*domain.PostResponse, error) {
	s.viewerKey = viewerKey
	return s.one(viewerID, postID)
}

func (s *stubPosts) Add(ctx context.Context, ownerID string, req *domain.CreatePostRequest, imagePath string) (*domain.PostResponse, error) {
	s.req = req
	s.imagePath = imagePath
	return s.one(ownerID, "new-post")
}

func (s *stubPosts) Delete(ctx context.Context, principalID, postID string) error {
	_, err := s.one(principalID, postID)
	return err
}

func (s *stubPosts) UpdateDetails(ctx context.Context, principalID, postID string, req *domain.UpdatePostRequest) (*domain.PostResponse, error) {
	s.req = req
	return s.one(principalID, postID)
}

func (s *stubPosts) UpdateImage(ctx context.Context, principalID, postID, imagePath string) (*domain.PostResponse, error) {
	s.imagePath = imagePath
	return s.one(principalID, postID)
}

func (s *stubPosts) ToggleVisibility(ctx context.Context, principalID, postID string) (*domain.PostResponse, error) {
	return s.one(principalID, postID)
}

func (s *stubPosts) toggle(userID, postID string) (*domain.ToggleResponse, error) {
	s.calls++
	s.userID = userID
	s.postID = postID
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ToggleResponse{PostID: postID, Active: true, Count: 1}, nil
}

func (s *stubPosts) ToggleLike(ctx context.Context, userID, postID string) (*domain.ToggleResponse, error) {
	return s.toggle(userID, postID)
}

func (s *stubPosts) ToggleSave(ctx context.Context, userID, postID string) (*domain.ToggleResponse, error) {
	return s.toggle(userID, postID)
}

func (s *stubPosts) Liked(ctx context.Context, userID string, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	return s.list(userID, opts)
}

func (s *stubPosts) Saved(ctx context.Context, userID string, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	return s.list(userID, opts)
}
