package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"postline-server/internal/domain"
	"postline-server/internal/media"
	"postline-server/internal/repository"
	"postline-server/internal/tracker"

	"github.com/rs/zerolog"
)

type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	media    mediaStore
	views    tracker.ViewTracker
	logger   zerolog.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	host media.Host,
	views tracker.ViewTracker,
	logger zerolog.Logger,
) *UserService {
	logger = logger.With().Str("component", "users").Logger()
	return &UserService{
		userRepo: userRepo,
		postRepo: postRepo,
		media:    mediaStore{host: host, logger: logger},
		views:    views,
		logger:   logger,
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.PublicUser, error) {
	user, err := loadUser(ctx, s.userRepo.FindByID, id, domain.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *UserService) UpdateAccount(ctx context.Context, userID string, req *domain.UpdateAccountRequest) (*domain.PublicUser, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.confirmed(ctx, userID, req.Password)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != user.Email {
		exists, err := s.userRepo.EmailExists(ctx, email)
		if err != nil {
			return nil, domain.Internal(fmt.Errorf("failed to check email existence: %w", err))
		}
		if exists {
			return nil, domain.NewError(domain.KindConflict, domain.CodeUserExists, nil)
		}
	}

	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.Email = email

	return s.save(ctx, user)
}

func (s *UserService) UpdateChannel(ctx context.Context, userID string, req *domain.UpdateChannelRequest) (*domain.PublicUser, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.confirmed(ctx, userID, req.Password)
	if err != nil {
		return nil, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username != user.Username {
		exists, err := s.userRepo.UsernameExists(ctx, username)
		if err != nil {
			return nil, domain.Internal(fmt.Errorf("failed to check username: %w", err))
		}
		if exists {
			return nil, domain.NewError(domain.KindConflict, domain.CodeUserExists, nil)
		}
	}

	user.Username = username
	user.Bio = strings.TrimSpace(req.Bio)

	return s.save(ctx, user)
}

func (s *UserService) UpdatePassword(ctx context.Context, userID string, req *domain.UpdatePasswordRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	user, err := s.confirmed(ctx, userID, req.OldPassword)
	if err != nil {
		return err
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed

	_, err = s.save(ctx, user)
	return err
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID, avatarPath string) (*domain.PublicUser, error) {
	if avatarPath == "" {
		return nil, domain.NewError(domain.KindValidationFailed, domain.CodeMissingAvatar, nil)
	}

	user, err := loadUser(ctx, s.userRepo.FindByID, userID, domain.CodeUserNotFound)
	if err != nil {
		return nil, err
	}

	_, err = s.media.replace(ctx, user.Avatar, avatarPath, func(url string) error {
		user.Avatar = url
		_, err := s.save(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user.Public(), nil
}

func (s *UserService) UpdateCoverImage(ctx context.Context, userID, coverPath string) (*domain.PublicUser, error) {
	if coverPath == "" {
		return nil, domain.NewError(domain.KindValidationFailed, domain.CodeMissingCoverImage, nil)
	}

	user, err := loadUser(ctx, s.userRepo.FindByID, userID, domain.CodeUserNotFound)
	if err != nil {
		return nil, err
	}

	_, err = s.media.replace(ctx, user.CoverImage, coverPath, func(url string) error {
		user.CoverImage = url
		_, err := s.save(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user.Public(), nil
}

// ChannelProfile resolves handle as a username, email or id. viewerID may be
// empty for anonymous visitors; hidden posts count only for the owner.
func (s *UserService) ChannelProfile(ctx context.Context, handle, viewerID string) (*domain.ChannelProfile, error) {
	channel, err := loadUser(ctx, s.userRepo.FindByHandle, strings.ToLower(handle), domain.CodeChannelNotFound)
	if err != nil {
		return nil, err
	}

	isOwner := viewerID != "" && viewerID == channel.ID

	total, err := s.postRepo.CountByOwner(ctx, channel.ID, isOwner)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to count channel posts: %w", err))
	}

	return &domain.ChannelProfile{
		Channel:    channel.Public(),
		TotalPosts: total,
		IsOwner:    isOwner,
	}, nil
}

// History returns recently viewed posts, newest first. Posts deleted since
// they were viewed are skipped, and so are posts hidden by someone else.
func (s *UserService) History(ctx context.Context, userID string, limit int) ([]*domain.PostResponse, error) {
	ids, err := s.views.History(ctx, userID, limit)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to read history: %w", err))
	}

	posts, err := s.postRepo.FindByIDs(ctx, ids, userID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to load history posts: %w", err))
	}

	return responses(posts), nil
}

func (s *UserService) confirmed(ctx context.Context, userID, password string) (*domain.User, error) {
	user, err := loadUser(ctx, s.userRepo.FindByID, userID, domain.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(user, password); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *domain.User) (*domain.PublicUser, error) {
	user.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to update user: %w", err))
	}
	return user.Public(), nil
}
