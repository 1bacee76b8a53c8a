package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"postline-server/internal/domain"
	"postline-server/internal/media"
	"postline-server/internal/repository"
	"postline-server/internal/tracker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RegisterUploads are the spooled files sent with a registration.
type RegisterUploads struct {
	AvatarPath     string
	CoverImagePath string
}

type AuthService struct {
	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	reactionRepo repository.ReactionRepository
	tokens       *TokenService
	media        mediaStore
	views        tracker.ViewTracker
	logger       zerolog.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	reactionRepo repository.ReactionRepository,
	tokens *TokenService,
	host media.Host,
	views tracker.ViewTracker,
	logger zerolog.Logger,
) *AuthService {
	logger = logger.With().Str("component", "auth").Logger()
	return &AuthService{
		userRepo:     userRepo,
		postRepo:     postRepo,
		reactionRepo: reactionRepo,
		tokens:       tokens,
		media:        mediaStore{host: host, logger: logger},
		views:        views,
		logger:       logger,
	}
}

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest, uploads RegisterUploads) (*domain.PublicUser, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if uploads.AvatarPath == "" {
		return nil, domain.NewError(domain.KindValidationFailed, domain.CodeMissingAvatar, nil)
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	emailExists, err := s.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to check email existence: %w", err))
	}
	usernameExists, err := s.userRepo.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to check username existence: %w", err))
	}
	if emailExists || usernameExists {
		return nil, domain.NewError(domain.KindConflict, domain.CodeUserExists, nil)
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	avatarURL, err := s.media.upload(ctx, uploads.AvatarPath)
	if err != nil {
		return nil, err
	}

	var coverURL string
	if uploads.CoverImagePath != "" {
		coverURL, err = s.media.upload(ctx, uploads.CoverImagePath)
		if err != nil {
			s.media.discard(ctx, avatarURL)
			return nil, err
		}
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:         uuid.New().String(),
		Username:   req.Username,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      req.Email,
		Password:   hashedPassword,
		Avatar:     avatarURL,
		CoverImage: coverURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.media.discard(ctx, avatarURL, coverURL)
		return nil, domain.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user.Public(), nil
}

// Login accepts a username or email and establishes a new session,
// superseding any previous refresh token for the account.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := loadUser(ctx, s.userRepo.FindByHandle, strings.ToLower(strings.TrimSpace(req.LoginInput)), domain.CodeUserNotFound)
	if err != nil {
		return nil, err
	}

	if err := checkPassword(user, req.Password); err != nil {
		return nil, err
	}

	pair, err := s.tokens.RotateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{
		User:         user.Public(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

// Logout revokes the stored refresh token. Access tokens already issued stay
// valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.ClearSession(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.KindResourceNotFound, domain.CodeUserNotFound, err)
		}
		return domain.Internal(fmt.Errorf("failed to clear session: %w", err))
	}
	return nil
}

// DeleteAccount removes the user after password confirmation, together with
// their posts, reactions and media.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string, req *domain.DeleteAccountRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	user, err := loadUser(ctx, s.userRepo.FindByID, userID, domain.CodeUserNotFound)
	if err != nil {
		return err
	}

	if err := checkPassword(user, req.Password); err != nil {
		return err
	}

	// Deleting shifts the remaining posts forward, so the first page is re-read
	// until it comes back empty.
	for round := 0; ; round++ {
		posts, err := s.postRepo.ListByOwner(ctx, user.ID, domain.ListOptions{Limit: domain.MaxPageLimit}, true)
		if err != nil {
			return domain.Internal(fmt.Errorf("failed to list user posts: %w", err))
		}
		if len(posts) == 0 {
			break
		}
		if round >= maxDeleteRounds {
			return domain.Internal(errors.New("too many posts to delete in one request"))
		}
		for _, post := range posts {
			if err := s.deletePost(ctx, post); err != nil {
				return err
			}
		}
	}

	if err := s.withdrawReactions(ctx, user.ID); err != nil {
		return err
	}

	if err := s.reactionRepo.DeleteByUser(ctx, user.ID); err != nil {
		return domain.Internal(fmt.Errorf("failed to delete reactions: %w", err))
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return domain.Internal(fmt.Errorf("failed to delete user: %w", err))
	}

	s.media.discard(ctx, user.Avatar, user.CoverImage)
	s.logger.Info().Str("user_id", user.ID).Msg("account deleted")
	return nil
}

const maxDeleteRounds = 100

// withdrawReactions lowers the like and save counters the user contributed to
// posts that outlive the account.
func (s *AuthService) withdrawReactions(ctx context.Context, userID string) error {
	reactions, err := s.reactionRepo.ListByUser(ctx, userID)
	if err != nil {
		return domain.Internal(fmt.Errorf("failed to list reactions: %w", err))
	}

	type delta struct{ likes, saves int64 }
	byPost := make(map[string]*delta)
	for _, reaction := range reactions {
		d, ok := byPost[reaction.PostID]
		if !ok {
			d = &delta{}
			byPost[reaction.PostID] = d
		}
		switch reaction.Kind {
		case domain.ReactionLike:
			d.likes++
		case domain.ReactionSave:
			d.saves++
		}
	}

	for postID, d := range byPost {
		post, err := s.postRepo.FindByID(ctx, postID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.Internal(fmt.Errorf("failed to load post %s: %w", postID, err))
		}

		post.Likes = max(post.Likes-d.likes, 0)
		post.Saves = max(post.Saves-d.saves, 0)
		if err := s.postRepo.Update(ctx, post); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Internal(fmt.Errorf("failed to update post counters: %w", err))
		}
	}

	return nil
}

func (s *AuthService) deletePost(ctx context.Context, post *domain.Post) error {
	if err := s.reactionRepo.DeleteByPost(ctx, post.ID); err != nil {
		return domain.Internal(fmt.Errorf("failed to delete post reactions: %w", err))
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Internal(fmt.Errorf("failed to delete post: %w", err))
	}
	if err := s.views.Forget(ctx, post.ID); err != nil {
		s.logger.Warn().Err(err).Str("post_id", post.ID).Msg("failed to drop post viewers")
	}
	s.media.discard(ctx, post.Image)
	return nil
}
