package service

import (
	"context"
	"errors"
	"fmt"

	"postline-server/internal/config"
	"postline-server/internal/domain"
	"postline-server/internal/repository"
	"postline-server/pkg/jwt"

	"github.com/rs/zerolog"
)

// TokenService issues and verifies session tokens. RotateSession is the only
// place a refresh token is written to the credential store.
type TokenService struct {
	userRepo repository.UserRepository
	cfg      config.JWTConfig
	logger   zerolog.Logger
}

func NewTokenService(userRepo repository.UserRepository, cfg config.JWTConfig, logger zerolog.Logger) *TokenService {
	return &TokenService{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger.With().Str("component", "tokens").Logger(),
	}
}

func (s *TokenService) IssueAccessToken(user *domain.User) (string, error) {
	return jwt.GenerateAccessToken(jwt.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}, s.cfg.AccessExpiration, s.cfg.AccessSecret)
}

func (s *TokenService) IssueRefreshToken(userID string) (string, error) {
	return jwt.GenerateRefreshToken(userID, s.cfg.RefreshExpiration, s.cfg.RefreshSecret)
}

// RotateSession issues a fresh token pair for userID and stores the refresh
// token as the only one honoured for the account.
func (s *TokenService) RotateSession(ctx context.Context, userID string) (*domain.TokenPair, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindResourceNotFound, domain.CodeUserNotFound, err)
		}
		return nil, domain.Internal(fmt.Errorf("failed to load user: %w", err))
	}

	accessToken, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to generate access token: %w", err))
	}

	refreshToken, err := s.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to generate refresh token: %w", err))
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to persist refresh token")
		return nil, domain.Internal(fmt.Errorf("failed to persist refresh token: %w", err))
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessExpiration.Seconds()),
	}, nil
}

func (s *TokenService) VerifyAccess(token string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateToken(token, s.cfg.AccessSecret)
	if err != nil {
		return nil, credentialError(err, domain.CodeExpiredAccessToken, domain.CodeInvalidAccessToken)
	}
	return claims, nil
}

func (s *TokenService) VerifyRefresh(token string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateToken(token, s.cfg.RefreshSecret)
	if err != nil {
		return nil, credentialError(err, domain.CodeExpiredRefreshToken, domain.CodeInvalidRefreshToken)
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new pair. The token must be the one
// currently stored for its user; a superseded or revoked token is rejected
// even while its signature and expiry are still valid.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.NewError(domain.KindAuthRequired, domain.CodeRefreshTokenMissing, nil)
	}

	claims, err := s.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindInvalidCredential, domain.CodeInvalidRefreshToken, err)
		}
		return nil, domain.Internal(fmt.Errorf("failed to load user: %w", err))
	}

	if !user.HasRefreshToken(refreshToken) {
		s.logger.Warn().Str("user_id", user.ID).Msg("refresh token does not match stored token")
		return nil, domain.NewError(domain.KindInvalidCredential, domain.CodeInvalidRefreshToken,
			errors.New("refresh token superseded or revoked"))
	}

	return s.RotateSession(ctx, user.ID)
}

func credentialError(err error, expiredCode, invalidCode string) error {
	if errors.Is(err, jwt.ErrExpired) {
		return domain.NewError(domain.KindExpiredCredential, expiredCode, err)
	}
	return domain.NewError(domain.KindInvalidCredential, invalidCode, err)
}
