package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"postline-server/internal/domain"
	"postline-server/internal/media"
	"postline-server/pkg/hash"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New()

func validateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
			return domain.NewError(domain.KindValidationFailed, domain.CodeMissingFields,
				fmt.Errorf("invalid fields: %s", strings.Join(fields, ", ")))
		}
		return domain.NewError(domain.KindValidationFailed, domain.CodeMissingFields, err)
	}
	return nil
}

// checkPassword is the step-up confirmation used by login and every sensitive
// account change.
func checkPassword(user *domain.User, password string) error {
	if err := hash.Compare(user.Password, password); err != nil {
		if errors.Is(err, hash.ErrMismatch) {
			return domain.NewError(domain.KindWrongPassword, domain.CodeWrongCredentials, nil)
		}
		return domain.Internal(fmt.Errorf("failed to compare password: %w", err))
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := hash.Hash(password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooShort) {
			return "", domain.NewError(domain.KindValidationFailed, domain.CodeWeakPassword, err)
		}
		return "", domain.Internal(err)
	}
	return hashed, nil
}

func loadUser(ctx context.Context, load func(context.Context, string) (*domain.User, error), key, notFoundCode string) (*domain.User, error) {
	user, err := load(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindResourceNotFound, notFoundCode, err)
		}
		return nil, domain.Internal(fmt.Errorf("failed to load user: %w", err))
	}
	return user, nil
}

// mediaStore wraps a media.Host with the error mapping and compensation
// helpers shared by the services.
type mediaStore struct {
	host   media.Host
	logger zerolog.Logger
}

func (m mediaStore) upload(ctx context.Context, localPath string) (string, error) {
	res, err := m.host.Upload(ctx, localPath)
	if err != nil {
		return "", domain.NewError(domain.KindUpstreamMediaFailure, domain.CodeMediaHostFailure, err)
	}
	return res.URL, nil
}

// remove deletes url and fails unless the host reports ResultOK.
func (m mediaStore) remove(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	res, err := m.host.Remove(ctx, url)
	if err != nil {
		return domain.NewError(domain.KindUpstreamMediaFailure, domain.CodeMediaHostFailure, err)
	}
	if res.Result != media.ResultOK {
		return domain.NewError(domain.KindUpstreamMediaFailure, domain.CodeMediaHostFailure,
			fmt.Errorf("media host returned %q for %s", res.Result, url))
	}
	return nil
}

// discard is the compensating removal for uploads made by a failed
// operation. Failures are logged, never returned.
func (m mediaStore) discard(ctx context.Context, urls ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := m.remove(ctx, url); err != nil {
			m.logger.Error().Err(err).Str("url", url).Msg("failed to remove orphaned media")
		}
	}
}

// replace uploads newPath, removes oldURL and then calls persist with the new
// URL. If the old image cannot be removed or persist fails, the new upload is
// discarded and the stored reference is left untouched.
func (m mediaStore) replace(ctx context.Context, oldURL, newPath string, persist func(newURL string) error) (string, error) {
	newURL, err := m.upload(ctx, newPath)
	if err != nil {
		return "", err
	}

	if err := m.remove(ctx, oldURL); err != nil {
		m.discard(ctx, newURL)
		return "", err
	}

	if err := persist(newURL); err != nil {
		m.discard(ctx, newURL)
		return "", err
	}

	return newURL, nil
}
