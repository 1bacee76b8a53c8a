package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"postline-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
	"github.com/google/uuid"
)

// UserRepository is the credential store. Every method is a single-document
// read or write.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByHandle(ctx context.Context, handle string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetRefreshToken(ctx context.Context, id, token string) error
	ClearSession(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type userRepository struct {
	client *kivik.Client
	dbName string
}

func NewUserRepository(client *kivik.Client, dbName string) UserRepository {
	return &userRepository{
		client: client,
		dbName: dbName,
	}
}

func userDocID(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		return errEmptyID
	}

	db := r.client.DB(r.dbName)

	user.DocID = userDocID(user.ID)
	user.DocType = domain.DocTypeUser
	rev, err := db.Put(ctx, user.DocID, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Rev = rev

	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	db := r.client.DB(r.dbName)

	var user domain.User
	if err := getDoc(ctx, db, userDocID(id), &user); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email", strings.ToLower(email))
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username", strings.ToLower(username))
}

// FindByHandle resolves a login input or path segment: an email, a user id or
// a username, in that order of recognition.
func (r *userRepository) FindByHandle(ctx context.Context, handle string) (*domain.User, error) {
	if strings.Contains(handle, "@") {
		return r.FindByEmail(ctx, handle)
	}
	if _, err := uuid.Parse(handle); err == nil {
		user, err := r.FindByID(ctx, handle)
		if !errors.Is(err, domain.ErrNotFound) {
			return user, err
		}
	}
	return r.FindByUsername(ctx, handle)
}

func (r *userRepository) findOne(ctx context.Context, field, value string) (*domain.User, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": domain.DocTypeUser,
			field:      value,
		},
		"limit": 1,
	}

	users, err := findAll[domain.User](ctx, db, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query user by %s: %w", field, err)
	}

	if len(users) == 0 {
		return nil, domain.ErrNotFound
	}

	return users[0], nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	db := r.client.DB(r.dbName)

	user.DocID = userDocID(user.ID)
	user.DocType = domain.DocTypeUser
	rev, err := db.Put(ctx, user.DocID, user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	user.Rev = rev

	return nil
}

func (r *userRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	user.RefreshToken = &token
	return r.Update(ctx, user)
}

func (r *userRepository) ClearSession(ctx context.Context, id string) error {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	user.RefreshToken = nil
	return r.Update(ctx, user)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.client.DB(r.dbName), userDocID(id))
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return exists(r.FindByEmail(ctx, email))
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return exists(r.FindByUsername(ctx, username))
}

func exists(_ *domain.User, err error) (bool, error) {
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
