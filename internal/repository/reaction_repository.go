package repository

import (
	"context"
	"errors"
	"fmt"

	"postline-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// ReactionRepository stores likes and saves, one document per
// (kind, user, post).
type ReactionRepository interface {
	Exists(ctx context.Context, kind domain.ReactionKind, userID, postID string) (bool, error)
	Add(ctx context.Context, reaction *domain.Reaction) error
	Remove(ctx context.Context, kind domain.ReactionKind, userID, postID string) error
	ListPostIDs(ctx context.Context, kind domain.ReactionKind, userID string, opts domain.ListOptions) ([]string, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Reaction, error)
	DeleteByPost(ctx context.Context, postID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type reactionRepository struct {
	client *kivik.Client
	dbName string
}

func NewReactionRepository(client *kivik.Client, dbName string) ReactionRepository {
	return &reactionRepository{
		client: client,
		dbName: dbName,
	}
}

func reactionDocID(kind domain.ReactionKind, userID, postID string) string {
	return fmt.Sprintf("%s:%s:%s", kind, userID, postID)
}

func (r *reactionRepository) Exists(ctx context.Context, kind domain.ReactionKind, userID, postID string) (bool, error) {
	var reaction domain.Reaction
	err := getDoc(ctx, r.client.DB(r.dbName), reactionDocID(kind, userID, postID), &reaction)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check reaction: %w", err)
	}
	return true, nil
}

func (r *reactionRepository) Add(ctx context.Context, reaction *domain.Reaction) error {
	db := r.client.DB(r.dbName)

	reaction.DocID = reactionDocID(reaction.Kind, reaction.UserID, reaction.PostID)
	reaction.DocType = domain.DocTypeReaction
	rev, err := db.Put(ctx, reaction.DocID, reaction)
	if err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	reaction.Rev = rev

	return nil
}

func (r *reactionRepository) Remove(ctx context.Context, kind domain.ReactionKind, userID, postID string) error {
	return deleteDoc(ctx, r.client.DB(r.dbName), reactionDocID(kind, userID, postID))
}

func (r *reactionRepository) ListPostIDs(ctx context.Context, kind domain.ReactionKind, userID string, opts domain.ListOptions) ([]string, error) {
	opts = opts.Normalize()

	selector := map[string]interface{}{
		"doc_type":   domain.DocTypeReaction,
		"kind":       kind,
		"user_id":    userID,
		"created_at": map[string]interface{}{"$gt": nil},
	}

	reactions, err := findAll[domain.Reaction](ctx, r.client.DB(r.dbName),
		pageQuery(selector, opts, "doc_type", "kind", "user_id", "created_at"))
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}

	ids := make([]string, 0, len(reactions))
	for _, reaction := range reactions {
		ids = append(ids, reaction.PostID)
	}

	return ids, nil
}

// ListByUser returns every like and save the user holds, in no particular order.
func (r *reactionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Reaction, error) {
	reactions, err := findAll[domain.Reaction](ctx, r.client.DB(r.dbName), map[string]interface{}{
		"selector": map[string]interface{}{
			"doc_type": domain.DocTypeReaction,
			"user_id":  userID,
		},
		"limit": maxScan,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user reactions: %w", err)
	}
	return reactions, nil
}

func (r *reactionRepository) DeleteByPost(ctx context.Context, postID string) error {
	return r.deleteWhere(ctx, map[string]interface{}{
		"doc_type": domain.DocTypeReaction,
		"post_id":  postID,
	})
}

func (r *reactionRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.deleteWhere(ctx, map[string]interface{}{
		"doc_type": domain.DocTypeReaction,
		"user_id":  userID,
	})
}

func (r *reactionRepository) deleteWhere(ctx context.Context, selector map[string]interface{}) error {
	db := r.client.DB(r.dbName)

	reactions, err := findAll[domain.Reaction](ctx, db, map[string]interface{}{
		"selector": selector,
		"limit":    maxScan,
	})
	if err != nil {
		return fmt.Errorf("failed to query reactions: %w", err)
	}

	for _, reaction := range reactions {
		if _, err := db.Delete(ctx, reaction.DocID, reaction.Rev); err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to delete reaction %s: %w", reaction.DocID, err)
		}
	}

	return nil
}
