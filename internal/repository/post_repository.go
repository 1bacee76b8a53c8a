package repository

import (
	"context"
	"errors"
	"fmt"

	"postline-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, id string) (*domain.Post, error)
	FindByIDs(ctx context.Context, ids []string, viewerID string) ([]*domain.Post, error)
	ListPublic(ctx context.Context, opts domain.ListOptions) ([]*domain.Post, error)
	ListByOwner(ctx context.Context, ownerID string, opts domain.ListOptions, includeHidden bool) ([]*domain.Post, error)
	CountByOwner(ctx context.Context, ownerID string, includeHidden bool) (int, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id string) error
}

type postRepository struct {
	client *kivik.Client
	dbName string
}

func NewPostRepository(client *kivik.Client, dbName string) PostRepository {
	return &postRepository{
		client: client,
		dbName: dbName,
	}
}

func postDocID(id string) string {
	return fmt.Sprintf("post:%s", id)
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.ID == "" {
		return errEmptyID
	}

	db := r.client.DB(r.dbName)

	post.DocID = postDocID(post.ID)
	post.DocType = domain.DocTypePost
	rev, err := db.Put(ctx, post.DocID, post)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	post.Rev = rev

	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	db := r.client.DB(r.dbName)

	var post domain.Post
	if err := getDoc(ctx, db, postDocID(id), &post); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return &post, nil
}

// FindByIDs returns the posts among ids that viewerID may see, preserving the
// order of ids. Hidden posts are only returned to their owner.
func (r *postRepository) FindByIDs(ctx context.Context, ids []string, viewerID string) ([]*domain.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	posts, err := findAll[domain.Post](ctx, r.client.DB(r.dbName), findByIDsQuery(ids, viewerID))
	if err != nil {
		return nil, fmt.Errorf("failed to find posts: %w", err)
	}

	byID := make(map[string]*domain.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	ordered := make([]*domain.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	return ordered, nil
}

func (r *postRepository) ListPublic(ctx context.Context, opts domain.ListOptions) ([]*domain.Post, error) {
	opts = opts.Normalize()

	selector := map[string]interface{}{
		"doc_type":   domain.DocTypePost,
		"created_at": map[string]interface{}{"$gt": nil},
		"visible":    true,
	}
	if opts.Category != "" {
		selector["category"] = opts.Category
	}

	posts, err := findAll[domain.Post](ctx, r.client.DB(r.dbName), pageQuery(selector, opts, "doc_type", "created_at"))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

func (r *postRepository) ListByOwner(ctx context.Context, ownerID string, opts domain.ListOptions, includeHidden bool) ([]*domain.Post, error) {
	opts = opts.Normalize()

	selector := ownerSelector(ownerID, includeHidden)
	selector["created_at"] = map[string]interface{}{"$gt": nil}
	if opts.Category != "" {
		selector["category"] = opts.Category
	}

	posts, err := findAll[domain.Post](ctx, r.client.DB(r.dbName), pageQuery(selector, opts, "doc_type", "owner_id", "created_at"))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by owner: %w", err)
	}

	return posts, nil
}

func (r *postRepository) CountByOwner(ctx context.Context, ownerID string, includeHidden bool) (int, error) {
	query := map[string]interface{}{
		"selector": ownerSelector(ownerID, includeHidden),
		"fields":   []string{"_id"},
		"limit":    maxScan,
	}

	rows, err := findAll[struct {
		ID string `json:"_id"`
	}](ctx, r.client.DB(r.dbName), query)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}

	return len(rows), nil
}

func (r *postRepository) Update(ctx context.Context, post *domain.Post) error {
	db := r.client.DB(r.dbName)

	post.DocID = postDocID(post.ID)
	post.DocType = domain.DocTypePost
	rev, err := db.Put(ctx, post.DocID, post)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	post.Rev = rev

	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.client.DB(r.dbName), postDocID(id))
}

func ownerSelector(ownerID string, includeHidden bool) map[string]interface{} {
	selector := map[string]interface{}{
		"doc_type": domain.DocTypePost,
		"owner_id": ownerID,
	}
	if !includeHidden {
		selector["visible"] = true
	}
	return selector
}

// pageQuery sorts on the index fields so CouchDB can serve the sort from the
// matching Mango index.
func findByIDsQuery(ids []string, viewerID string) map[string]interface{} {
	selector := map[string]interface{}{
		"doc_type": domain.DocTypePost,
		"id":       map[string]interface{}{"$in": ids},
	}
	if viewerID == "" {
		selector["visible"] = true
	} else {
		selector["$or"] = []interface{}{
			map[string]interface{}{"visible": true},
			map[string]interface{}{"owner_id": viewerID},
		}
	}

	return map[string]interface{}{
		"selector": selector,
		"limit":    len(ids),
	}
}

func pageQuery(selector map[string]interface{}, opts domain.ListOptions, sortFields ...string) map[string]interface{} {
	sort := make([]map[string]string, 0, len(sortFields))
	for _, f := range sortFields {
		sort = append(sort, map[string]string{f: opts.Order})
	}

	return map[string]interface{}{
		"selector": selector,
		"sort":     sort,
		"limit":    opts.Limit,
		"skip":     opts.Skip(),
	}
}
