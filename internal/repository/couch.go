package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"postline-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// maxScan bounds unpaginated Mango queries; CouchDB defaults to 25 rows.
const maxScan = 10000

func isNotFound(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusNotFound
}

// getDoc loads docID into v, translating a missing document into
// domain.ErrNotFound.
func getDoc(ctx context.Context, db *kivik.DB, docID string, v interface{}) error {
	if err := db.Get(ctx, docID).ScanDoc(v); err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func deleteDoc(ctx context.Context, db *kivik.DB, docID string) error {
	rev, err := db.GetRev(ctx, docID)
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return err
	}

	if _, err := db.Delete(ctx, docID, rev); err != nil {
		return fmt.Errorf("failed to delete %s: %w", docID, err)
	}
	return nil
}

// findAll runs a Mango query and decodes every row into a T.
func findAll[T any](ctx context.Context, db *kivik.DB, query map[string]interface{}) ([]*T, error) {
	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*T
	for rows.Next() {
		var item T
		if err := rows.ScanDoc(&item); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// EnsureIndexes creates the Mango indexes the repositories sort and filter on.
func EnsureIndexes(ctx context.Context, client *kivik.Client, dbName string) error {
	db := client.DB(dbName)

	indexes := []struct {
		name   string
		fields []string
	}{
		{"users-by-username", []string{"doc_type", "username"}},
		{"users-by-email", []string{"doc_type", "email"}},
		{"posts-by-created", []string{"doc_type", "created_at"}},
		{"posts-by-owner", []string{"doc_type", "owner_id", "created_at"}},
		{"reactions-by-user", []string{"doc_type", "kind", "user_id", "created_at"}},
		{"reactions-by-post", []string{"doc_type", "post_id"}},
	}

	for _, idx := range indexes {
		def := map[string]interface{}{"fields": idx.fields}
		if err := db.CreateIndex(ctx, "postline", idx.name, def); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

var errEmptyID = errors.New("document id is empty")
