package repository

import (
	"testing"

	"postline-server/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestFindByIDsQuery(t *testing.T) {
	ids := []string{"p1", "p2"}

	tests := []struct {
		name     string
		viewerID string
		want     map[string]interface{}
	}{
		{
			name:     "anonymous sees visible posts only",
			viewerID: "",
			want: map[string]interface{}{
				"doc_type": domain.DocTypePost,
				"id":       map[string]interface{}{"$in": ids},
				"visible":  true,
			},
		},
		{
			name:     "owner also sees own hidden posts",
			viewerID: "user-1",
			want: map[string]interface{}{
				"doc_type": domain.DocTypePost,
				"id":       map[string]interface{}{"$in": ids},
				"$or": []interface{}{
					map[string]interface{}{"visible": true},
					map[string]interface{}{"owner_id": "user-1"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := findByIDsQuery(ids, tt.viewerID)

			assert.Equal(t, tt.want, query["selector"])
			assert.Equal(t, len(ids), query["limit"])
		})
	}
}
