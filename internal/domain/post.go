package domain

import "time"

const (
	DocTypePost     = "post"
	DocTypeReaction = "reaction"
)

type Post struct {
	DocID     string    `json:"_id,omitempty"`
	Rev       string    `json:"_rev,omitempty"`
	DocType   string    `json:"doc_type"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Image     string    `json:"image"`
	Visible   bool      `json:"visible"`
	Views     int64     `json:"views"`
	Likes     int64     `json:"likes"`
	Saves     int64     `json:"saves"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Post) Owner() string {
	return p.OwnerID
}

type PostResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Image     string    `json:"image"`
	Visible   bool      `json:"visible"`
	Views     int64     `json:"views"`
	Likes     int64     `json:"likes"`
	Saves     int64     `json:"saves"`
	Liked     bool      `json:"liked"`
	Saved     bool      `json:"saved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Post) Response() *PostResponse {
	return &PostResponse{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Title:     p.Title,
		Content:   p.Content,
		Category:  p.Category,
		Image:     p.Image,
		Visible:   p.Visible,
		Views:     p.Views,
		Likes:     p.Likes,
		Saves:     p.Saves,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type CreatePostRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category" validate:"required,max=50"`
}

type UpdatePostRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category" validate:"required,max=50"`
}

// ListOptions controls feed pagination.
type ListOptions struct {
	Limit    int
	Page     int
	Order    string
	Category string
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	OrderAsc         = "asc"
	OrderDesc        = "desc"
)

// Normalize clamps the options to valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultPageLimit
	}
	if o.Limit > MaxPageLimit {
		o.Limit = MaxPageLimit
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.Order != OrderAsc {
		o.Order = OrderDesc
	}
	return o
}

func (o ListOptions) Skip() int {
	return (o.Page - 1) * o.Limit
}

type ReactionKind string

const (
	ReactionLike ReactionKind = "like"
	ReactionSave ReactionKind = "save"
)

// Reaction records that a user liked or saved a post.
type Reaction struct {
	DocID     string       `json:"_id,omitempty"`
	Rev       string       `json:"_rev,omitempty"`
	DocType   string       `json:"doc_type"`
	Kind      ReactionKind `json:"kind"`
	UserID    string       `json:"user_id"`
	PostID    string       `json:"post_id"`
	CreatedAt time.Time    `json:"created_at"`
}

type ToggleResponse struct {
	PostID string `json:"post_id"`
	Active bool   `json:"active"`
	Count  int64  `json:"count"`
}

// Live feed event types.
const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
	EventPostDeleted = "post_deleted"
)
