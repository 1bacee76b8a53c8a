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

// FeedPublisher receives post changes for the live feed.
type FeedPublisher interface {
	Publish(event string, post *domain.PostResponse)
}

type PostService struct {
	postRepo     repository.PostRepository
	reactionRepo repository.ReactionRepository
	media        mediaStore
	views        tracker.ViewTracker
	feed         FeedPublisher
	logger       zerolog.Logger
}

func NewPostService(
	postRepo repository.PostRepository,
	reactionRepo repository.ReactionRepository,
	host media.Host,
	views tracker.ViewTracker,
	feed FeedPublisher,
	logger zerolog.Logger,
) *PostService {
	logger = logger.With().Str("component", "posts").Logger()
	return &PostService{
		postRepo:     postRepo,
		reactionRepo: reactionRepo,
		media:        mediaStore{host: host, logger: logger},
		views:        views,
		feed:         feed,
		logger:       logger,
	}
}

func (s *PostService) Feed(ctx context.Context, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	posts, err := s.postRepo.ListPublic(ctx, opts)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return responses(posts), nil
}

// ChannelPosts lists a channel's posts. Hidden posts are included only when
// the viewer owns the channel.
func (s *PostService) ChannelPosts(ctx context.Context, channelID, viewerID string, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	if !validID(channelID) {
		return nil, domain.NewError(domain.KindValidationFailed, domain.CodeInvalidChannelID, nil)
	}

	posts, err := s.postRepo.ListByOwner(ctx, channelID, opts, viewerID == channelID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return responses(posts), nil
}

// Get returns a post and records the view. viewerKey identifies anonymous
// visitors for unique view counting; signed-in viewers are counted by id and
// get the post added to their watch history.
func (s *PostService) Get(ctx context.Context, postID, viewerID, viewerKey string) (*domain.PostResponse, error) {
	post, err := s.visiblePost(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}

	viewer := viewerKey
	if viewerID != "" {
		viewer = viewerID
	}

	isNew, err := s.views.RecordView(ctx, post.ID, viewer)
	if err != nil {
		s.logger.Warn().Err(err).Str("post_id", post.ID).Msg("failed to record view")
	} else if isNew {
		post.Views++
		if err := s.postRepo.Update(ctx, post); err != nil {
			s.logger.Warn().Err(err).Str("post_id", post.ID).Msg("failed to persist view count")
		}
	}

	if viewerID != "" {
		if err := s.views.PushHistory(ctx, viewerID, post.ID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", viewerID).Msg("failed to update watch history")
		}
	}

	resp := post.Response()
	if viewerID != "" {
		if resp.Liked, err = s.reactionRepo.Exists(ctx, domain.ReactionLike, viewerID, post.ID); err != nil {
			return nil, domain.Internal(err)
		}
		if resp.Saved, err = s.reactionRepo.Exists(ctx, domain.ReactionSave, viewerID, post.ID); err != nil {
			return nil, domain.Internal(err)
		}
	}

	return resp, nil
}

func (s *PostService) Add(ctx context.Context, ownerID string, req *domain.CreatePostRequest, imagePath string) (*domain.PostResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if imagePath == "" {
		return nil, domain.NewError(domain.KindValidationFailed, domain.CodeMissingPostImage, nil)
	}

	imageURL, err := s.media.upload(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	post := &domain.Post{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Category:  strings.ToLower(strings.TrimSpace(req.Category)),
		Image:     imageURL,
		Visible:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.media.discard(ctx, imageURL)
		return nil, domain.Internal(fmt.Errorf("failed to create post: %w", err))
	}

	resp := post.Response()
	s.publish(domain.EventPostCreated, resp)
	return resp, nil
}

// Delete removes the post image first; if the media host does not confirm
// the removal the post is kept.
func (s *PostService) Delete(ctx context.Context, principalID, postID string) error {
	post, err := s.owned(ctx, principalID, postID)
	if err != nil {
		return err
	}

	if err := s.media.remove(ctx, post.Image); err != nil {
		return err
	}

	if err := s.reactionRepo.DeleteByPost(ctx, post.ID); err != nil {
		return domain.Internal(fmt.Errorf("failed to delete reactions: %w", err))
	}

	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewError(domain.KindResourceNotFound, domain.CodePostNotFound, err)
		}
		return domain.Internal(fmt.Errorf("failed to delete post: %w", err))
	}

	if err := s.views.Forget(ctx, post.ID); err != nil {
		s.logger.Warn().Err(err).Str("post_id", post.ID).Msg("failed to drop post viewers")
	}

	if post.Visible {
		s.publish(domain.EventPostDeleted, &domain.PostResponse{ID: post.ID, OwnerID: post.OwnerID})
	}
	return nil
}

func (s *PostService) UpdateDetails(ctx context.Context, principalID, postID string, req *domain.UpdatePostRequest) (*domain.PostResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	post, err := s.owned(ctx, principalID, postID)
	if err != nil {
		return nil, err
	}

	post.Title = strings.TrimSpace(req.Title)
	post.Content = req.Content
	post.Category = strings.ToLower(strings.TrimSpace(req.Category))

	return s.save(ctx, post, domain.EventPostUpdated)
}

func (s *PostService) UpdateImage(ctx context.Context, principalID, postID, imagePath string) (*domain.PostResponse, error) {
	post, err := s.owned(ctx, principalID, postID)
	if err != nil {
		return nil, err
	}

	if imagePath == "" {
		return nil, domain.NewError(domain.KindValidationFailed, domain.CodeMissingPostImage, nil)
	}

	var resp *domain.PostResponse
	_, err = s.media.replace(ctx, post.Image, imagePath, func(url string) error {
		post.Image = url
		var err error
		resp, err = s.save(ctx, post, domain.EventPostUpdated)
		return err
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *PostService) ToggleVisibility(ctx context.Context, principalID, postID string) (*domain.PostResponse, error) {
	post, err := s.owned(ctx, principalID, postID)
	if err != nil {
		return nil, err
	}

	post.Visible = !post.Visible

	event := domain.EventPostDeleted
	if post.Visible {
		event = domain.EventPostCreated
	}
	return s.save(ctx, post, event)
}

func (s *PostService) ToggleLike(ctx context.Context, userID, postID string) (*domain.ToggleResponse, error) {
	return s.toggle(ctx, domain.ReactionLike, userID, postID)
}

func (s *PostService) ToggleSave(ctx context.Context, userID, postID string) (*domain.ToggleResponse, error) {
	return s.toggle(ctx, domain.ReactionSave, userID, postID)
}

func (s *PostService) Liked(ctx context.Context, userID string, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	return s.reacted(ctx, domain.ReactionLike, userID, opts)
}

func (s *PostService) Saved(ctx context.Context, userID string, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	return s.reacted(ctx, domain.ReactionSave, userID, opts)
}

func (s *PostService) toggle(ctx context.Context, kind domain.ReactionKind, userID, postID string) (*domain.ToggleResponse, error) {
	post, err := s.visiblePost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	exists, err := s.reactionRepo.Exists(ctx, kind, userID, post.ID)
	if err != nil {
		return nil, domain.Internal(err)
	}

	counter := &post.Likes
	if kind == domain.ReactionSave {
		counter = &post.Saves
	}

	if exists {
		if err := s.reactionRepo.Remove(ctx, kind, userID, post.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Internal(fmt.Errorf("failed to remove %s: %w", kind, err))
		}
		if *counter > 0 {
			*counter--
		}
	} else {
		reaction := &domain.Reaction{
			Kind:      kind,
			UserID:    userID,
			PostID:    post.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.reactionRepo.Add(ctx, reaction); err != nil {
			return nil, domain.Internal(fmt.Errorf("failed to add %s: %w", kind, err))
		}
		*counter++
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to update post counters: %w", err))
	}

	return &domain.ToggleResponse{
		PostID: post.ID,
		Active: !exists,
		Count:  *counter,
	}, nil
}

func (s *PostService) reacted(ctx context.Context, kind domain.ReactionKind, userID string, opts domain.ListOptions) ([]*domain.PostResponse, error) {
	ids, err := s.reactionRepo.ListPostIDs(ctx, kind, userID, opts)
	if err != nil {
		return nil, domain.Internal(err)
	}

	posts, err := s.postRepo.FindByIDs(ctx, ids, userID)
	if err != nil {
		return nil, domain.Internal(err)
	}

	out := responses(posts)
	for _, p := range out {
		switch kind {
		case domain.ReactionLike:
			p.Liked = true
		case domain.ReactionSave:
			p.Saved = true
		}
	}
	return out, nil
}

func (s *PostService) owned(ctx context.Context, principalID, postID string) (*domain.Post, error) {
	if !validID(postID) {
		return nil, domain.NewError(domain.KindValidationFailed, domain.CodeInvalidPostID, nil)
	}
	return requireOwner(ctx, s.postRepo.FindByID, principalID, postID, domain.CodePostNotFound)
}

// visiblePost loads a post that viewerID may see: any visible post, or a
// hidden one they own.
func (s *PostService) visiblePost(ctx context.Context, postID, viewerID string) (*domain.Post, error) {
	if !validID(postID) {
		return nil, domain.NewError(domain.KindValidationFailed, domain.CodeInvalidPostID, nil)
	}

	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindResourceNotFound, domain.CodePostNotFound, err)
		}
		return nil, domain.Internal(err)
	}

	if !post.Visible && post.OwnerID != viewerID {
		return nil, domain.NewError(domain.KindResourceNotFound, domain.CodePostNotFound, nil)
	}

	return post, nil
}

func (s *PostService) save(ctx context.Context, post *domain.Post, event string) (*domain.PostResponse, error) {
	post.UpdatedAt = time.Now().UTC()
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, domain.Internal(fmt.Errorf("failed to update post: %w", err))
	}

	resp := post.Response()
	if post.Visible || event == domain.EventPostDeleted {
		s.publish(event, resp)
	}
	return resp, nil
}

func (s *PostService) publish(event string, post *domain.PostResponse) {
	if s.feed != nil {
		s.feed.Publish(event, post)
	}
}

func responses(posts []*domain.Post) []*domain.PostResponse {
	out := make([]*domain.PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Response())
	}
	return out
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
