package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"postline-server/internal/domain"
	"postline-server/internal/media"
	"postline-server/pkg/hash"

	"github.com/rs/zerolog"
)

const testPassword = "UserPassword123!"

var (
	hashOnce   sync.Once
	hashedPass string
)

// testPasswordHash hashes testPassword once per test binary.
func testPasswordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := hash.Hash(testPassword)
		if err != nil {
			panic(err)
		}
		hashedPass = h
	})
	return hashedPass
}

var errStoreDown = errors.New("store unavailable")

// mockUserRepository stores copies so tests can compare stored state with
// values held by the code under test.
type mockUserRepository struct {
	users     map[string]domain.User
	updateErr error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == strings.ToLower(username) {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepository) FindByHandle(ctx context.Context, handle string) (*domain.User, error) {
	if strings.Contains(handle, "@") {
		return m.FindByEmail(ctx, handle)
	}
	if u, err := m.FindByID(ctx, handle); err == nil {
		return u, nil
	}
	return m.FindByUsername(ctx, handle)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.RefreshToken = &token
	m.users[id] = u
	return nil
}

func (m *mockUserRepository) ClearSession(ctx context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.RefreshToken = nil
	m.users[id] = u
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

type mockPostRepository struct {
	posts     map[string]domain.Post
	updateErr error
}

func newMockPostRepository() *mockPostRepository {
	return &mockPostRepository{posts: make(map[string]domain.Post)}
}

func (m *mockPostRepository) Create(ctx context.Context, post *domain.Post) error {
	m.posts[post.ID] = *post
	return nil
}

func (m *mockPostRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	if p, ok := m.posts[id]; ok {
		return &p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockPostRepository) FindByIDs(ctx context.Context, ids []string, viewerID string) ([]*domain.Post, error) {
	var out []*domain.Post
	for _, id := range ids {
		if p, ok := m.posts[id]; ok && (p.Visible || (viewerID != "" && p.OwnerID == viewerID)) {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *mockPostRepository) filter(keep func(domain.Post) bool, opts domain.ListOptions) []*domain.Post {
	opts = opts.Normalize()

	var all []*domain.Post
	for _, p := range m.posts {
		if keep(p) {
			p := p
			all = append(all, &p)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if opts.Order == domain.OrderAsc {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := opts.Skip()
	if start >= len(all) {
		return nil
	}
	end := start + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func (m *mockPostRepository) ListPublic(ctx context.Context, opts domain.ListOptions) ([]*domain.Post, error) {
	return m.filter(func(p domain.Post) bool {
		return p.Visible && (opts.Category == "" || p.Category == opts.Category)
	}, opts), nil
}

func (m *mockPostRepository) ListByOwner(ctx context.Context, ownerID string, opts domain.ListOptions, includeHidden bool) ([]*domain.Post, error) {
	return m.filter(func(p domain.Post) bool {
		return p.OwnerID == ownerID && (includeHidden || p.Visible)
	}, opts), nil
}

func (m *mockPostRepository) CountByOwner(ctx context.Context, ownerID string, includeHidden bool) (int, error) {
	n := 0
	for _, p := range m.posts {
		if p.OwnerID == ownerID && (includeHidden || p.Visible) {
			n++
		}
	}
	return n, nil
}

func (m *mockPostRepository) Update(ctx context.Context, post *domain.Post) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.posts[post.ID]; !ok {
		return domain.ErrNotFound
	}
	m.posts[post.ID] = *post
	return nil
}

func (m *mockPostRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

type mockReactionRepository struct {
	reactions map[string]domain.Reaction
}

func newMockReactionRepository() *mockReactionRepository {
	return &mockReactionRepository{reactions: make(map[string]domain.Reaction)}
}

func reactionKey(kind domain.ReactionKind, userID, postID string) string {
	return fmt.Sprintf("%s:%s:%s", kind, userID, postID)
}

func (m *mockReactionRepository) Exists(ctx context.Context, kind domain.ReactionKind, userID, postID string) (bool, error) {
	_, ok := m.reactions[reactionKey(kind, userID, postID)]
	return ok, nil
}

func (m *mockReactionRepository) Add(ctx context.Context, r *domain.Reaction) error {
	m.reactions[reactionKey(r.Kind, r.UserID, r.PostID)] = *r
	return nil
}

func (m *mockReactionRepository) Remove(ctx context.Context, kind domain.ReactionKind, userID, postID string) error {
	key := reactionKey(kind, userID, postID)
	if _, ok := m.reactions[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.reactions, key)
	return nil
}

func (m *mockReactionRepository) ListPostIDs(ctx context.Context, kind domain.ReactionKind, userID string, opts domain.ListOptions) ([]string, error) {
	var rs []domain.Reaction
	for _, r := range m.reactions {
		if r.Kind == kind && r.UserID == userID {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })

	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.PostID)
	}
	return ids, nil
}

func (m *mockReactionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Reaction, error) {
	var out []*domain.Reaction
	for _, r := range m.reactions {
		if r.UserID == userID {
			r := r
			out = append(out, &r)
		}
	}
	return out, nil
}

func (m *mockReactionRepository) DeleteByPost(ctx context.Context, postID string) error {
	for k, r := range m.reactions {
		if r.PostID == postID {
			delete(m.reactions, k)
		}
	}
	return nil
}

func (m *mockReactionRepository) DeleteByUser(ctx context.Context, userID string) error {
	for k, r := range m.reactions {
		if r.UserID == userID {
			delete(m.reactions, k)
		}
	}
	return nil
}

// mockMediaHost hands out sequential URLs and records removals.
type mockMediaHost struct {
	uploaded     []string
	removed      []string
	uploadErr    error
	removeResult string
	n            int
}

func newMockMediaHost() *mockMediaHost {
	return &mockMediaHost{removeResult: media.ResultOK}
}

func (m *mockMediaHost) Upload(ctx context.Context, localPath string) (*media.UploadResult, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.n++
	url := fmt.Sprintf("https://media.test/%d-%s", m.n, localPath)
	m.uploaded = append(m.uploaded, url)
	return &media.UploadResult{URL: url, Key: localPath}, nil
}

func (m *mockMediaHost) Remove(ctx context.Context, url string) (*media.RemoveResult, error) {
	if m.removeResult == media.ResultOK {
		m.removed = append(m.removed, url)
	}
	return &media.RemoveResult{Result: m.removeResult}, nil
}

type mockViewTracker struct {
	viewers map[string]map[string]bool
	history map[string][]string
}

func newMockViewTracker() *mockViewTracker {
	return &mockViewTracker{
		viewers: make(map[string]map[string]bool),
		history: make(map[string][]string),
	}
}

func (m *mockViewTracker) RecordView(ctx context.Context, postID, viewer string) (bool, error) {
	if m.viewers[postID] == nil {
		m.viewers[postID] = make(map[string]bool)
	}
	if m.viewers[postID][viewer] {
		return false, nil
	}
	m.viewers[postID][viewer] = true
	return true, nil
}

func (m *mockViewTracker) PushHistory(ctx context.Context, userID, postID string) error {
	h := []string{postID}
	for _, id := range m.history[userID] {
		if id != postID {
			h = append(h, id)
		}
	}
	m.history[userID] = h
	return nil
}

func (m *mockViewTracker) History(ctx context.Context, userID string, limit int) ([]string, error) {
	return m.history[userID], nil
}

func (m *mockViewTracker) Forget(ctx context.Context, postID string) error {
	delete(m.viewers, postID)
	return nil
}

type feedEvent struct {
	event  string
	postID string
}

type mockFeed struct {
	events []feedEvent
}

func (m *mockFeed) Publish(event string, post *domain.PostResponse) {
	m.events = append(m.events, feedEvent{event: event, postID: post.ID})
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func assertKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("error kind = %s, want %s (err: %v)", got, kind, err)
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *domain.Error, got %v", err)
	}
	if de.Code != code {
		t.Fatalf("error code = %s, want %s", de.Code, code)
	}
}
