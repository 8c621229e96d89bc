package comments

import (
	"context"
	"sort"
	"sync"
	"time"

	"Tsuki/internal/core/users"
)

// testClock is a manually advanced clock shared by the service and the mock store
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockCommentRepo is an in-memory implementation of the comment Repository interface
type mockCommentRepo struct {
	comments    map[string]*Comment
	users       map[string]*users.User
	clock       *testClock
	createCalls int
	createErr   error
	countErr    error
}

func newMockCommentRepo(clock *testClock) *mockCommentRepo {
	return &mockCommentRepo{
		comments: make(map[string]*Comment),
		users:    make(map[string]*users.User),
		clock:    clock,
	}
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *Comment) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	// one microsecond per insert keeps created_at strictly increasing
	m.clock.Advance(time.Microsecond)
	comment.CreatedAt = m.clock.Now()
	comment.UpdatedAt = comment.CreatedAt
	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id string) (*Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockCommentRepo) Update(ctx context.Context, id, md, html string) (time.Time, error) {
	c, ok := m.comments[id]
	if !ok {
		return time.Time{}, ErrCommentNotFound
	}
	if c.Status != StatusVisible {
		return time.Time{}, ErrConcurrentModification
	}
	c.BodyMarkdown = md
	c.BodyHTML = html
	c.UpdatedAt = m.clock.Now()
	return c.UpdatedAt, nil
}

func (m *mockCommentRepo) SoftDelete(ctx context.Context, id string, by DeletedBy) error {
	c, ok := m.comments[id]
	if !ok || c.Status.IsDeleted() {
		return ErrCommentNotFound
	}
	now := m.clock.Now()
	c.Status = by.Status()
	c.DeletedAt = &now
	c.UpdatedAt = now
	return nil
}

func (m *mockCommentRepo) Hide(ctx context.Context, id string) error {
	if c, ok := m.comments[id]; ok && c.Status == StatusVisible {
		c.Status = StatusHidden
	}
	return nil
}

func (m *mockCommentRepo) Unhide(ctx context.Context, id string) error {
	if c, ok := m.comments[id]; ok && c.Status == StatusHidden {
		c.Status = StatusVisible
	}
	return nil
}

func (m *mockCommentRepo) CountRecentByUser(ctx context.Context, userID string, window time.Duration) (int, error) {
	return m.countRecent(func(c *Comment) bool { return c.AuthorID == userID }, window)
}

func (m *mockCommentRepo) CountRecentByIPHash(ctx context.Context, ipHash string, window time.Duration) (int, error) {
	return m.countRecent(func(c *Comment) bool { return c.IPHash == ipHash }, window)
}

func (m *mockCommentRepo) countRecent(match func(*Comment) bool, window time.Duration) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	since := m.clock.Now().Add(-window)
	n := 0
	for _, c := range m.comments {
		if match(c) && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockCommentRepo) ListByTarget(ctx context.Context, targetType TargetType, targetID string, limit int, cursor *string, includeHidden bool) ([]*CommentWithAuthor, *string, error) {
	return m.page(limit, cursor, false, func(c *Comment) bool {
		return c.TargetType == targetType && c.TargetID == targetID && (includeHidden || c.Status != StatusHidden)
	})
}

func (m *mockCommentRepo) ListAdmin(ctx context.Context, limit int, cursor *string, filter AdminFilter) ([]*CommentWithAuthor, *string, error) {
	return m.page(limit, cursor, true, func(c *Comment) bool {
		return (filter.TargetType == "" || c.TargetType == filter.TargetType) &&
			(filter.TargetID == "" || c.TargetID == filter.TargetID) &&
			(filter.Status == "" || c.Status == filter.Status)
	})
}

func (m *mockCommentRepo) page(limit int, cursor *string, desc bool, match func(*Comment) bool) ([]*CommentWithAuthor, *string, error) {
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, nil, err
	}

	var rows []*Comment
	for _, c := range m.comments {
		if !match(c) {
			continue
		}
		if cur != nil && ((desc && !cur.Before(c.CreatedAt, c.ID)) || (!desc && !cur.After(c.CreatedAt, c.ID))) {
			continue
		}
		rows = append(rows, c)
	}
	sort.Slice(rows, func(i, j int) bool {
		less := rows[i].CreatedAt.Before(rows[j].CreatedAt) ||
			(rows[i].CreatedAt.Equal(rows[j].CreatedAt) && rows[i].ID < rows[j].ID)
		if desc {
			return !less
		}
		return less
	})

	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		token := EncodeCursor(last.CreatedAt, last.ID)
		next = &token
	}

	out := make([]*CommentWithAuthor, 0, len(rows))
	for _, c := range rows {
		row := &CommentWithAuthor{Comment: *c}
		if u, ok := m.users[c.AuthorID]; ok {
			row.Author = *u
		}
		out = append(out, row)
	}
	return out, next, nil
}

// mockUserRepo is a mock implementation of the users.Repository interface
type mockUserRepo struct {
	users map[string]*users.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*users.User)}
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, users.ErrUserNotFound
}

func (m *mockUserRepo) Upsert(ctx context.Context, user *users.User) error {
	m.users[user.ID] = user
	return nil
}
