// Package memory provides map-backed implementations of the repository ports for
// local development and tests. All repositories are safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"Tsuki/internal/core/comments"
	"Tsuki/internal/core/users"
	"Tsuki/internal/db/clock"
)

type commentRepo struct {
	comments map[string]*comments.Comment
	users    *UserRepository
	clock    *clock.Monotonic
	mu       sync.RWMutex
}

// NewCommentRepository creates an in-memory comment repository.
// Authors are joined from userRepo at list time; nil means no author data.
func NewCommentRepository(userRepo *UserRepository, clk *clock.Monotonic) comments.Repository {
	if clk == nil {
		clk = clock.New(nil)
	}
	return &commentRepo{
		comments: make(map[string]*comments.Comment),
		users:    userRepo,
		clock:    clk,
	}
}

func (r *commentRepo) Create(ctx context.Context, comment *comments.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.comments[comment.ID]; exists {
		return fmt.Errorf("failed to insert comment: duplicate id %s", comment.ID)
	}

	now := r.clock.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	if comment.Status == "" {
		comment.Status = comments.StatusVisible
	}
	r.comments[comment.ID] = cloneComment(comment)
	return nil
}

func (r *commentRepo) GetByID(ctx context.Context, id string) (*comments.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.comments[id]
	if !ok {
		return nil, comments.ErrCommentNotFound
	}
	return cloneComment(c), nil
}

func (r *commentRepo) Update(ctx context.Context, id, markdown, html string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok {
		return time.Time{}, comments.ErrCommentNotFound
	}
	if c.Status != comments.StatusVisible {
		return time.Time{}, comments.ErrConcurrentModification
	}
	c.BodyMarkdown = markdown
	c.BodyHTML = html
	c.UpdatedAt = r.clock.Now()
	return c.UpdatedAt, nil
}

func (r *commentRepo) SoftDelete(ctx context.Context, id string, by comments.DeletedBy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok || c.Status.IsDeleted() {
		return comments.ErrCommentNotFound
	}
	now := r.clock.Now()
	c.Status = by.Status()
	c.DeletedAt = &now
	c.UpdatedAt = now
	return nil
}

func (r *commentRepo) Hide(ctx context.Context, id string) error {
	r.transition(id, comments.StatusVisible, comments.StatusHidden)
	return nil
}

func (r *commentRepo) Unhide(ctx context.Context, id string) error {
	r.transition(id, comments.StatusHidden, comments.StatusVisible)
	return nil
}

func (r *commentRepo) transition(id string, from, to comments.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.comments[id]; ok && c.Status == from {
		c.Status = to
		c.UpdatedAt = r.clock.Now()
	}
}

func (r *commentRepo) CountRecentByUser(ctx context.Context, userID string, window time.Duration) (int, error) {
	return r.countSince(window, func(c *comments.Comment) bool { return c.AuthorID == userID }), nil
}

func (r *commentRepo) CountRecentByIPHash(ctx context.Context, ipHash string, window time.Duration) (int, error) {
	return r.countSince(window, func(c *comments.Comment) bool { return c.IPHash == ipHash }), nil
}

func (r *commentRepo) countSince(window time.Duration, match func(*comments.Comment) bool) int {
	since := r.clock.Wall().Add(-window)

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.comments {
		if match(c) && c.CreatedAt.After(since) {
			n++
		}
	}
	return n
}

func (r *commentRepo) ListByTarget(
	ctx context.Context,
	targetType comments.TargetType,
	targetID string,
	limit int,
	cursor *string,
	includeHidden bool,
) ([]*comments.CommentWithAuthor, *string, error) {
	cur, err := comments.DecodeCursor(cursor)
	if err != nil {
		return nil, nil, err
	}

	rows, next := r.page(limit, false, func(c *comments.Comment) bool {
		if c.TargetType != targetType || c.TargetID != targetID {
			return false
		}
		if !includeHidden && c.Status == comments.StatusHidden {
			return false
		}
		return cur == nil || cur.After(c.CreatedAt, c.ID)
	})
	return rows, next, nil
}

func (r *commentRepo) ListAdmin(
	ctx context.Context,
	limit int,
	cursor *string,
	filter comments.AdminFilter,
) ([]*comments.CommentWithAuthor, *string, error) {
	cur, err := comments.DecodeCursor(cursor)
	if err != nil {
		return nil, nil, err
	}

	rows, next := r.page(limit, true, func(c *comments.Comment) bool {
		if filter.TargetType != "" && c.TargetType != filter.TargetType {
			return false
		}
		if filter.TargetID != "" && c.TargetID != filter.TargetID {
			return false
		}
		if filter.Status != "" && c.Status != filter.Status {
			return false
		}
		return cur == nil || cur.Before(c.CreatedAt, c.ID)
	})
	return rows, next, nil
}

// page selects matching rows under one read lock, orders them by (created_at, id)
// and cuts the page, returning the cursor of the last row when more remain
func (r *commentRepo) page(limit int, desc bool, match func(*comments.Comment) bool) ([]*comments.CommentWithAuthor, *string) {
	r.mu.RLock()
	selected := make([]*comments.Comment, 0)
	for _, c := range r.comments {
		if match(c) {
			selected = append(selected, cloneComment(c))
		}
	}
	r.mu.RUnlock()

	sort.Slice(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		less := a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID < b.ID)
		if desc {
			return !less
		}
		return less
	})

	var next *string
	if len(selected) > limit {
		selected = selected[:limit]
		last := selected[len(selected)-1]
		cursor := comments.EncodeCursor(last.CreatedAt, last.ID)
		next = &cursor
	}

	rows := make([]*comments.CommentWithAuthor, 0, len(selected))
	for _, c := range selected {
		row := &comments.CommentWithAuthor{Comment: *c}
		row.Author.ID = c.AuthorID
		row.Author.Role = users.RoleUser
		if r.users != nil {
			if u, ok := r.users.lookup(c.AuthorID); ok {
				row.Author = u
			}
		}
		rows = append(rows, row)
	}
	return rows, next
}

func cloneComment(c *comments.Comment) *comments.Comment {
	copied := *c
	if c.ParentID != nil {
		p := *c.ParentID
		copied.ParentID = &p
	}
	if c.DeletedAt != nil {
		d := *c.DeletedAt
		copied.DeletedAt = &d
	}
	return &copied
}
