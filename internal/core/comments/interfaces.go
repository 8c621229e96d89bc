package comments

import (
	"context"
	"time"
)

// Repository defines the data access interface for comments.
// Implementations must be safe for concurrent use.
type Repository interface {
	// ListByTarget returns a page of a thread in ascending (created_at, id) order.
	// The cursor is a strict lower bound, so pages never repeat rows under concurrent inserts.
	// Hidden rows are excluded unless includeHidden is set; deleted rows are always returned.
	ListByTarget(ctx context.Context, targetType TargetType, targetID string, limit int, cursor *string, includeHidden bool) ([]*CommentWithAuthor, *string, error)

	// ListAdmin returns a page across all targets in descending (created_at, id) order
	ListAdmin(ctx context.Context, limit int, cursor *string, filter AdminFilter) ([]*CommentWithAuthor, *string, error)

	// GetByID returns ErrCommentNotFound when no row exists
	GetByID(ctx context.Context, id string) (*Comment, error)

	// Create persists a new comment. The store assigns CreatedAt and UpdatedAt
	// on the passed struct; they are strictly increasing per store.
	Create(ctx context.Context, comment *Comment) error

	// Update replaces the body of a visible comment and returns the new updated_at.
	// Returns ErrConcurrentModification when the row is no longer visible.
	Update(ctx context.Context, id, markdown, html string) (time.Time, error)

	// SoftDelete moves a non-deleted comment to the actor's terminal status.
	// Returns ErrCommentNotFound when the row is missing or already deleted.
	SoftDelete(ctx context.Context, id string, by DeletedBy) error

	// Hide moves a visible comment to hidden; other states are left untouched
	Hide(ctx context.Context, id string) error

	// Unhide moves a hidden comment to visible; other states are left untouched
	Unhide(ctx context.Context, id string) error

	// CountRecentByUser counts comments authored within the trailing window
	CountRecentByUser(ctx context.Context, userID string, window time.Duration) (int, error)

	// CountRecentByIPHash counts comments from a hashed IP within the trailing window
	CountRecentByIPHash(ctx context.Context, ipHash string, window time.Duration) (int, error)
}

// TargetChecker verifies that a commentable resource exists and is published
type TargetChecker interface {
	TargetExists(ctx context.Context, targetType TargetType, targetID string) (bool, error)
}

// TargetCheckerFunc adapts a function to TargetChecker
type TargetCheckerFunc func(ctx context.Context, targetType TargetType, targetID string) (bool, error)

func (f TargetCheckerFunc) TargetExists(ctx context.Context, targetType TargetType, targetID string) (bool, error) {
	return f(ctx, targetType, targetID)
}

// AllowAllTargets accepts every target. Posts and moments are published as static
// content outside this service, so there is nothing to check against yet.
var AllowAllTargets TargetChecker = TargetCheckerFunc(func(context.Context, TargetType, string) (bool, error) {
	return true, nil
})
