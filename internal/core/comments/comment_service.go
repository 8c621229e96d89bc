package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"

	"Tsuki/internal/core/fingerprint"
	"Tsuki/internal/core/markdown"
	"Tsuki/internal/core/users"
)

const (
	// MaxDepth is the deepest reply level; roots are depth 1
	MaxDepth = 3

	// MaxBodyLength is the maximum body length in grapheme clusters, after trimming
	MaxBodyLength = 2000

	// EditWindow bounds how long a non-admin author may edit their comment
	EditWindow = 15 * time.Minute

	DefaultPageLimit = 20
	MaxPageLimit     = 50
)

// Service defines the business logic interface for comment operations.
// Callers are resolved identities; nil means anonymous.
type Service interface {
	// CreateComment validates, rate limits, renders and persists a new comment or reply
	CreateComment(ctx context.Context, caller *users.User, req CreateCommentRequest) (*CommentView, error)

	// EditComment replaces the body of a visible comment
	EditComment(ctx context.Context, caller *users.User, req EditCommentRequest) (*CommentView, error)

	// DeleteComment soft-deletes a comment on behalf of its author or an admin
	DeleteComment(ctx context.Context, caller *users.User, id string) error

	// HideComment and UnhideComment are admin moderation toggles.
	// Authorization is enforced by the caller.
	HideComment(ctx context.Context, id string) error
	UnhideComment(ctx context.Context, id string) error

	// ListPublicComments returns a thread page without hidden comments
	ListPublicComments(ctx context.Context, req ListPublicRequest) (*Page[CommentView], error)

	// ListAdminComments returns the moderation listing, newest first
	ListAdminComments(ctx context.Context, req ListAdminRequest) (*Page[CommentView], error)
}

// Options configures a comment service. Zero values select defaults.
type Options struct {
	Targets   TargetChecker
	Clock     func() time.Time
	NewID     func() string
	Logger    *slog.Logger
	Hasher    fingerprint.Hasher
	RateLimit RateLimitPolicy
}

// commentService implements the Service interface.
// It holds no mutable state; all coordination goes through the repository.
type commentService struct {
	commentRepo Repository
	userRepo    users.Repository
	targets     TargetChecker
	clock       func() time.Time
	newID       func() string
	logger      *slog.Logger
	hasher      fingerprint.Hasher
	rateLimit   RateLimitPolicy
}

// NewCommentService creates a new comment service instance
func NewCommentService(commentRepo Repository, userRepo users.Repository, opts Options) Service {
	s := &commentService{
		commentRepo: commentRepo,
		userRepo:    userRepo,
		targets:     opts.Targets,
		clock:       opts.Clock,
		newID:       opts.NewID,
		logger:      opts.Logger,
		hasher:      opts.Hasher,
		rateLimit:   opts.RateLimit,
	}
	if s.targets == nil {
		s.targets = AllowAllTargets
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.rateLimit == (RateLimitPolicy{}) {
		s.rateLimit = DefaultRateLimitPolicy()
	}
	return s
}

// CreateComment creates a new comment or reply.
// Order: validate, target check, hash, rate limit, parent/depth, render, persist.
// No rejection path writes anything.
func (s *commentService) CreateComment(ctx context.Context, caller *users.User, req CreateCommentRequest) (*CommentView, error) {
	if caller == nil {
		return nil, ErrAuthRequired
	}

	if !req.TargetType.Valid() {
		return nil, NewValidationError("target_type", "INVALID", `target_type must be "post" or "moment"`)
	}
	targetID := strings.TrimSpace(req.TargetID)
	if targetID == "" {
		return nil, NewValidationError("target_id", "REQUIRED", "target_id is required")
	}

	body, err := validateBody(req.BodyMarkdown)
	if err != nil {
		return nil, err
	}

	exists, err := s.targets.TargetExists(ctx, req.TargetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to check comment target: %w", err)
	}
	if !exists {
		return nil, NewError(CodeNotFound, "comment target not found", nil)
	}

	ipHash, uaHash := s.hasher.Pair(req.IP, req.UserAgent)

	if err := s.rateLimit.Check(ctx, s.commentRepo, caller.ID, ipHash); err != nil {
		if CodeOf(err) == CodeRateLimited {
			s.logger.Info("comment rate limited", "author", caller.ID, "ip_hash", ipHash)
		}
		return nil, err
	}

	depth := 1
	var parentID *string
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		id := strings.TrimSpace(*req.ParentID)
		parent, err := s.commentRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrCommentNotFound) {
				return nil, NewError(CodeNotFound, "parent comment not found", map[string]any{"field": "parent_id"})
			}
			return nil, fmt.Errorf("failed to load parent comment: %w", err)
		}
		if parent.TargetType != req.TargetType || parent.TargetID != targetID {
			return nil, NewValidationError("parent_id", "TARGET_MISMATCH", "parent comment target mismatch")
		}
		depth = parent.Depth + 1
		if depth > MaxDepth {
			return nil, NewError(CodeCommentDepthExceeded, "comment depth limit exceeded", map[string]any{
				"max_depth": MaxDepth,
			})
		}
		parentID = &id
	}

	comment := &Comment{
		ID:            s.newID(),
		TargetType:    req.TargetType,
		TargetID:      targetID,
		ParentID:      parentID,
		Depth:         depth,
		AuthorID:      caller.ID,
		BodyMarkdown:  body,
		BodyHTML:      markdown.Render(body),
		Status:        StatusVisible,
		IPHash:        ipHash,
		UserAgentHash: uaHash,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			"error", err,
			"author", caller.ID,
			"target_type", comment.TargetType,
			"target_id", comment.TargetID)
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.logger.Info("comment created",
		"comment_id", comment.ID,
		"author", caller.ID,
		"target_type", comment.TargetType,
		"target_id", comment.TargetID,
		"depth", comment.Depth)

	view := ToView(comment, caller)
	return &view, nil
}

// EditComment updates an existing comment's body
func (s *commentService) EditComment(ctx context.Context, caller *users.User, req EditCommentRequest) (*CommentView, error) {
	if caller == nil {
		return nil, ErrAuthRequired
	}

	body, err := validateBody(req.BodyMarkdown)
	if err != nil {
		return nil, err
	}

	comment, err := s.getComment(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	isAuthor := comment.AuthorID == caller.ID
	isAdmin := caller.IsAdmin()
	if !isAuthor && !isAdmin {
		return nil, NewError(CodeForbidden, "you can only edit your own comments", nil)
	}

	if comment.Status != StatusVisible {
		return nil, NewError(CodeForbidden, "cannot edit a non-visible comment", nil)
	}

	if isAuthor && !isAdmin && s.clock().Sub(comment.CreatedAt) > EditWindow {
		return nil, NewError(CodeForbidden, "edit window has expired (15 minutes)", map[string]any{
			"window_minutes": int(EditWindow / time.Minute),
		})
	}

	html := markdown.Render(body)
	updatedAt, err := s.commentRepo.Update(ctx, comment.ID, body, html)
	if err != nil {
		switch {
		case errors.Is(err, ErrConcurrentModification):
			return nil, NewError(CodeForbidden, "cannot edit a non-visible comment", nil)
		case errors.Is(err, ErrCommentNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	comment.BodyMarkdown = body
	comment.BodyHTML = html
	comment.UpdatedAt = updatedAt

	author := caller
	if !isAuthor {
		author, err = s.loadAuthor(ctx, comment.AuthorID)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("comment edited",
		"comment_id", comment.ID,
		"actor", caller.ID,
		"admin", isAdmin && !isAuthor)

	view := ToView(comment, author)
	return &view, nil
}

// DeleteComment soft-deletes a comment. A second delete is NOT_FOUND rather than a silent success.
func (s *commentService) DeleteComment(ctx context.Context, caller *users.User, id string) error {
	if caller == nil {
		return ErrAuthRequired
	}

	comment, err := s.getComment(ctx, id)
	if err != nil {
		return err
	}

	isAuthor := comment.AuthorID == caller.ID
	isAdmin := caller.IsAdmin()
	if !isAuthor && !isAdmin {
		return NewError(CodeForbidden, "you can only delete your own comments", nil)
	}

	if comment.Status.IsDeleted() {
		return NewError(CodeNotFound, "comment already deleted", nil)
	}

	by := DeletedByUser
	if isAdmin {
		by = DeletedByAdmin
	}
	if !CanTransition(comment.Status, by.Status()) {
		return NewError(CodeForbidden, "cannot delete a hidden comment", nil)
	}

	if err := s.commentRepo.SoftDelete(ctx, comment.ID, by); err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return NewError(CodeNotFound, "comment already deleted", nil)
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.logger.Info("comment deleted",
		"comment_id", comment.ID,
		"actor", caller.ID,
		"deleted_by", by)
	return nil
}

// HideComment hides a visible comment. Hidden or deleted comments are left as they are.
func (s *commentService) HideComment(ctx context.Context, id string) error {
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.commentRepo.Hide(ctx, comment.ID); err != nil {
		return fmt.Errorf("failed to hide comment: %w", err)
	}
	s.logger.Info("comment hidden", "comment_id", comment.ID, "previous_status", comment.Status)
	return nil
}

// UnhideComment restores a hidden comment. Unhiding anything else is a no-op and
// never resurrects a deleted comment.
func (s *commentService) UnhideComment(ctx context.Context, id string) error {
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.commentRepo.Unhide(ctx, comment.ID); err != nil {
		return fmt.Errorf("failed to unhide comment: %w", err)
	}
	s.logger.Info("comment unhidden", "comment_id", comment.ID, "previous_status", comment.Status)
	return nil
}

// ListPublicComments returns one page of a thread in reading order
func (s *commentService) ListPublicComments(ctx context.Context, req ListPublicRequest) (*Page[CommentView], error) {
	if !req.TargetType.Valid() {
		return nil, NewValidationError("target_type", "INVALID", `target_type must be "post" or "moment"`)
	}
	if strings.TrimSpace(req.TargetID) == "" {
		return nil, NewValidationError("target_id", "REQUIRED", "target_id is required")
	}

	rows, next, err := s.commentRepo.ListByTarget(ctx, req.TargetType, req.TargetID, ClampLimit(req.Limit), req.Cursor, false)
	if err != nil {
		if CodeOf(err) == CodeValidationFailed {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return toPage(rows, next), nil
}

// ListAdminComments returns the moderation listing including hidden and deleted rows
func (s *commentService) ListAdminComments(ctx context.Context, req ListAdminRequest) (*Page[CommentView], error) {
	if req.Filter.TargetType != "" && !req.Filter.TargetType.Valid() {
		return nil, NewValidationError("target_type", "INVALID", `target_type must be "post" or "moment"`)
	}
	if req.Filter.Status != "" && !req.Filter.Status.Valid() {
		return nil, NewValidationError("status", "INVALID", "unknown comment status")
	}

	rows, next, err := s.commentRepo.ListAdmin(ctx, ClampLimit(req.Limit), req.Cursor, req.Filter)
	if err != nil {
		if CodeOf(err) == CodeValidationFailed {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list admin comments: %w", err)
	}
	return toPage(rows, next), nil
}

// ClampLimit applies the page size default and bounds
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	}
	return limit
}

func (s *commentService) getComment(ctx context.Context, id string) (*Comment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	return comment, nil
}

func (s *commentService) loadAuthor(ctx context.Context, id string) (*users.User, error) {
	author, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			// Author row gone; keep the id so the view still identifies them
			return &users.User{ID: id}, nil
		}
		return nil, fmt.Errorf("failed to load comment author: %w", err)
	}
	return author, nil
}

// validateBody trims the body and checks 1..MaxBodyLength grapheme clusters
func validateBody(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	n := uniseg.GraphemeClusterCount(body)
	if n < 1 || n > MaxBodyLength {
		return "", NewError(CodeValidationFailed, fmt.Sprintf("comment body must be 1-%d characters", MaxBodyLength), map[string]any{
			"field":  "body_markdown",
			"reason": "LENGTH",
		})
	}
	return body, nil
}
