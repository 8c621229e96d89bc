package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"Tsuki/internal/core/comments"
	"Tsuki/internal/core/users"
	"Tsuki/internal/db/clock"
)

type postgresCommentRepo struct {
	db    *sql.DB
	clock *clock.Monotonic
}

// NewCommentRepository creates a new SQL comment repository.
// The SQL is portable between PostgreSQL (lib/pq) and SQLite (go-sqlite3): placeholders are
// numbered in order of first appearance and timestamps are BIGINT unix microseconds.
func NewCommentRepository(db *sql.DB, clk *clock.Monotonic) comments.Repository {
	if clk == nil {
		clk = clock.New(nil)
	}
	return &postgresCommentRepo{db: db, clock: clk}
}

const commentWithAuthorColumns = `
	c.id, c.target_type, c.target_id, c.parent_id, c.depth,
	c.author_user_id, c.body_markdown, c.body_html, c.status,
	c.created_at, c.updated_at, c.deleted_at, c.ip_hash, c.user_agent_hash,
	COALESCE(u.github_id, 0), COALESCE(u.login, ''), COALESCE(u.avatar_url, ''),
	COALESCE(u.profile_url, ''), COALESCE(u.role, 'user'), COALESCE(u.created_at, 0)`

const commentColumns = `
	id, target_type, target_id, parent_id, depth,
	author_user_id, body_markdown, body_html, status,
	created_at, updated_at, deleted_at, ip_hash, user_agent_hash`

// Create inserts a new comment; created_at and updated_at come from the store clock
func (r *postgresCommentRepo) Create(ctx context.Context, comment *comments.Comment) error {
	now := r.clock.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	if comment.Status == "" {
		comment.Status = comments.StatusVisible
	}

	query := `
		INSERT INTO comments (
			id, target_type, target_id, parent_id, depth,
			author_user_id, body_markdown, body_html, status,
			created_at, updated_at, deleted_at, ip_hash, user_agent_hash
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, NULL, $12, $13
		)`

	_, err := r.db.ExecContext(ctx, query,
		comment.ID, string(comment.TargetType), comment.TargetID, nullString(comment.ParentID), comment.Depth,
		comment.AuthorID, comment.BodyMarkdown, comment.BodyHTML, string(comment.Status),
		now.UnixMicro(), now.UnixMicro(), comment.IPHash, comment.UserAgentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment by id
func (r *postgresCommentRepo) GetByID(ctx context.Context, id string) (*comments.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, comments.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

// Update replaces the body of a visible comment
func (r *postgresCommentRepo) Update(ctx context.Context, id, markdown, html string) (time.Time, error) {
	now := r.clock.Now()
	query := `
		UPDATE comments
		SET body_markdown = $1, body_html = $2, updated_at = $3
		WHERE id = $4 AND status = 'visible'`

	res, err := r.db.ExecContext(ctx, query, markdown, html, now.UnixMicro(), id)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update comment: %w", err)
	}

	if err := r.requireRow(ctx, res, id, comments.ErrConcurrentModification); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// SoftDelete sets the terminal status and deleted_at of a non-deleted comment
func (r *postgresCommentRepo) SoftDelete(ctx context.Context, id string, by comments.DeletedBy) error {
	now := r.clock.Now().UnixMicro()
	query := `
		UPDATE comments
		SET status = $1, deleted_at = $2, updated_at = $2
		WHERE id = $3 AND status NOT IN ('deleted_by_user', 'deleted_by_admin')`

	res, err := r.db.ExecContext(ctx, query, string(by.Status()), now, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete comment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return comments.ErrCommentNotFound
	}
	return nil
}

// Hide moves a visible comment to hidden
func (r *postgresCommentRepo) Hide(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, comments.StatusVisible, comments.StatusHidden)
}

// Unhide moves a hidden comment back to visible
func (r *postgresCommentRepo) Unhide(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, comments.StatusHidden, comments.StatusVisible)
}

// setStatus is a conditional transition; a row in any other state is left alone
func (r *postgresCommentRepo) setStatus(ctx context.Context, id string, from, to comments.Status) error {
	query := `UPDATE comments SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	if _, err := r.db.ExecContext(ctx, query, string(to), r.clock.Now().UnixMicro(), id, string(from)); err != nil {
		return fmt.Errorf("failed to set comment status to %s: %w", to, err)
	}
	return nil
}

// CountRecentByUser counts comments authored within the trailing window
func (r *postgresCommentRepo) CountRecentByUser(ctx context.Context, userID string, window time.Duration) (int, error) {
	return r.countSince(ctx, "author_user_id", userID, window)
}

// CountRecentByIPHash counts comments from a hashed IP within the trailing window
func (r *postgresCommentRepo) CountRecentByIPHash(ctx context.Context, ipHash string, window time.Duration) (int, error) {
	return r.countSince(ctx, "ip_hash", ipHash, window)
}

func (r *postgresCommentRepo) countSince(ctx context.Context, column, value string, window time.Duration) (int, error) {
	since := r.clock.Wall().Add(-window).UnixMicro()
	// column is one of two constants above, never caller input
	query := `SELECT COUNT(*) FROM comments WHERE ` + column + ` = $1 AND created_at > $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, value, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recent comments: %w", err)
	}
	return count, nil
}

// ListByTarget returns a thread page in ascending (created_at, id) order
func (r *postgresCommentRepo) ListByTarget(
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

	q := newQueryBuilder()
	q.where("c.target_type = " + q.arg(string(targetType)))
	q.where("c.target_id = " + q.arg(targetID))
	if !includeHidden {
		q.where("c.status <> 'hidden'")
	}
	if cur != nil {
		ts, id := q.arg(cur.CreatedAt), q.arg(cur.ID)
		q.where(fmt.Sprintf("(c.created_at > %s OR (c.created_at = %s AND c.id > %s))", ts, ts, id))
	}

	query := `SELECT ` + commentWithAuthorColumns + `
		FROM comments c
		LEFT JOIN users u ON u.id = c.author_user_id
		` + q.whereClause() + `
		ORDER BY c.created_at ASC, c.id ASC
		LIMIT ` + q.arg(limit+1)

	return r.queryPage(ctx, query, q.args, limit)
}

// ListAdmin returns a moderation page in descending (created_at, id) order
func (r *postgresCommentRepo) ListAdmin(
	ctx context.Context,
	limit int,
	cursor *string,
	filter comments.AdminFilter,
) ([]*comments.CommentWithAuthor, *string, error) {
	cur, err := comments.DecodeCursor(cursor)
	if err != nil {
		return nil, nil, err
	}

	q := newQueryBuilder()
	if filter.TargetType != "" {
		q.where("c.target_type = " + q.arg(string(filter.TargetType)))
	}
	if filter.TargetID != "" {
		q.where("c.target_id = " + q.arg(filter.TargetID))
	}
	if filter.Status != "" {
		q.where("c.status = " + q.arg(string(filter.Status)))
	}
	if cur != nil {
		ts, id := q.arg(cur.CreatedAt), q.arg(cur.ID)
		q.where(fmt.Sprintf("(c.created_at < %s OR (c.created_at = %s AND c.id < %s))", ts, ts, id))
	}

	query := `SELECT ` + commentWithAuthorColumns + `
		FROM comments c
		LEFT JOIN users u ON u.id = c.author_user_id
		` + q.whereClause() + `
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ` + q.arg(limit+1)

	return r.queryPage(ctx, query, q.args, limit)
}

// queryPage runs a limit+1 query and derives next_cursor from the extra row
func (r *postgresCommentRepo) queryPage(ctx context.Context, query string, args []interface{}, limit int) ([]*comments.CommentWithAuthor, *string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	result := make([]*comments.CommentWithAuthor, 0, limit+1)
	for rows.Next() {
		row, err := scanCommentWithAuthor(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating comments: %w", err)
	}

	var next *string
	if len(result) > limit {
		result = result[:limit]
		last := result[len(result)-1]
		cursor := comments.EncodeCursor(last.CreatedAt, last.ID)
		next = &cursor
	}
	return result, next, nil
}

// requireRow distinguishes "row missing" from "row in the wrong state" after a conditional update
func (r *postgresCommentRepo) requireRow(ctx context.Context, res sql.Result, id string, conflict error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM comments WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return comments.ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check comment existence: %w", err)
	}
	return conflict
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(s rowScanner) (*comments.Comment, error) {
	var (
		c                    comments.Comment
		targetType, status   string
		parentID             sql.NullString
		createdAt, updatedAt int64
		deletedAt            sql.NullInt64
	)
	err := s.Scan(
		&c.ID, &targetType, &c.TargetID, &parentID, &c.Depth,
		&c.AuthorID, &c.BodyMarkdown, &c.BodyHTML, &status,
		&createdAt, &updatedAt, &deletedAt, &c.IPHash, &c.UserAgentHash,
	)
	if err != nil {
		return nil, err
	}
	fillComment(&c, targetType, status, parentID, createdAt, updatedAt, deletedAt)
	return &c, nil
}

func scanCommentWithAuthor(s rowScanner) (*comments.CommentWithAuthor, error) {
	var (
		row                  comments.CommentWithAuthor
		targetType, status   string
		role                 string
		parentID             sql.NullString
		createdAt, updatedAt int64
		authorCreatedAt      int64
		deletedAt            sql.NullInt64
	)
	err := s.Scan(
		&row.ID, &targetType, &row.TargetID, &parentID, &row.Depth,
		&row.AuthorID, &row.BodyMarkdown, &row.BodyHTML, &status,
		&createdAt, &updatedAt, &deletedAt, &row.IPHash, &row.UserAgentHash,
		&row.Author.GitHubID, &row.Author.Login, &row.Author.AvatarURL,
		&row.Author.ProfileURL, &role, &authorCreatedAt,
	)
	if err != nil {
		return nil, err
	}
	fillComment(&row.Comment, targetType, status, parentID, createdAt, updatedAt, deletedAt)
	row.Author.ID = row.AuthorID
	row.Author.Role = users.Role(role)
	row.Author.CreatedAt = fromMicros(authorCreatedAt)
	return &row, nil
}

func fillComment(c *comments.Comment, targetType, status string, parentID sql.NullString, createdAt, updatedAt int64, deletedAt sql.NullInt64) {
	c.TargetType = comments.TargetType(targetType)
	c.Status = comments.Status(status)
	if parentID.Valid {
		p := parentID.String
		c.ParentID = &p
	}
	c.CreatedAt = fromMicros(createdAt)
	c.UpdatedAt = fromMicros(updatedAt)
	if deletedAt.Valid {
		d := fromMicros(deletedAt.Int64)
		c.DeletedAt = &d
	}
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// queryBuilder numbers placeholders in order of first use, which both lib/pq and
// go-sqlite3 bind positionally
type queryBuilder struct {
	conditions []string
	args       []interface{}
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

func (q *queryBuilder) arg(v interface{}) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *queryBuilder) where(cond string) {
	q.conditions = append(q.conditions, cond)
}

func (q *queryBuilder) whereClause() string {
	if len(q.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(q.conditions, " AND ")
}
