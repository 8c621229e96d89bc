package comments

import (
	"time"

	"Tsuki/internal/core/users"
)

// TargetType identifies the kind of resource a thread is attached to
type TargetType string

const (
	TargetPost   TargetType = "post"
	TargetMoment TargetType = "moment"
)

// Valid reports whether t is a commentable resource kind
func (t TargetType) Valid() bool {
	return t == TargetPost || t == TargetMoment
}

// Status is the moderation state of a comment
type Status string

const (
	StatusVisible        Status = "visible"
	StatusHidden         Status = "hidden"
	StatusDeletedByUser  Status = "deleted_by_user"
	StatusDeletedByAdmin Status = "deleted_by_admin"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusVisible, StatusHidden, StatusDeletedByUser, StatusDeletedByAdmin:
		return true
	}
	return false
}

// IsDeleted reports whether s is one of the terminal deleted states
func (s Status) IsDeleted() bool {
	return s == StatusDeletedByUser || s == StatusDeletedByAdmin
}

// DeletedBy is the actor kind recorded on a soft delete
type DeletedBy string

const (
	DeletedByUser  DeletedBy = "user"
	DeletedByAdmin DeletedBy = "admin"
)

// Status returns the terminal status a soft delete by this actor produces
func (d DeletedBy) Status() Status {
	if d == DeletedByAdmin {
		return StatusDeletedByAdmin
	}
	return StatusDeletedByUser
}

// CanTransition reports whether the state machine allows from -> to.
// visible <-> hidden, visible -> deleted_*, hidden -> deleted_by_admin.
// Nothing leaves a deleted state.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusVisible:
		return to == StatusHidden || to == StatusDeletedByUser || to == StatusDeletedByAdmin
	case StatusHidden:
		return to == StatusVisible || to == StatusDeletedByAdmin
	}
	return false
}

// Comment is a persisted comment row.
// BodyMarkdown and BodyHTML are retained for deleted rows but never leave the
// package boundary; see ToView.
type Comment struct {
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at"`
	ParentID      *string    `db:"parent_id"`
	ID            string     `db:"id"`
	TargetType    TargetType `db:"target_type"`
	TargetID      string     `db:"target_id"`
	AuthorID      string     `db:"author_user_id"`
	BodyMarkdown  string     `db:"body_markdown"`
	BodyHTML      string     `db:"body_html"`
	Status        Status     `db:"status"`
	IPHash        string     `db:"ip_hash"`
	UserAgentHash string     `db:"user_agent_hash"`
	Depth         int        `db:"depth"`
}

// CommentWithAuthor is a list row joined with its author
type CommentWithAuthor struct {
	Comment
	Author users.User
}

// AdminFilter narrows the moderation listing; zero values mean "any"
type AdminFilter struct {
	TargetType TargetType
	TargetID   string
	Status     Status
}
