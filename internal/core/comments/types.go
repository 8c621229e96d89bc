package comments

// CreateCommentRequest contains parameters for creating a comment.
// IP and UserAgent are raw transport values; only their salted digests are persisted.
type CreateCommentRequest struct {
	ParentID     *string    `json:"parent_id,omitempty"`
	TargetType   TargetType `json:"target_type"`
	TargetID     string     `json:"target_id"`
	BodyMarkdown string     `json:"body_markdown"`
	IP           string     `json:"-"`
	UserAgent    string     `json:"-"`
}

// EditCommentRequest contains parameters for editing a comment body
type EditCommentRequest struct {
	ID           string `json:"-"`
	BodyMarkdown string `json:"body_markdown"`
}

// ListPublicRequest defines the parameters for reading a thread
type ListPublicRequest struct {
	Cursor     *string
	TargetType TargetType
	TargetID   string
	Limit      int
}

// ListAdminRequest defines the parameters for the moderation listing
type ListAdminRequest struct {
	Cursor *string
	Filter AdminFilter
	Limit  int
}
