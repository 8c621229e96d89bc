package comments

import (
	"Tsuki/internal/core/users"
)

// CommentView is the API projection of a comment.
// For deleted comments BodyMarkdown and BodyHTML are always empty.
type CommentView struct {
	ParentID     *string        `json:"parent_id"`
	Author       users.View     `json:"author"`
	CreatedAt    users.TimeView `json:"created_at"`
	UpdatedAt    users.TimeView `json:"updated_at"`
	ID           string         `json:"id"`
	TargetType   TargetType     `json:"target_type"`
	TargetID     string         `json:"target_id"`
	BodyMarkdown string         `json:"body_markdown"`
	BodyHTML     string         `json:"body_html"`
	Status       Status         `json:"status"`
	Depth        int            `json:"depth"`
}

// Page is a cursor-paginated result; NextCursor is nil when exhausted
type Page[T any] struct {
	NextCursor *string `json:"next_cursor"`
	Items      []T     `json:"items"`
}

// ToView projects a comment and its author. Deleted bodies are scrubbed here,
// the single point where stored content crosses into responses.
func ToView(c *Comment, author *users.User) CommentView {
	view := CommentView{
		ID:           c.ID,
		TargetType:   c.TargetType,
		TargetID:     c.TargetID,
		ParentID:     c.ParentID,
		Depth:        c.Depth,
		Author:       users.ToView(author),
		BodyMarkdown: c.BodyMarkdown,
		BodyHTML:     c.BodyHTML,
		Status:       c.Status,
		CreatedAt:    users.NewTimeView(c.CreatedAt),
		UpdatedAt:    users.NewTimeView(c.UpdatedAt),
	}
	if c.Status.IsDeleted() {
		view.BodyMarkdown = ""
		view.BodyHTML = ""
	}
	return view
}

func toPage(rows []*CommentWithAuthor, next *string) *Page[CommentView] {
	items := make([]CommentView, 0, len(rows))
	for _, row := range rows {
		author := row.Author
		if author.ID == "" {
			author.ID = row.AuthorID
		}
		items = append(items, ToView(&row.Comment, &author))
	}
	return &Page[CommentView]{Items: items, NextCursor: next}
}
