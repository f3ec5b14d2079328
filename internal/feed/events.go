package feed

import "time"

// Event types broadcast to feed subscribers.
const (
	ReviewCreated  = "review.created"
	ReviewUpdated  = "review.updated"
	ReviewDeleted  = "review.deleted"
	CommentCreated = "comment.created"
	CommentUpdated = "comment.updated"
	CommentDeleted = "comment.deleted"
)

type Event struct {
	Type      string    `json:"type"`
	TitleID   int64     `json:"title_id"`
	ReviewID  int64     `json:"review_id"`
	CommentID int64     `json:"comment_id,omitempty"`
	Author    string    `json:"author"`
	At        time.Time `json:"at"`
}
