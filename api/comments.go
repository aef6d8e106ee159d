package api

import (
	"context"
	"net/http"
	"time"
)

// Comment is a discussion entry on a book. Comments nest: a reply carries
// the ID of its parent.
type Comment struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"bookId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Content   string    `json:"content"`
	ParentID  *int64    `json:"parentId,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// CommentRequest is the payload for creating or updating a comment.
// ParentID, when set, makes the comment a reply.
type CommentRequest struct {
	BookID   int64  `json:"bookId"`
	Content  string `json:"content"`
	ParentID *int64 `json:"parentId,omitempty"`
}

// ListBookComments returns a page of a book's top-level comments.
func (c *Client) ListBookComments(ctx context.Context, bookID int64, opts *PageOptions) (*Page[Comment], error) {
	out := &Page[Comment]{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/books/%d/comments", bookID), opts, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCommentReplies returns the replies to a comment.
func (c *Client) ListCommentReplies(ctx context.Context, commentID int64) ([]Comment, error) {
	var out []Comment
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/comments/%d/replies", commentID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetComment returns a single comment.
func (c *Client) GetComment(ctx context.Context, id int64) (*Comment, error) {
	out := &Comment{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/comments/%d", id), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateComment posts a comment or reply.
func (c *Client) CreateComment(ctx context.Context, req *CommentRequest) (*Comment, error) {
	out := &Comment{}
	if err := c.do(ctx, http.MethodPost, c.resourceURL("/comments"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateComment replaces a comment's content.
func (c *Client) UpdateComment(ctx context.Context, id int64, req *CommentRequest) (*Comment, error) {
	out := &Comment{}
	if err := c.do(ctx, http.MethodPut, c.resourceURL("/comments/%d", id), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteComment removes a comment (soft delete server-side, so replies
// stay attached).
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.resourceURL("/comments/%d", id), nil, nil, nil)
}
