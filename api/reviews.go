package api

import (
	"context"
	"net/http"
	"time"
)

// Review is a user's rating and writeup for a book.
type Review struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"bookId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ReviewRequest is the payload for creating or updating a review.
type ReviewRequest struct {
	BookID  int64  `json:"bookId"`
	Rating  int    `json:"rating"`
	Content string `json:"content,omitempty"`
}

// ListBookReviews returns a page of a book's reviews.
func (c *Client) ListBookReviews(ctx context.Context, bookID int64, opts *PageOptions) (*Page[Review], error) {
	out := &Page[Review]{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/books/%d/reviews", bookID), opts, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUserReviews returns a page of a user's reviews.
func (c *Client) ListUserReviews(ctx context.Context, userID int64, opts *PageOptions) (*Page[Review], error) {
	out := &Page[Review]{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/users/%d/reviews", userID), opts, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyReviewForBook returns the calling user's review of a book, or nil if
// they have not reviewed it.
func (c *Client) MyReviewForBook(ctx context.Context, bookID int64) (*Review, error) {
	out := &Review{}
	err := c.do(ctx, http.MethodGet, c.resourceURL("/books/%d/my-review", bookID), nil, nil, out)
	if NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetReview returns a single review.
func (c *Client) GetReview(ctx context.Context, id int64) (*Review, error) {
	out := &Review{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/reviews/%d", id), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateReview posts a new review.
func (c *Client) CreateReview(ctx context.Context, req *ReviewRequest) (*Review, error) {
	out := &Review{}
	if err := c.do(ctx, http.MethodPost, c.resourceURL("/reviews"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReview replaces an existing review.
func (c *Client) UpdateReview(ctx context.Context, id int64, req *ReviewRequest) (*Review, error) {
	out := &Review{}
	if err := c.do(ctx, http.MethodPut, c.resourceURL("/reviews/%d", id), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.resourceURL("/reviews/%d", id), nil, nil, nil)
}
