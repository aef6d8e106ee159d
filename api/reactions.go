package api

import (
	"context"
	"net/http"
)

// ReactableType names what a reaction is attached to.
type ReactableType string

const (
	ReactableReview  ReactableType = "REVIEW"
	ReactableComment ReactableType = "COMMENT"
)

// Reaction is a user's like/dislike on a review or comment.
type Reaction struct {
	ID            int64         `json:"id"`
	ReactableType ReactableType `json:"reactableType"`
	ReactableID   int64         `json:"reactableId"`
	UserID        int64         `json:"userId"`
	Type          string        `json:"type"`
}

// ReactionRequest toggles a reaction: reacting with the type the user
// already has removes it, any other type replaces it.
type ReactionRequest struct {
	ReactableType ReactableType `json:"reactableType"`
	ReactableID   int64         `json:"reactableId"`
	Type          string        `json:"type"`
}

// ReactionSummary is the aggregate for one reactable.
type ReactionSummary struct {
	ReactableType ReactableType `json:"reactableType"`
	ReactableID   int64         `json:"reactableId"`
	LikeCount     int64         `json:"likeCount"`
	DislikeCount  int64         `json:"dislikeCount"`
}

// ToggleReaction applies a reaction toggle and returns the new summary.
func (c *Client) ToggleReaction(ctx context.Context, req *ReactionRequest) (*ReactionSummary, error) {
	out := &ReactionSummary{}
	if err := c.do(ctx, http.MethodPost, c.resourceURL("/reactions"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReactionSummary returns the aggregate reactions for one reactable.
func (c *Client) GetReactionSummary(ctx context.Context, rt ReactableType, id int64) (*ReactionSummary, error) {
	out := &ReactionSummary{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/reactions/%s/%d", rt, id), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyReaction returns the calling user's reaction to a reactable, or nil if
// they have none.
func (c *Client) MyReaction(ctx context.Context, rt ReactableType, id int64) (*Reaction, error) {
	out := &Reaction{}
	err := c.do(ctx, http.MethodGet, c.resourceURL("/reactions/%s/%d/my-reaction", rt, id), nil, nil, out)
	if NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
