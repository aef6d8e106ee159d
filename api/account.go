package api

import (
	"context"
	"net/http"
	"time"
)

// User is an account at the auth server.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// RegisterRequest creates a new account. Registration is the one account
// operation that runs unauthenticated.
type RegisterRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// UpdateProfileRequest changes the calling user's profile.
type UpdateProfileRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// ChangePasswordRequest rotates the calling user's password.
type ChangePasswordRequest struct {
	CurrentPassword      string `json:"currentPassword"`
	NewPassword          string `json:"newPassword"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	out := &User{}
	if err := c.do(ctx, http.MethodPost, c.accountsURL("/register"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Profile returns the calling user's account.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	out := &User{}
	if err := c.do(ctx, http.MethodGet, c.accountsURL("/users/me"), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile changes the calling user's account details.
func (c *Client) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*User, error) {
	out := &User{}
	if err := c.do(ctx, http.MethodPut, c.accountsURL("/users/me"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangePassword rotates the calling user's password.
func (c *Client) ChangePassword(ctx context.Context, req *ChangePasswordRequest) error {
	return c.do(ctx, http.MethodPost, c.accountsURL("/users/me/change-password"), nil, req, nil)
}
