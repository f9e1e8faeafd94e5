package api

import (
	"context"
	"errors"
	"net/url"

	"github.com/taskhub/taskhub-cli/internal/models"
)

// LoginResult is returned by the password login endpoint.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Validate implements models.Validator.
func (r LoginResult) Validate() error {
	if r.Token == "" {
		return errors.New("login: missing token")
	}
	return r.User.Validate()
}

// Login exchanges email and password for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return decodeOne[LoginResult](c.Post(ctx, "/auth/login", map[string]string{"email": email, "password": password}, Public()))
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	return decodeOne[models.User](c.Get(ctx, "/users/me"))
}

// VerifyEmail confirms an email address. Any 2xx is success; the body is ignored.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	_, err := c.Get(ctx, "/users/verify-email", Query(url.Values{"token": {token}}), Public())
	return err
}

// ChangePassword updates the account password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	_, err := c.Put(ctx, "/users/me/password", map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	})
	return err
}

// DeleteAccountRequest is the body of DELETE /users/me.
type DeleteAccountRequest struct {
	Confirmation string `json:"confirmation"`
	ForceDelete  bool   `json:"forceDelete"`
}

// DeleteAccount removes the authenticated account.
func (c *Client) DeleteAccount(ctx context.Context, req DeleteAccountRequest) error {
	_, err := c.Delete(ctx, "/users/me", req)
	return err
}
