package api

import (
	"context"
	"fmt"
)

// Credentials is the body of the login and register endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /auth/login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// Login exchanges email and password for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var tok TokenResponse
	err := c.post(ctx, "/auth/login", Credentials{Email: email, Password: password}, &tok)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("logging in: response carried no access token")
	}
	return &tok, nil
}

// Register creates a new account. The response body is ignored.
func (c *Client) Register(ctx context.Context, email, password string) error {
	err := c.post(ctx, "/auth/register", Credentials{Email: email, Password: password}, nil)
	if err != nil {
		return fmt.Errorf("registering: %w", err)
	}
	return nil
}
