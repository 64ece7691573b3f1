package api

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the token pair and a partial user projection
// (team memberships are not included).
type LoginResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         models.Identity `json:"user"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/login", LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.Do(ctx, http.MethodPost, "/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout asks the backend to invalidate refreshToken.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.Do(ctx, http.MethodPost, "/auth/logout", refreshRequest{RefreshToken: refreshToken}, nil)
}
