package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
)

// GetUser fetches the full identity record, including team memberships.
func (c *Client) GetUser(ctx context.Context, id int64) (*models.Identity, error) {
	var identity models.Identity
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// siteAdminFlag accepts either a bare boolean or {"isSiteAdmin": bool}.
type siteAdminFlag bool

func (f *siteAdminFlag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = siteAdminFlag(v)
		return nil
	}
	var obj struct {
		IsSiteAdmin bool `json:"isSiteAdmin"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*f = siteAdminFlag(obj.IsSiteAdmin)
	return nil
}

func (c *Client) IsSiteAdmin(ctx context.Context, id int64) (bool, error) {
	var flag siteAdminFlag
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/is-site-admin", id), nil, &flag); err != nil {
		return false, err
	}
	return bool(flag), nil
}

type UserPatch struct {
	Username    *string `json:"username,omitempty"`
	Email       *string `json:"email,omitempty"`
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	Password    *string `json:"password,omitempty"`
	IsSiteAdmin *bool   `json:"isSiteAdmin,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, in models.UserInput) (*models.User, error) {
	var user models.User
	if err := c.Do(ctx, http.MethodPost, "/users", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*models.User, error) {
	var user models.User
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/users/%d", id), patch, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}

// Dashboard is the consolidated admin read of users, teams and events.
func (c *Client) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	var d models.Dashboard
	if err := c.Do(ctx, http.MethodGet, "/admin/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
