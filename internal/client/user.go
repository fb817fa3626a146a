package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

type UserClient struct {
	gateway
}

func NewUserClient(baseURL string, httpClient *http.Client, timeout time.Duration) *UserClient {
	return &UserClient{newGateway("user", baseURL, httpClient, timeout)}
}

// GetUserByID resolves a user id to its profile. Returns ErrNotFound when
// the user service answers 404.
func (c *UserClient) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	url := fmt.Sprintf("%s/api/v1/users/%d", c.baseURL, userID)

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		drain(resp)
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		drain(resp)
		return nil, fmt.Errorf("user service returned status %d for user %d: %w", resp.StatusCode, userID, ErrUnavailable)
	}

	var user User
	if err := decodeJSON(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
