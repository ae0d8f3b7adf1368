package api

import (
	"context"
	"net/http"

	"github.com/fanspace/fanspace-go/internal/models"
)

// Register creates an account and installs the returned token pair.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return models.AuthResponse{}, err
	}
	c.SetTokens(resp.Token, resp.RefreshToken)
	return resp, nil
}

// Login authenticates and installs the returned token pair.
func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return models.AuthResponse{}, err
	}
	c.SetTokens(resp.Token, resp.RefreshToken)
	return resp, nil
}
