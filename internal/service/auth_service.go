package service

import (
	"context"
	"fmt"
	"net/http"

	"talentmatch-client/internal/client"
	"talentmatch-client/internal/model"
	"talentmatch-client/internal/session"
)

type AuthService struct {
	api     API
	session *session.Manager
}

func NewAuthService(api API, manager *session.Manager) *AuthService {
	return &AuthService{api: api, session: manager}
}

// Login exchanges credentials for a token pair and starts the session.
func (s *AuthService) Login(ctx context.Context, username string, password string) (model.User, error) {
	req := model.LoginRequest{Username: username, Password: password}
	if err := req.Validate(); err != nil {
		return model.User{}, err
	}

	var resp model.AuthResponse
	if err := s.api.DoJSON(ctx, client.Request{Method: http.MethodPost, Path: "/auth/login/", JSON: req}, &resp); err != nil {
		return model.User{}, err
	}

	if err := s.start(resp); err != nil {
		return model.User{}, err
	}

	return resp.User, nil
}

// Register creates an account; the server logs the new user in directly.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	if err := req.Validate(); err != nil {
		return model.User{}, err
	}

	var resp model.AuthResponse
	if err := s.api.DoJSON(ctx, client.Request{Method: http.MethodPost, Path: "/auth/register/", JSON: req}, &resp); err != nil {
		return model.User{}, err
	}

	if err := s.start(resp); err != nil {
		return model.User{}, err
	}

	return resp.User, nil
}

func (s *AuthService) start(resp model.AuthResponse) error {
	if err := s.session.Start(session.Credentials{AccessToken: resp.Access, RefreshToken: resp.Refresh}); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

func (s *AuthService) Logout() error {
	return s.session.Logout()
}

func (s *AuthService) Status() session.Status {
	return s.session.Status()
}
