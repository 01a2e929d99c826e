package services

import (
	"context"
	"fmt"

	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/shared"
)

// AuthService implements [AuthAPI] against the backend's auth and profile
// endpoints.
type AuthService struct {
	client api.Doer
}

var _ AuthAPI = (*AuthService)(nil)

// NewAuthService creates an auth service speaking through client.
func NewAuthService(client api.Doer) *AuthService {
	return &AuthService{client: client}
}

// authPayload is the wire shape login, register, and refresh responses
// share. Token fields are absent when the backend asks for a second factor.
type authPayload struct {
	User         *User  `json:"user,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Requires2FA  bool   `json:"requires_2fa,omitempty"`
}

func (p *authPayload) result() *AuthResult {
	return &AuthResult{
		User: p.User,
		Tokens: api.TokenPair{
			AccessToken:  p.AccessToken,
			RefreshToken: p.RefreshToken,
			ExpiresIn:    p.ExpiresIn,
		},
		Requires2FA: p.Requires2FA,
	}
}

// Register creates an account. Email format and password policy are checked
// client-side before anything is sent.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	if err := shared.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := shared.ValidatePassword(password); err != nil {
		return nil, err
	}

	body := map[string]string{"email": email, "password": password}

	var payload authPayload
	if err := s.client.Post(ctx, "/api/v1/auth/register", body, &payload); err != nil {
		return nil, err
	}

	return payload.result(), nil
}

// Login exchanges credentials for a token pair. Accounts with two-factor
// enabled answer with Requires2FA until a valid code is supplied.
func (s *AuthService) Login(ctx context.Context, email, password, totpCode string) (*AuthResult, error) {
	if err := shared.ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", shared.ErrInvalidInput)
	}
	if totpCode != "" {
		if err := shared.ValidateTOTPCode(totpCode); err != nil {
			return nil, err
		}
	}

	body := map[string]string{"email": email, "password": password}
	if totpCode != "" {
		body["totp_code"] = totpCode
	}

	var payload authPayload
	if err := s.client.Post(ctx, "/api/v1/auth/login", body, &payload); err != nil {
		return nil, err
	}

	if payload.Requires2FA {
		return &AuthResult{Requires2FA: true}, nil
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response carried no tokens", shared.ErrAuthFailed)
	}

	return payload.result(), nil
}

// Logout revokes the session server-side. Clearing the local session file
// is the caller's job.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.client.Post(ctx, "/api/v1/auth/logout", nil, nil)
}

// VerifyEmail confirms the address with the emailed code.
func (s *AuthService) VerifyEmail(ctx context.Context, code string) (*User, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: verification code is required", shared.ErrInvalidInput)
	}

	var user User
	if err := s.client.Post(ctx, "/api/v1/auth/verify-email", map[string]string{"code": code}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Profile fetches the signed-in user's profile.
func (s *AuthService) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := s.client.Get(ctx, "/api/v1/users/profile", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the account email. The backend resets email
// verification when the address changes.
func (s *AuthService) UpdateProfile(ctx context.Context, email string) (*User, error) {
	if err := shared.ValidateEmail(email); err != nil {
		return nil, err
	}

	var user User
	if err := s.client.Put(ctx, "/api/v1/users/profile", map[string]string{"email": email}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword rotates the account password. The new password must pass
// the client-side policy; the current one is verified server-side.
func (s *AuthService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return fmt.Errorf("%w: current password is required", shared.ErrInvalidInput)
	}
	if err := shared.ValidatePassword(newPassword); err != nil {
		return err
	}

	body := map[string]string{
		"current_password": currentPassword,
		"new_password":     newPassword,
	}
	return s.client.Put(ctx, "/api/v1/users/password", body, nil)
}
