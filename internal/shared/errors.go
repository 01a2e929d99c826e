package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session and authentication errors
	ErrNotAuthenticated  = fmt.Errorf("not authenticated")
	ErrAuthFailed        = fmt.Errorf("authentication failed")
	ErrTokenExpired      = fmt.Errorf("access token expired")
	ErrRefreshFailed     = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken    = fmt.Errorf("no refresh token available")
	ErrTwoFactorRequired = fmt.Errorf("two-factor code required")
	ErrStateMismatch     = fmt.Errorf("oauth state mismatch")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// API and enforcement errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrArtistNotFound     = fmt.Errorf("artist not found")
	ErrBatchNotFound      = fmt.Errorf("batch not found")
	ErrNoActivePlan       = fmt.Errorf("no enforcement plan prepared")
	ErrNoConnections      = fmt.Errorf("no streaming services connected")
	ErrBatchState         = fmt.Errorf("invalid batch state transition")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
	ErrInvalidEmail    = fmt.Errorf("invalid email address")
	ErrWeakPassword    = fmt.Errorf("password must be at least 8 characters")
	ErrInvalidTOTP     = fmt.Errorf("two-factor code must be 6 digits")
)
