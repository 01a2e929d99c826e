package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/shared"
)

// User identifies the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the on-disk session shape.
type Session struct {
	User          *User             `json:"user,omitempty"`
	Token         *oauth2.Token     `json:"token,omitempty"`
	PendingStates map[string]string `json:"pending_states,omitempty"`
}

// Store reads and writes the session file. It implements api.SessionStore,
// so the HTTP client can read tokens, persist refreshed pairs, and clear
// the session on forced logout.
type Store struct {
	path   string
	logger *log.Logger

	mu       sync.Mutex
	session  Session
	onLogout []func()
}

var _ api.SessionStore = (*Store)(nil)

// DefaultSessionPath returns the standard session location, ~/.ndh/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".ndh", "session.json"), nil
}

// NewStore loads the session at path, starting empty when the file does not
// exist. A corrupt session file is discarded with a warning instead of
// locking the user out of the CLI.
func NewStore(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Store{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := json.Unmarshal(data, &s.session); err != nil {
		logger.Warn("discarding corrupt session file", "path", path, "err", err)
		s.session = Session{}
	}

	return s, nil
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// AccessToken returns the current access token, or "" when signed out.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Token == nil {
		return ""
	}
	return s.session.Token.AccessToken
}

// RefreshToken returns the current refresh token, or "" when signed out.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Token == nil {
		return ""
	}
	return s.session.Token.RefreshToken
}

// Login records the signed-in user together with their first token pair.
func (s *Store) Login(user User, pair api.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.User = &user
	s.session.Token = tokenFromPair(pair)
	return s.save()
}

// StoreTokens persists a refreshed token pair, keeping the signed-in user.
// Refresh responses that rotate only the access token keep the previous
// refresh token.
func (s *Store) StoreTokens(pair api.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := tokenFromPair(pair)
	if token.RefreshToken == "" && s.session.Token != nil {
		token.RefreshToken = s.session.Token.RefreshToken
	}
	s.session.Token = token
	return s.save()
}

// Logout removes the session file and notifies registered hooks.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.session = Session{}
	err := os.Remove(s.path)
	hooks := append([]func(){}, s.onLogout...)
	s.mu.Unlock()

	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// OnLogout registers fn to run whenever the session is cleared, including
// forced logouts triggered by the HTTP client after a failed refresh.
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// CurrentUser returns the signed-in user.
func (s *Store) CurrentUser() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.User == nil {
		return User{}, false
	}
	return *s.session.User, true
}

// IsAuthenticated reports whether a token pair is stored.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Token != nil && s.session.Token.AccessToken != ""
}

// TokenExpiry returns when the stored access token expires, if known.
func (s *Store) TokenExpiry() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Token == nil || s.session.Token.Expiry.IsZero() {
		return time.Time{}, false
	}
	return s.session.Token.Expiry, true
}

// SetPendingState stores the CSRF state nonce for an in-flight service
// link so the callback can be validated, even from a later invocation.
func (s *Store) SetPendingState(provider, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.PendingStates == nil {
		s.session.PendingStates = make(map[string]string)
	}
	s.session.PendingStates[provider] = state
	return s.save()
}

// TakePendingState removes and returns the stored state nonce for provider.
// Nonces are single-use: a second call reports no pending state.
func (s *Store) TakePendingState(provider string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.session.PendingStates[provider]
	if !ok {
		return "", false, nil
	}
	delete(s.session.PendingStates, provider)
	return state, true, s.save()
}

// save writes the session file with owner-only permissions. Callers hold mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(s.session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// tokenFromPair converts the backend's token payload into an oauth2 token
// with an absolute expiry.
func tokenFromPair(pair api.TokenPair) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	}
	if pair.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	}
	return token
}
