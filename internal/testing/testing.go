// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/nodrake/ndh/internal/services"
)

// MockAuthAPI is a no-op test double for [services.AuthAPI].
// Embed it and override the methods a test cares about.
type MockAuthAPI struct{}

func (m *MockAuthAPI) Register(ctx context.Context, email, password string) (*services.AuthResult, error) {
	return nil, nil
}

func (m *MockAuthAPI) Login(ctx context.Context, email, password, totpCode string) (*services.AuthResult, error) {
	return nil, nil
}
func (m *MockAuthAPI) Logout(ctx context.Context) error { return nil }
func (m *MockAuthAPI) VerifyEmail(ctx context.Context, code string) (*services.User, error) {
	return nil, nil
}
func (m *MockAuthAPI) Profile(ctx context.Context) (*services.User, error) { return nil, nil }
func (m *MockAuthAPI) UpdateProfile(ctx context.Context, email string) (*services.User, error) {
	return nil, nil
}
func (m *MockAuthAPI) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return nil
}

// MockDNPAPI is a no-op test double for [services.DNPAPI]
type MockDNPAPI struct{}

func (m *MockDNPAPI) List(ctx context.Context) ([]services.DNPEntry, error) {
	return []services.DNPEntry{}, nil
}

func (m *MockDNPAPI) Add(ctx context.Context, artistID string, tags []string, note string) (*services.DNPEntry, error) {
	return nil, nil
}

func (m *MockDNPAPI) Update(ctx context.Context, artistID string, tags []string, note string) (*services.DNPEntry, error) {
	return nil, nil
}
func (m *MockDNPAPI) Remove(ctx context.Context, artistID string) error { return nil }
func (m *MockDNPAPI) SearchArtists(ctx context.Context, query string, limit int) ([]services.Artist, error) {
	return []services.Artist{}, nil
}
func (m *MockDNPAPI) Export(ctx context.Context) (*services.DNPExport, error) { return nil, nil }

// MockConnectionAPI is a no-op test double for [services.ConnectionAPI]
type MockConnectionAPI struct{}

func (m *MockConnectionAPI) List(ctx context.Context) ([]services.Connection, error) {
	return []services.Connection{}, nil
}

func (m *MockConnectionAPI) Initiate(ctx context.Context, provider, redirectURI string) (*services.LinkSession, error) {
	return nil, nil
}

func (m *MockConnectionAPI) CompleteLink(ctx context.Context, provider, code, state, redirectURI string) (*services.Connection, error) {
	return nil, nil
}
func (m *MockConnectionAPI) Unlink(ctx context.Context, provider string) error { return nil }
func (m *MockConnectionAPI) Accounts(ctx context.Context) ([]services.LinkedAccount, error) {
	return []services.LinkedAccount{}, nil
}

// MockCommunityAPI is a no-op test double for [services.CommunityAPI]
type MockCommunityAPI struct{}

func (m *MockCommunityAPI) Browse(ctx context.Context, query string, page, perPage int) (*services.CommunityPage, error) {
	return nil, nil
}

func (m *MockCommunityAPI) Get(ctx context.Context, listID string) (*services.CommunityList, error) {
	return nil, nil
}
func (m *MockCommunityAPI) Subscribe(ctx context.Context, listID string, autoUpdate bool) error {
	return nil
}
func (m *MockCommunityAPI) Unsubscribe(ctx context.Context, listID string) error { return nil }
func (m *MockCommunityAPI) Subscriptions(ctx context.Context) ([]services.Subscription, error) {
	return []services.Subscription{}, nil
}

// MockEnforcementAPI is a no-op test double for [services.EnforcementAPI]
type MockEnforcementAPI struct{}

func (m *MockEnforcementAPI) CreatePlan(ctx context.Context, providers []string, dryRun bool, opts services.EnforcementOptions) (*services.EnforcementPlan, error) {
	return nil, nil
}

func (m *MockEnforcementAPI) Execute(ctx context.Context, planID, idempotencyKey string) (*services.EnforcementBatch, error) {
	return nil, nil
}

func (m *MockEnforcementAPI) Progress(ctx context.Context, batchID string) (*services.EnforcementBatch, error) {
	return nil, nil
}

func (m *MockEnforcementAPI) Rollback(ctx context.Context, batchID string) (*services.EnforcementBatch, error) {
	return nil, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
