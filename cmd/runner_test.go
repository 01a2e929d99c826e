package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/auth"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
	tu "github.com/nodrake/ndh/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			authSvc := &tu.MockAuthAPI{}
			dnp := &tu.MockDNPAPI{}
			connections := &tu.MockConnectionAPI{}
			community := &tu.MockCommunityAPI{}
			enforcement := &tu.MockEnforcementAPI{}

			runner := NewRunner(RunnerOpts{
				Config:      config,
				Logger:      logger,
				Output:      output,
				Auth:        authSvc,
				DNP:         dnp,
				Connections: connections,
				Community:   community,
				Enforcement: enforcement,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.auth != authSvc {
				t.Error("expected auth service to be set")
			}
			if runner.dnp != dnp {
				t.Error("expected dnp service to be set")
			}
			if runner.connections != connections {
				t.Error("expected connection service to be set")
			}
			if runner.community != community {
				t.Error("expected community service to be set")
			}
			if runner.enforcement != enforcement {
				t.Error("expected enforcement service to be set")
			}
			if runner.engine == nil {
				t.Error("expected engine to be constructed")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "/test/path/config.toml",
			})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with empty configPath uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "",
			})

			if runner.configPath != "config.toml" {
				t.Errorf("expected default configPath, got %s", runner.configPath)
			}
		})

		t.Run("without a client leaves services unset", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.client != nil {
				t.Error("expected no client without a session store")
			}
			if runner.auth != nil {
				t.Error("expected no auth service without a client")
			}
		})

		t.Run("with a session store builds a client and services", func(t *testing.T) {
			sessionPath := filepath.Join(t.TempDir(), "session.json")
			session, err := auth.NewStore(sessionPath, nil)
			if err != nil {
				t.Fatalf("failed to create session store: %v", err)
			}

			runner := NewRunner(RunnerOpts{Session: session})

			if runner.client == nil {
				t.Fatal("expected client to be constructed from config")
			}
			if runner.auth == nil || runner.dnp == nil || runner.connections == nil ||
				runner.community == nil || runner.enforcement == nil {
				t.Error("expected all services to be constructed from the client")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writes plain text without formatting", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("simple text")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "simple text" {
				t.Errorf("expected 'simple text', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}

		names := map[string]bool{}
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"auth", "dnp", "connections", "enforcement", "community", "status", "api", "setup", "tui"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})

	t.Run("saveLogin", func(t *testing.T) {
		newSession := func(t *testing.T) *auth.Store {
			t.Helper()
			sessionPath := filepath.Join(t.TempDir(), "session.json")
			session, err := auth.NewStore(sessionPath, nil)
			if err != nil {
				t.Fatalf("failed to create session store: %v", err)
			}
			return session
		}

		t.Run("persists the session", func(t *testing.T) {
			session := newSession(t)
			runner := NewRunner(RunnerOpts{Session: session})

			result := &services.AuthResult{
				User: &services.User{ID: "user1", Email: "kendrick@example.com"},
				Tokens: api.TokenPair{
					AccessToken:  "access_token",
					RefreshToken: "refresh_token",
					ExpiresIn:    900,
				},
			}

			if err := runner.saveLogin(result); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !session.IsAuthenticated() {
				t.Error("expected session to be authenticated")
			}
			user, ok := session.CurrentUser()
			if !ok || user.Email != "kendrick@example.com" {
				t.Errorf("expected stored user, got %+v", user)
			}
			if session.AccessToken() != "access_token" {
				t.Errorf("expected access token to be stored, got %q", session.AccessToken())
			}
		})

		t.Run("rejects a nil result", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Session: newSession(t)})

			err := runner.saveLogin(nil)
			if err == nil {
				t.Fatal("expected error for nil result")
			}
			if !strings.Contains(err.Error(), "no user in auth response") {
				t.Errorf("expected missing user error, got %v", err)
			}
		})

		t.Run("rejects a result without a user", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Session: newSession(t)})

			err := runner.saveLogin(&services.AuthResult{})
			if err == nil {
				t.Fatal("expected error for missing user")
			}
			if !strings.Contains(err.Error(), "no user in auth response") {
				t.Errorf("expected missing user error, got %v", err)
			}
		})

		t.Run("fails without a session store", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			err := runner.saveLogin(&services.AuthResult{
				User: &services.User{ID: "user1", Email: "kendrick@example.com"},
			})
			if err == nil {
				t.Fatal("expected error without a session store")
			}
			if !strings.Contains(err.Error(), "session store not initialized") {
				t.Errorf("expected session store error, got %v", err)
			}
		})
	})
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "spotify", []string{"spotify"}},
		{"multiple", "spotify,apple", []string{"spotify", "apple"}},
		{"spaces and empties", " spotify , ,apple ", []string{"spotify", "apple"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitList(tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("expected %v, got %v", tc.want, got)
					break
				}
			}
		})
	}
}
