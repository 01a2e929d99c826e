package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nodrake/ndh/internal/server"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConnectionsList shows linked streaming services and their health.
func (r *Runner) ConnectionsList(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	conns, err := r.connections.List(ctx)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(conns, true)
	}

	if len(conns) == 0 {
		return r.writePlain("No streaming services linked. Run 'ndh connections link <provider>'.\n")
	}

	for _, conn := range conns {
		r.writePlain("%s %s (%s)\n", statusMarker(conn.Status), conn.Provider, conn.Status)
		if !conn.ConnectedAt.IsZero() {
			r.writePlain("   Connected: %s\n", conn.ConnectedAt.Format(time.RFC1123))
		}
		if conn.ExpiresAt != nil {
			r.writePlain("   Expires: %s\n", conn.ExpiresAt.Format(time.RFC1123))
		}
		if len(conn.Scopes) > 0 {
			r.writePlain("   Scopes: %s\n", strings.Join(conn.Scopes, ", "))
		}
	}
	return nil
}

// ConnectionsLink runs the OAuth link flow for a provider. The default
// flow opens a browser and catches the redirect on a local callback
// server; --manual prints the URL and accepts the pasted redirect instead.
func (r *Runner) ConnectionsLink(ctx context.Context, cmd *cli.Command) error {
	provider := cmd.StringArg("provider")
	if provider == "" {
		return fmt.Errorf("%w: provider argument is required (e.g. spotify)", shared.ErrMissingArgument)
	}

	redirectURI := r.config.Server.RedirectURI()

	r.logger.Info("initiating link", "provider", provider, "redirect_uri", redirectURI)

	link, err := r.connections.Initiate(ctx, provider, redirectURI)
	if err != nil {
		return err
	}
	if err := r.session.SetPendingState(provider, link.State); err != nil {
		return fmt.Errorf("failed to store link state: %w", err)
	}

	var result server.LinkResult
	if cmd.Bool("manual") {
		result, err = r.manualLink(link)
	} else {
		result, err = r.doLink(link)
	}
	if err != nil {
		return err
	}

	expected, ok, err := r.session.TakePendingState(provider)
	if err != nil {
		return err
	}
	if !ok || expected != result.State {
		return fmt.Errorf("%w: state parameter does not match", shared.ErrStateMismatch)
	}

	conn, err := r.connections.CompleteLink(ctx, provider, result.Code, result.State, redirectURI)
	if err != nil {
		return err
	}

	r.writePlain("✓ %s linked (%s)\n", conn.Provider, conn.Status)
	if len(conn.Scopes) > 0 {
		r.writePlain("  Scopes: %s\n", strings.Join(conn.Scopes, ", "))
	}
	return nil
}

// ConnectionsUnlink removes a linked service.
func (r *Runner) ConnectionsUnlink(ctx context.Context, cmd *cli.Command) error {
	provider := cmd.StringArg("provider")
	if provider == "" {
		return fmt.Errorf("%w: provider argument is required", shared.ErrMissingArgument)
	}

	r.logger.Info("unlinking provider", "provider", provider)

	if err := r.connections.Unlink(ctx, provider); err != nil {
		return err
	}

	return r.writePlain("✓ %s unlinked\n", provider)
}

// ConnectionsAccounts shows external identities attached to the account.
func (r *Runner) ConnectionsAccounts(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	accounts, err := r.connections.Accounts(ctx)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(accounts, true)
	}

	if len(accounts) == 0 {
		return r.writePlain("No external accounts linked.\n")
	}

	for _, account := range accounts {
		name := account.DisplayName
		if name == "" {
			name = account.AccountID
		}
		r.writePlain("%s: %s\n", account.Provider, name)
		r.writePlain("   Linked: %s\n", account.LinkedAt.Format(time.RFC1123))
	}
	return nil
}

// doLink catches the provider redirect with a local HTTP server.
func (r *Runner) doLink(link *services.LinkSession) (server.LinkResult, error) {
	var result server.LinkResult

	handler := server.NewCallbackHandler("/callback", link.State)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	httpServer := &http.Server{
		Addr:    r.config.Server.Addr(),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("waiting for provider callback at %v", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser to authorize...\n")
	if err := shared.OpenBrowser(link.AuthorizationURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", link.AuthorizationURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	select {
	case result = <-handler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return result, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return result, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return result, fmt.Errorf("authorization failed: %w", result.Error())
	}
	return result, nil
}

// manualLink prints the consent URL and parses the pasted redirect, for
// machines where no browser can reach the local callback server.
func (r *Runner) manualLink(link *services.LinkSession) (server.LinkResult, error) {
	var result server.LinkResult

	r.writePlain("Open this URL in your browser:\n%s\n\n", link.AuthorizationURL)
	r.writePlain("After authorizing, paste the full redirect URL below.\n")

	line, err := r.promptLine("Redirect URL")
	if err != nil {
		return result, err
	}

	parsed, err := url.Parse(line)
	if err != nil {
		return result, fmt.Errorf("%w: not a valid URL: %v", shared.ErrInvalidInput, err)
	}

	query := parsed.Query()
	result.Code = query.Get("code")
	result.State = query.Get("state")
	if result.Code == "" {
		return result, fmt.Errorf("%w: redirect URL carries no authorization code", shared.ErrInvalidInput)
	}
	return result, nil
}

func statusMarker(status string) string {
	switch status {
	case services.ConnectionActive:
		return "✓"
	case services.ConnectionExpired:
		return "⚠"
	default:
		return "✗"
	}
}
