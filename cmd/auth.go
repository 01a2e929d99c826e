package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nodrake/ndh/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// AuthRegister creates an account and stores the resulting session.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	email := cmd.StringArg("email")
	if email == "" {
		return fmt.Errorf("%w: email argument is required", shared.ErrMissingArgument)
	}
	if err := shared.ValidateEmail(email); err != nil {
		return err
	}

	password := cmd.String("password")
	if password == "" {
		var err error
		if password, err = r.promptPassword("Password"); err != nil {
			return err
		}
		confirm, err := r.promptPassword("Confirm password")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("%w: passwords do not match", shared.ErrInvalidInput)
		}
	}
	if err := shared.ValidatePassword(password); err != nil {
		return err
	}

	r.logger.Info("registering account", "email", email)

	result, err := r.auth.Register(ctx, email, password)
	if err != nil {
		return err
	}
	if err := r.saveLogin(result); err != nil {
		return err
	}

	r.writePlain("✓ Account created for %s\n", email)
	r.writePlain("Password strength: %s\n", shared.StrengthLabel(shared.PasswordStrength(password)))
	r.writePlain("Check your inbox for a verification code, then run 'ndh auth verify <code>'\n")
	return nil
}

// AuthLogin signs in, prompting for a TOTP code when the account has
// two-factor enabled and no code was supplied.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.StringArg("email")
	if email == "" {
		return fmt.Errorf("%w: email argument is required", shared.ErrMissingArgument)
	}
	if err := shared.ValidateEmail(email); err != nil {
		return err
	}

	password := cmd.String("password")
	if password == "" {
		var err error
		if password, err = r.promptPassword("Password"); err != nil {
			return err
		}
	}

	totp := cmd.String("totp")
	if totp != "" {
		if err := shared.ValidateTOTPCode(totp); err != nil {
			return err
		}
	}

	r.logger.Info("logging in", "email", email)

	result, err := r.auth.Login(ctx, email, password, totp)
	if err != nil {
		return err
	}

	if result.Requires2FA {
		code, err := r.promptLine("Two-factor code")
		if err != nil {
			return err
		}
		if err := shared.ValidateTOTPCode(code); err != nil {
			return err
		}
		if result, err = r.auth.Login(ctx, email, password, code); err != nil {
			return err
		}
		if result.Requires2FA {
			return fmt.Errorf("%w: two-factor code rejected", shared.ErrAuthFailed)
		}
	}

	if err := r.saveLogin(result); err != nil {
		return err
	}

	r.writePlain("✓ Logged in as %s\n", result.User.Email)
	if !result.User.EmailVerified {
		r.writePlain("⚠ Email not verified yet. Run 'ndh auth verify <code>'.\n")
	}
	return nil
}

// AuthLogout revokes the refresh token and clears the local session. The
// local session is cleared even when the server call fails, so a dead
// backend cannot keep the CLI signed in.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.session == nil || !r.session.IsAuthenticated() {
		return r.writePlain("Not logged in\n")
	}

	if err := r.auth.Logout(ctx); err != nil {
		r.logger.Warn("server logout failed, clearing local session anyway", "error", err)
	}
	if err := r.session.Logout(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return r.writePlain("✓ Logged out\n")
}

// AuthWhoami shows the signed-in account's profile.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	user, err := r.auth.Profile(ctx)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(user, true)
	}

	r.writePlain("Email: %s\n", user.Email)
	r.writePlain("User ID: %s\n", user.ID)
	if user.EmailVerified {
		r.writePlain("Email status: ✓ verified\n")
	} else {
		r.writePlain("Email status: ✗ unverified\n")
	}
	if user.TOTPEnabled {
		r.writePlain("Two-factor: enabled\n")
	} else {
		r.writePlain("Two-factor: disabled\n")
	}
	if r.session != nil {
		if expiry, ok := r.session.TokenExpiry(); ok {
			r.writePlain("Session expires: %s\n", expiry.Format(time.RFC1123))
		}
	}
	return nil
}

// AuthVerify confirms the email address with an emailed code.
func (r *Runner) AuthVerify(ctx context.Context, cmd *cli.Command) error {
	code := cmd.StringArg("code")
	if code == "" {
		return fmt.Errorf("%w: verification code is required", shared.ErrMissingArgument)
	}

	user, err := r.auth.VerifyEmail(ctx, code)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Email verified for %s\n", user.Email)
}

// promptPassword reads a secret from stdin without echoing it. Falls back
// to a plain line read when stdin is not a terminal, e.g. in scripts.
func (r *Runner) promptPassword(label string) (string, error) {
	r.writePlain("%s: ", label)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return r.readLine()
	}

	secret, err := term.ReadPassword(fd)
	r.writePlain("\n")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}

// promptLine reads one visible line from stdin.
func (r *Runner) promptLine(label string) (string, error) {
	r.writePlain("%s: ", label)
	return r.readLine()
}

func (r *Runner) readLine() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
