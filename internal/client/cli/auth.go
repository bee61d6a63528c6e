package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/iudanet/mailguard/internal/validation"
	pkgapi "github.com/iudanet/mailguard/pkg/api"
)

func (c *Cli) runSignup(ctx context.Context) error {
	c.io.Println("=== Sign up ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	password, err := c.io.ReadPassword(fmt.Sprintf("Password (min %d chars): ", validation.MinPasswordLen))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	err = c.guard.Client().Signup(ctx, pkgapi.SignupRequest{Username: username, Email: email, Password: password})
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Account created!")
	c.io.Println("Please run 'mailguard login' to start using the service.")
	return nil
}

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.io)
	passwordFile := fs.String("password-file", "", "read the password from this file")
	passwordArg := fs.String("password", "", "password (not recommended)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Login ===")
	c.io.Println()

	username := fs.Arg(0)
	if username == "" {
		var err error
		username, err = c.io.ReadInput("Username: ")
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}

	password, err := c.getPassword(Passwords{FromFile: *passwordFile, FromArgs: *passwordArg})
	if err != nil {
		return err
	}

	c.io.Println("Authenticating...")
	if err := c.guard.Login(ctx, username, password); err != nil {
		return err
	}

	// кэш мог остаться от другого пользователя
	if c.cache != nil {
		if err := c.cache.Clear(ctx); err != nil {
			c.io.Printf("Warning: failed to clear the email cache: %v\n", err)
		}
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	if p, err := c.mail.Me(ctx); err == nil {
		c.io.Printf("Signed in as %s <%s>\n", p.Username, p.Email)
	} else {
		c.io.Printf("Signed in as %s\n", username)
	}
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if err := c.guard.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	if c.cache != nil {
		if err := c.cache.Clear(ctx); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Session Status ===")
	c.io.Println()

	if !c.guard.IsAuthenticated(ctx) {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'mailguard login' to authenticate.")
		return nil
	}

	c.io.Printf("Status: %s\n", c.guard.State(ctx))

	// профиль может быть ещё не загружен, это не ошибка
	if p, err := c.guard.Profile(ctx); err == nil && p != nil {
		c.io.Printf("Username: %s\n", p.Username)
		c.io.Printf("Email: %s\n", p.Email)
		if p.IsAdmin() {
			c.io.Println("Role: admin")
		}
	}

	expiresAt, ok := c.guard.TokenExpiry(ctx)
	if !ok {
		return nil
	}
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
	if remaining := time.Until(expiresAt); remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("⚠️  Access token has expired, it will be refreshed on the next request.")
	}
	return nil
}

func (c *Cli) runWhoami(ctx context.Context) error {
	p, err := c.mail.Me(ctx)
	if err != nil {
		return err
	}
	c.io.Printf("ID:       %s\n", p.ID)
	c.io.Printf("Username: %s\n", p.Username)
	c.io.Printf("Email:    %s\n", p.Email)
	c.io.Printf("Role:     %s\n", p.Role)
	return nil
}
