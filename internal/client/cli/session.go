package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/esps-console/internal/client/menu"
	"github.com/iudanet/esps-console/internal/client/session"
	"github.com/iudanet/esps-console/pkg/api"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	c.unmount()

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		last, err := c.meta.GetLastUsername(ctx)
		if err != nil {
			c.logger.Warn("failed to read last username", "error", err)
		}
		prompt := "Username: "
		if last != "" {
			prompt = fmt.Sprintf("Username [%s]: ", last)
		}
		username, err = c.io.ReadInput(prompt)
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		if username == "" {
			username = last
		}
	}

	password, err := c.getPassword()
	if err != nil {
		return err
	}

	c.io.Println("Authenticating...")

	sess, err := c.sessions.Login(ctx, username, password)
	if err != nil {
		var loginErr *session.LoginError
		if errors.As(err, &loginErr) {
			c.io.Printf("Login failed: %s\n", loginErr.Reason)
			c.io.Printf("Warning: %s\n", c.sessions.Attempts().Warning(loginErr.Attempt))
			return nil
		}
		if errors.Is(err, session.ErrLockedOut) {
			c.io.Println("Too many failed attempts. Login is temporarily locked, try again later.")
			return nil
		}
		return err
	}

	c.guard.Reset()
	if err := c.meta.SaveLastUsername(ctx, strings.TrimSpace(username)); err != nil {
		c.logger.Warn("failed to save last username", "error", err)
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("Welcome, %s\n", displayName(sess.User))
	c.io.Println()
	c.printMenu(menu.Resolve(c.capabilities()))
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	c.unmount()
	c.guard.Reset()

	if _, ok := c.sessions.Current(); !ok {
		c.io.Println("Not logged in.")
		return nil
	}

	if err := c.sessions.Logout(ctx); err != nil {
		// локальная сессия уже удалена, сервер мог не получить запрос
		c.io.Printf("Warning: server logout failed: %v\n", err)
	}
	c.io.Println("✓ Logged out")
	return nil
}

func (c *Cli) runWhoami(ctx context.Context) error {
	if _, err := c.requireSession(); err != nil {
		return err
	}
	d, err := c.enter(ctx, true)
	if err != nil {
		return err
	}

	c.printProfile(d.User)
	return nil
}

func (c *Cli) printProfile(user *api.UserProfile) {
	if user == nil {
		c.io.Println("No profile")
		return
	}
	c.io.Printf("Name:     %s\n", displayName(user))
	c.io.Printf("Username: %s\n", user.Username)
	if len(user.Detil) == 0 {
		c.io.Println("Roles:    -")
		return
	}
	roles := make([]string, 0, len(user.Detil))
	for _, r := range user.Detil {
		roles = append(roles, r.RoleName+"@"+r.AppsID)
	}
	c.io.Printf("Roles:    %s\n", strings.Join(roles, ", "))
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Session Status ===")
	c.io.Println()

	sess, ok := c.sessions.Current()
	if !ok {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'login' to authenticate.")
	} else {
		c.io.Println("Status: Authenticated")
		c.io.Printf("User: %s\n", displayName(sess.User))
		if failed := c.sessions.Attempts().Failed(); failed > 0 {
			c.io.Printf("Failed login attempts: %d\n", failed)
		}
	}

	if c.view != nil {
		c.io.Printf("Open view: %s (table %s)\n", c.view.direction, c.view.active)
	}

	infos, err := c.meta.ListRefresh(ctx)
	if err != nil {
		// Не прерываем выполнение, просто предупреждаем
		c.io.Printf("\nWarning: failed to read refresh history: %v\n", err)
		return nil
	}
	if len(infos) == 0 {
		return nil
	}

	c.io.Println()
	c.io.Println("Last refresh:")
	for _, info := range infos {
		if info.Error != "" {
			c.io.Printf("  %-10s %s  failed: %s\n", info.Source, info.At.Local().Format(time.DateTime), info.Error)
			continue
		}
		c.io.Printf("  %-10s %s  %d record(s)\n", info.Source, info.At.Local().Format(time.DateTime), info.Count)
	}
	return nil
}

func (c *Cli) runMenu(ctx context.Context) error {
	if _, err := c.requireSession(); err != nil {
		return err
	}
	if _, err := c.enter(ctx, false); err != nil {
		return err
	}
	c.printMenu(menu.Resolve(c.capabilities()))
	return nil
}

func (c *Cli) printMenu(items []menu.Item) {
	c.io.Println("Menu:")
	for _, it := range items {
		c.io.Printf("  %-12s %s\n", it.Key, it.Label)
		for _, child := range it.Children {
			c.io.Printf("    %-22s %s\n", child.Key, child.Label)
		}
	}
}

func displayName(user *api.UserProfile) string {
	if user == nil {
		return "-"
	}
	if user.Name != "" {
		return user.Name
	}
	return user.Username
}
