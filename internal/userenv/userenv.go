// Package userenv runs the post-install steps that belong to the
// invoking user rather than root: pnpm, Playwright browsers, and git
// identity. Callers decide whether a user is available; everything here
// assumes one.
package userenv

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os/user"

	"github.com/fenwick-labs/devstrap/internal/fetch"
	"github.com/fenwick-labs/devstrap/internal/system"
)

// DefaultPnpmScriptURL is pnpm's upstream install script.
const DefaultPnpmScriptURL = "https://get.pnpm.io/install.sh"

// Steps executes the per-user provisioning steps.
type Steps struct {
	run    system.Runner
	client *http.Client

	PnpmScriptURL string
}

// New returns Steps using the upstream pnpm endpoint.
func New(run system.Runner, client *http.Client) *Steps {
	return &Steps{run: run, client: client, PnpmScriptURL: DefaultPnpmScriptURL}
}

// sudoAs prefixes a command so it runs as u with u's home directory.
func sudoAs(u *user.User, cmd ...string) []string {
	return append([]string{"-u", u.Username, "-H"}, cmd...)
}

// InstallPnpm fetches the pnpm install script and feeds it to a shell
// running as u. The script itself is never written to disk.
func (s *Steps) InstallPnpm(ctx context.Context, u *user.User) error {
	script, err := fetch.Bytes(ctx, s.client, s.PnpmScriptURL)
	if err != nil {
		return fmt.Errorf("fetching pnpm install script: %w", err)
	}

	args := sudoAs(u, "sh", "-")
	out, err := s.run.ExecuteWithStdin(ctx, bytes.NewReader(script), "sudo", args...)
	if err != nil {
		return fmt.Errorf("pnpm install script failed for %s: %w (output: %s)", u.Username, err, string(out))
	}
	return nil
}

// InstallPlaywright installs the Chromium automation browser for u.
// The browser's OS dependencies install as root first; the browser
// binaries land in the user's cache.
func (s *Steps) InstallPlaywright(ctx context.Context, u *user.User) error {
	if err := s.run.ExecuteInteractive(ctx, "npx", "--yes", "playwright", "install-deps", "chromium"); err != nil {
		return fmt.Errorf("playwright install-deps failed: %w", err)
	}

	args := sudoAs(u, "npx", "--yes", "playwright", "install", "chromium")
	if err := s.run.ExecuteInteractive(ctx, "sudo", args...); err != nil {
		return fmt.Errorf("playwright browser install failed for %s: %w", u.Username, err)
	}
	return nil
}

// ConfigureGit writes the user's global git identity. Empty values are
// left unset.
func (s *Steps) ConfigureGit(ctx context.Context, u *user.User, name, email string) error {
	if name != "" {
		args := sudoAs(u, "git", "config", "--global", "user.name", name)
		if out, err := s.run.Execute(ctx, "sudo", args...); err != nil {
			return fmt.Errorf("git config user.name failed: %w (output: %s)", err, string(out))
		}
	}
	if email != "" {
		args := sudoAs(u, "git", "config", "--global", "user.email", email)
		if out, err := s.run.Execute(ctx, "sudo", args...); err != nil {
			return fmt.Errorf("git config user.email failed: %w (output: %s)", err, string(out))
		}
	}
	return nil
}
