// Package apt drives the Debian package manager and its source
// configuration. All mutations go through apt-get itself; this package
// never touches dpkg's database directly.
package apt

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenwick-labs/devstrap/internal/system"
)

// Manager wraps the apt-get and dpkg command-line tools.
type Manager struct {
	run system.Runner
}

// NewManager returns a Manager that executes through run.
func NewManager(run system.Runner) *Manager {
	return &Manager{run: run}
}

// Update refreshes the package index. Output streams to the terminal;
// index refreshes are long and the operator should see progress.
func (m *Manager) Update(ctx context.Context) error {
	if err := m.run.ExecuteInteractive(ctx, "apt-get", "update"); err != nil {
		return fmt.Errorf("apt-get update failed: %w", err)
	}
	return nil
}

// Upgrade applies pending package upgrades without changing the
// release.
func (m *Manager) Upgrade(ctx context.Context) error {
	if err := m.run.ExecuteInteractive(ctx, "apt-get", "upgrade", "-y"); err != nil {
		return fmt.Errorf("apt-get upgrade failed: %w", err)
	}
	return nil
}

// FullUpgrade applies upgrades including ones that add or remove
// packages, as a release upgrade requires.
func (m *Manager) FullUpgrade(ctx context.Context) error {
	if err := m.run.ExecuteInteractive(ctx, "apt-get", "full-upgrade", "-y"); err != nil {
		return fmt.Errorf("apt-get full-upgrade failed: %w", err)
	}
	return nil
}

// Install installs the given packages in one transaction.
func (m *Manager) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	args := append([]string{"install", "-y"}, pkgs...)
	if err := m.run.ExecuteInteractive(ctx, "apt-get", args...); err != nil {
		return fmt.Errorf("apt-get install %s failed: %w", strings.Join(pkgs, " "), err)
	}
	return nil
}

// AutoRemove drops packages that were installed as dependencies and are
// no longer needed.
func (m *Manager) AutoRemove(ctx context.Context) error {
	if err := m.run.ExecuteInteractive(ctx, "apt-get", "autoremove", "-y"); err != nil {
		return fmt.Errorf("apt-get autoremove failed: %w", err)
	}
	return nil
}

// Clean clears the local archive of downloaded package files.
func (m *Manager) Clean(ctx context.Context) error {
	if err := m.run.ExecuteInteractive(ctx, "apt-get", "clean"); err != nil {
		return fmt.Errorf("apt-get clean failed: %w", err)
	}
	return nil
}

// IsInstalled reports whether pkg is currently installed. A non-zero
// dpkg-query exit means not installed, not an error.
func (m *Manager) IsInstalled(ctx context.Context, pkg string) bool {
	out, err := m.run.Execute(ctx, "dpkg-query", "-W", "-f=${Status}", pkg)
	if err != nil {
		return false
	}
	return strings.Contains(string(out), "install ok installed")
}

// Architecture returns the dpkg architecture string, such as amd64.
func (m *Manager) Architecture(ctx context.Context) (string, error) {
	out, err := m.run.Execute(ctx, "dpkg", "--print-architecture")
	if err != nil {
		return "", fmt.Errorf("dpkg --print-architecture failed: %w (output: %s)", err, string(out))
	}
	arch := strings.TrimSpace(string(out))
	if arch == "" {
		return "", fmt.Errorf("dpkg reported an empty architecture")
	}
	return arch, nil
}
