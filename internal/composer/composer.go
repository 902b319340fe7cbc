// Package composer installs the Composer dependency manager via its
// upstream installer script, verifying the payload against the
// separately published checksum before anything is executed.
package composer

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenwick-labs/devstrap/internal/fetch"
	"github.com/fenwick-labs/devstrap/internal/system"
)

// Upstream endpoints. The signature is a hex SHA-384 of the current
// installer payload, published alongside it.
const (
	DefaultSigURL       = "https://composer.github.io/installer.sig"
	DefaultInstallerURL = "https://getcomposer.org/installer"
)

// Installer fetches, verifies and runs the Composer setup script.
type Installer struct {
	run    system.Runner
	client *http.Client

	SigURL       string
	InstallerURL string

	// WorkDir holds the downloaded setup script; BinDir is where the
	// composer binary lands.
	WorkDir string
	BinDir  string
}

// New returns an Installer using the upstream endpoints.
func New(run system.Runner, client *http.Client) *Installer {
	return &Installer{
		run:          run,
		client:       client,
		SigURL:       DefaultSigURL,
		InstallerURL: DefaultInstallerURL,
		WorkDir:      os.TempDir(),
		BinDir:       "/usr/local/bin",
	}
}

// Install downloads and runs the Composer installer. The expected
// checksum is fetched before the payload; the payload is executed only
// when its SHA-384 matches. On mismatch the downloaded file is removed
// and nothing runs.
func (i *Installer) Install(ctx context.Context) error {
	sig, err := fetch.Bytes(ctx, i.client, i.SigURL)
	if err != nil {
		return fmt.Errorf("fetching composer installer signature: %w", err)
	}
	expected := strings.TrimSpace(string(sig))

	payload, err := fetch.Bytes(ctx, i.client, i.InstallerURL)
	if err != nil {
		return fmt.Errorf("fetching composer installer: %w", err)
	}

	path := filepath.Join(i.WorkDir, "composer-setup.php")
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	sum := sha512.Sum384(payload)
	actual := hex.EncodeToString(sum[:])
	if actual != expected {
		os.Remove(path)
		return fmt.Errorf("composer installer checksum mismatch: expected %s, got %s (installer removed, nothing was executed)", expected, actual)
	}

	defer os.Remove(path)

	if err := i.run.ExecuteInteractive(ctx, "php", path, "--install-dir="+i.BinDir, "--filename=composer"); err != nil {
		return fmt.Errorf("composer installer failed: %w", err)
	}
	return nil
}
