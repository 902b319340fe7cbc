package apt

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenwick-labs/devstrap/internal/fetch"
	"github.com/fenwick-labs/devstrap/internal/system"
)

// Repo describes a third-party package source: where its signing key
// lives and the deb line to register.
type Repo struct {
	// Name is the file stem for both the keyring and the source list,
	// e.g. "sury-php" becomes sury-php.gpg and sury-php.list.
	Name string

	KeyURL     string
	URL        string
	Suite      string
	Components string

	// Arch restricts the source to one dpkg architecture. Empty means
	// unrestricted.
	Arch string
}

// Line renders the deb source line for the given keyring path.
func (r Repo) Line(keyring string) string {
	opts := fmt.Sprintf("signed-by=%s", keyring)
	if r.Arch != "" {
		opts = fmt.Sprintf("arch=%s ", r.Arch) + opts
	}
	return fmt.Sprintf("deb [%s] %s %s %s", opts, r.URL, r.Suite, r.Components)
}

// Sources registers third-party repositories: it fetches signing keys
// into the keyring directory and writes source-list files.
type Sources struct {
	run    system.Runner
	client *http.Client

	// KeyringDir and ListDir default to the standard Debian locations;
	// tests point them into a scratch directory.
	KeyringDir string
	ListDir    string
}

// NewSources returns a Sources writing to the standard apt directories.
func NewSources(run system.Runner, client *http.Client) *Sources {
	return &Sources{
		run:        run,
		client:     client,
		KeyringDir: "/usr/share/keyrings",
		ListDir:    "/etc/apt/sources.list.d",
	}
}

// armorHeader marks an ASCII-armored key, which must be converted to
// binary form before apt will read it from a keyring file.
const armorHeader = "-----BEGIN PGP PUBLIC KEY BLOCK-----"

// EnsureKeyring downloads the repo's signing key and installs it as
// name.gpg, dearmoring if the key arrives ASCII-armored. An existing
// keyring file is left untouched.
func (s *Sources) EnsureKeyring(ctx context.Context, repo Repo) (string, error) {
	path := filepath.Join(s.KeyringDir, repo.Name+".gpg")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	key, err := fetch.Bytes(ctx, s.client, repo.KeyURL)
	if err != nil {
		return "", fmt.Errorf("fetching signing key for %s: %w", repo.Name, err)
	}

	if err := os.MkdirAll(s.KeyringDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create keyring directory: %w", err)
	}

	if strings.HasPrefix(strings.TrimSpace(string(key)), armorHeader) {
		out, err := s.run.ExecuteWithStdin(ctx, bytes.NewReader(key), "gpg", "--dearmor", "--yes", "-o", path)
		if err != nil {
			return "", fmt.Errorf("gpg --dearmor for %s failed: %w (output: %s)", repo.Name, err, string(out))
		}
		return path, nil
	}

	if err := os.WriteFile(path, key, 0644); err != nil {
		return "", fmt.Errorf("cannot write keyring %s: %w", path, err)
	}
	return path, nil
}

// EnsureRepo installs the repo's signing key and writes its source-list
// file. Returns added=false when an identical source line was already
// registered.
func (s *Sources) EnsureRepo(ctx context.Context, repo Repo) (added bool, err error) {
	keyring, err := s.EnsureKeyring(ctx, repo)
	if err != nil {
		return false, err
	}

	line := repo.Line(keyring) + "\n"
	listPath := filepath.Join(s.ListDir, repo.Name+".list")

	if existing, err := os.ReadFile(listPath); err == nil && string(existing) == line {
		return false, nil
	}

	if err := os.MkdirAll(s.ListDir, 0755); err != nil {
		return false, fmt.Errorf("cannot create sources directory: %w", err)
	}
	if err := os.WriteFile(listPath, []byte(line), 0644); err != nil {
		return false, fmt.Errorf("cannot write source list %s: %w", listPath, err)
	}
	return true, nil
}

// RewriteCodename switches every occurrence of the release codename in
// the main source list from one release to another, for the upgrade
// path. Returns how many occurrences changed.
func RewriteCodename(path, from, to string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("cannot read %s: %w", path, err)
	}

	n := strings.Count(string(data), from)
	if n == 0 {
		return 0, nil
	}

	updated := strings.ReplaceAll(string(data), from, to)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		return 0, fmt.Errorf("cannot write %s: %w", path, err)
	}
	return n, nil
}
