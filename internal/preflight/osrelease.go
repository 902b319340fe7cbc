package preflight

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Release is the subset of /etc/os-release devstrap reads.
type Release struct {
	ID         string
	Codename   string
	PrettyName string
}

// loadRelease reads os-release under the given filesystem root.
func loadRelease(root string) (Release, error) {
	f, err := os.Open(filepath.Join(root, "etc/os-release"))
	if err != nil {
		return Release{}, err
	}
	defer f.Close()
	return parseRelease(f)
}

// parseRelease reads KEY=VALUE lines, tolerating quoted values and
// skipping comments and blanks.
func parseRelease(r io.Reader) (Release, error) {
	var rel Release

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)

		switch key {
		case "ID":
			rel.ID = value
		case "VERSION_CODENAME":
			rel.Codename = value
		case "PRETTY_NAME":
			rel.PrettyName = value
		}
	}

	return rel, scanner.Err()
}
