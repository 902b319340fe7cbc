// Package hostcfg edits host configuration files with a check-then-append
// contract: a line is appended only when the file does not already
// contain it.
package hostcfg

import (
	"fmt"
	"os"
	"strings"
)

// EnsureLine appends line to the file at path unless the file already
// contains it. Returns added=false when the line was present and no
// change was made. The file is created if it does not exist.
//
// The presence check is a literal substring match. A line that exists
// with different spacing or formatting is treated as absent and the
// canonical form is appended alongside it.
func EnsureLine(path, line string) (added bool, err error) {
	existing, readErr := os.ReadFile(path)
	if readErr == nil {
		if strings.Contains(string(existing), line) {
			return false, nil
		}
	} else if !os.IsNotExist(readErr) {
		return false, fmt.Errorf("cannot read %s: %w", path, readErr)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return false, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	// Do not glue onto an unterminated last line.
	entry := line + "\n"
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		entry = "\n" + entry
	}

	if _, err := f.WriteString(entry); err != nil {
		return false, fmt.Errorf("cannot write to %s: %w", path, err)
	}

	return true, nil
}
