package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// overrideValidate points the validate flag at a test directory.
func overrideValidate(t *testing.T, dir string) {
	t.Helper()
	oldDir := validateDir
	validateDir = dir
	t.Cleanup(func() { validateDir = oldDir })
}

// renderInto writes the default descriptors into dir.
func renderInto(t *testing.T, dir string) {
	t.Helper()
	overrideRender(t, dir, "", false)
	var err error
	captureStdout(t, func() { err = runRender(renderCmd, []string{}) })
	if err != nil {
		t.Fatalf("runRender: %v", err)
	}
}

func TestRunValidate_CleanTree(t *testing.T) {
	dir := t.TempDir()
	renderInto(t, dir)
	overrideValidate(t, dir)

	var runErr error
	out := captureStdout(t, func() {
		runErr = runValidate(validateCmd, []string{})
	})
	if runErr != nil {
		t.Fatalf("runValidate: %v", runErr)
	}

	if got := strings.Count(out, "✓ "); got != 2 {
		t.Errorf("expected 2 clean descriptors, got %d:\n%s", got, out)
	}
	if strings.Contains(out, "✗") {
		t.Errorf("expected no problems, got:\n%s", out)
	}
}

func TestRunValidate_ReportsBrokenWorkspace(t *testing.T) {
	dir := t.TempDir()
	renderInto(t, dir)
	nixPath := filepath.Join(dir, ".idx", "dev.nix")
	if err := os.WriteFile(nixPath, []byte("{ pkgs, ... }: {\n  channel = \"stable-24.05\";\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	overrideValidate(t, dir)

	var runErr error
	out := captureStdout(t, func() {
		runErr = runValidate(validateCmd, []string{})
	})

	if runErr == nil {
		t.Fatal("expected runValidate to fail on a truncated dev.nix")
	}
	if !strings.Contains(runErr.Error(), "validation failed") {
		t.Errorf("expected validation failure, got: %v", runErr)
	}
	if !strings.Contains(out, "✗ "+nixPath) {
		t.Errorf("expected problem report for dev.nix, got:\n%s", out)
	}
	// The devcontainer descriptor is still checked and still clean.
	if !strings.Contains(out, "✓ "+filepath.Join(dir, ".devcontainer", "devcontainer.json")) {
		t.Errorf("expected devcontainer.json to pass, got:\n%s", out)
	}
}

func TestRunValidate_ReportsUnparsableDevcontainer(t *testing.T) {
	dir := t.TempDir()
	renderInto(t, dir)
	dcPath := filepath.Join(dir, ".devcontainer", "devcontainer.json")
	if err := os.WriteFile(dcPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	overrideValidate(t, dir)

	var runErr error
	out := captureStdout(t, func() {
		runErr = runValidate(validateCmd, []string{})
	})

	if runErr == nil {
		t.Fatal("expected runValidate to fail on unparsable JSON")
	}
	if !strings.Contains(out, "✗ "+dcPath) {
		t.Errorf("expected problem report for devcontainer.json, got:\n%s", out)
	}
}

func TestRunValidate_ReportsStructuralProblems(t *testing.T) {
	dir := t.TempDir()
	dcDir := filepath.Join(dir, ".devcontainer")
	if err := os.MkdirAll(dcDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	descriptor := `{
  // attaches to a compose service
  "name": "shop",
  "dockerComposeFile": "docker-compose.yml",
  "service": "web"
}
`
	if err := os.WriteFile(filepath.Join(dcDir, "devcontainer.json"), []byte(descriptor), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dcDir, "docker-compose.yml"), []byte("services: [broken\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	overrideValidate(t, dir)

	var runErr error
	out := captureStdout(t, func() {
		runErr = runValidate(validateCmd, []string{})
	})

	if runErr == nil {
		t.Fatal("expected runValidate to fail on a broken compose file")
	}
	if !strings.Contains(out, "compose file docker-compose.yml is not valid YAML") {
		t.Errorf("expected compose YAML problem, got:\n%s", out)
	}
}

func TestRunValidate_NothingFound(t *testing.T) {
	overrideValidate(t, t.TempDir())

	err := runValidate(validateCmd, []string{})
	if err == nil {
		t.Fatal("expected runValidate to fail when no descriptors exist")
	}
	if !strings.Contains(err.Error(), "no descriptors found") {
		t.Errorf("expected no-descriptors error, got: %v", err)
	}
}
