package app

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fenwick-labs/devstrap/internal/preflight"
	"github.com/fenwick-labs/devstrap/internal/system"
)

// healthyProbes describes a root shell on a Debian host with ample disk,
// rooted at a fixture tree under t.TempDir.
func healthyProbes(t *testing.T) preflight.Probes {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "etc"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	osRelease := "PRETTY_NAME=\"Debian GNU/Linux 12 (bookworm)\"\nID=debian\nVERSION_CODENAME=bookworm\n"
	if err := os.WriteFile(filepath.Join(root, "etc/os-release"), []byte(osRelease), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return preflight.Probes{
		Euid: func() int { return 0 },
		Getenv: func(key string) string {
			if key == "SUDO_USER" {
				return "dev"
			}
			return ""
		},
		LookupUser: func(name string) (*user.User, error) {
			return &user.User{Username: name, Uid: "1000", HomeDir: "/home/" + name}, nil
		},
		LookPath: func(file string) (string, error) {
			return "/usr/bin/" + file, nil
		},
		FreeBytes: func(path string) (uint64, error) {
			return 10 << 30, nil
		},
		Root: root,
	}
}

// toolRecorder answers --version for every tool doctor probes.
func toolRecorder() *system.Recorder {
	rec := system.NewRecorder()
	rec.Respond("php", []byte("PHP 8.3.6 (cli) (built: Apr 11 2024 12:00:00)\nCopyright (c) The PHP Group\n"), nil)
	rec.Respond("composer", []byte("Composer version 2.7.6 2024-05-04\n"), nil)
	rec.Respond("node", []byte("v22.11.0\n"), nil)
	rec.Respond("pnpm", []byte("9.12.0\n"), nil)
	rec.Respond("git", []byte("git version 2.45.2\n"), nil)
	return rec
}

// overrideDoctor swaps the doctor probes, runner and transcript path for
// the duration of a test.
func overrideDoctor(t *testing.T, probes preflight.Probes, rec *system.Recorder, logPath string) {
	t.Helper()
	oldProbes, oldRunner, oldLog := doctorProbes, doctorRunner, doctorLogPath
	doctorProbes = func() preflight.Probes { return probes }
	doctorRunner = func() system.Runner { return rec }
	doctorLogPath = logPath
	t.Cleanup(func() {
		doctorProbes, doctorRunner, doctorLogPath = oldProbes, oldRunner, oldLog
	})
}

// captureStdout replaces os.Stdout with a pipe during f(), then restores
// it and returns all bytes written to stdout.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	f()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestRunDoctor_AllPass(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "devstrap.log")
	if err := os.WriteFile(logPath, []byte("transcript\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	overrideDoctor(t, healthyProbes(t), toolRecorder(), logPath)

	var runErr error
	out := captureStdout(t, func() {
		runErr = runDoctor(doctorCmd, []string{})
	})
	if runErr != nil {
		t.Fatalf("runDoctor: %v", runErr)
	}

	if !strings.Contains(out, "✓ All checks passed!") {
		t.Errorf("expected all-pass summary, got:\n%s", out)
	}
	if !strings.Contains(out, "✓ Operating system: Debian GNU/Linux 12 (bookworm)") {
		t.Errorf("expected OS line, got:\n%s", out)
	}
	if !strings.Contains(out, "✓ Invoking user: dev") {
		t.Errorf("expected invoking user line, got:\n%s", out)
	}
	if !strings.Contains(out, "✓ php: PHP 8.3.6 (cli) (built: Apr 11 2024 12:00:00)") {
		t.Errorf("expected php version line, got:\n%s", out)
	}
	// Version output is trimmed to its first line.
	if strings.Contains(out, "Copyright") {
		t.Errorf("expected multi-line version output to be trimmed, got:\n%s", out)
	}
	if !strings.Contains(out, "Review the setup transcript: "+logPath) {
		t.Errorf("expected transcript hint, got:\n%s", out)
	}
}

func TestRunDoctor_CriticalIssueReturnsError(t *testing.T) {
	probes := healthyProbes(t)
	probes.FreeBytes = func(path string) (uint64, error) { return 1 << 30, nil }
	probes.Getenv = func(key string) string { return "" }
	rec := toolRecorder()
	rec.Respond("pnpm", nil, errors.New("executable file not found in $PATH"))
	overrideDoctor(t, probes, rec, filepath.Join(t.TempDir(), "devstrap.log"))

	var runErr error
	out := captureStdout(t, func() {
		runErr = runDoctor(doctorCmd, []string{})
	})

	if runErr == nil {
		t.Fatal("expected runDoctor to return an error for critical issues")
	}
	if !strings.Contains(runErr.Error(), "diagnostics failed") {
		t.Errorf("expected 'diagnostics failed', got: %v", runErr)
	}

	if !strings.Contains(out, "✗ Insufficient free disk space: 1.0 GiB available, 5 GiB required") {
		t.Errorf("expected disk space failure, got:\n%s", out)
	}
	if !strings.Contains(out, "⚠ Cannot determine the invoking user: SUDO_USER is not set") {
		t.Errorf("expected invoking user warning, got:\n%s", out)
	}
	if !strings.Contains(out, "⚠ pnpm not installed") {
		t.Errorf("expected missing tool warning, got:\n%s", out)
	}
	if !strings.Contains(out, "Found 1 critical issue(s) and 2 warning(s).") {
		t.Errorf("expected issue summary, got:\n%s", out)
	}
}

func TestRunDoctor_NonDebianIsCritical(t *testing.T) {
	probes := healthyProbes(t)
	if err := os.WriteFile(filepath.Join(probes.Root, "etc/os-release"), []byte("ID=fedora\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	overrideDoctor(t, probes, toolRecorder(), filepath.Join(t.TempDir(), "devstrap.log"))

	var runErr error
	out := captureStdout(t, func() {
		runErr = runDoctor(doctorCmd, []string{})
	})

	if runErr == nil {
		t.Fatal("expected runDoctor to return an error on a non-Debian host")
	}
	if !strings.Contains(out, `✗ Unsupported operating system "fedora"`) {
		t.Errorf("expected unsupported OS failure, got:\n%s", out)
	}
}

// TestDoctorWarningsExitTwo verifies the warnings-only exit code via a
// subprocess, since that path calls os.Exit(2) directly.
func TestDoctorWarningsExitTwo(t *testing.T) {
	if os.Getenv("DEVSTRAP_TEST_DOCTOR_WARNING_SUBPROCESS") == "1" {
		// ---- Child process ----
		// Healthy host, all tools present, but not running as root: one
		// warning, no criticals.
		probes := healthyProbes(t)
		probes.Euid = func() int { return 1000 }
		overrideDoctor(t, probes, toolRecorder(), filepath.Join(t.TempDir(), "devstrap.log"))

		runDoctor(doctorCmd, []string{}) //nolint:errcheck // exits 2 before returning
		return
	}

	// ---- Parent process ----
	cmd := exec.Command(os.Args[0], "-test.run=TestDoctorWarningsExitTwo", "-test.v")
	cmd.Env = append(os.Environ(), "DEVSTRAP_TEST_DOCTOR_WARNING_SUBPROCESS=1")
	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected exit code 2 from doctor with warnings only, got err=%v\noutput:\n%s", err, out)
	}
	if code := exitErr.ExitCode(); code != 2 {
		t.Errorf("expected exit code 2, got %d\noutput:\n%s", code, out)
	}
	if !strings.Contains(string(out), "⚠ Not running as root (euid 1000)") {
		t.Errorf("expected root warning in output, got:\n%s", out)
	}
	if !strings.Contains(string(out), "Found 1 warning(s).") {
		t.Errorf("expected warnings summary in output, got:\n%s", out)
	}
}

func TestDoctorIsReadOnly(t *testing.T) {
	rec := toolRecorder()
	overrideDoctor(t, healthyProbes(t), rec, filepath.Join(t.TempDir(), "devstrap.log"))

	captureStdout(t, func() {
		runDoctor(doctorCmd, []string{}) //nolint:errcheck
	})

	for _, line := range rec.Lines() {
		if !strings.HasSuffix(line, " --version") {
			t.Errorf("doctor executed a non-probe command: %s", line)
		}
	}
}
