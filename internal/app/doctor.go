package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fenwick-labs/devstrap/internal/logging"
	"github.com/fenwick-labs/devstrap/internal/output"
	"github.com/fenwick-labs/devstrap/internal/preflight"
	"github.com/fenwick-labs/devstrap/internal/system"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the host without changing it",
	Long: `Runs read-only diagnostic checks against the current host.

Checks:
  • Operating system is a supported Debian release
  • apt-get is available
  • Enough free disk space for a full toolchain install
  • Which of the tools setup installs are already present

Nothing is installed or modified. Run 'sudo devstrap setup' to fix
what doctor reports.`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

// Overridable in tests.
var (
	doctorProbes  = preflight.Defaults
	doctorRunner  = func() system.Runner { return system.NewExec() }
	doctorLogPath = logging.DefaultPath
)

// doctorTools are the commands a completed setup leaves on PATH, each
// probed with --version.
var doctorTools = []string{"php", "composer", "node", "pnpm", "git"}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("Running devstrap diagnostics...")
	fmt.Println()

	// Track critical vs warning-level issues separately: criticals make
	// setup refuse to run, warnings are things setup would fix.
	criticalIssues := 0
	warningIssues := 0

	report := preflight.Inspect(doctorProbes())
	run := doctorRunner()

	// Check 1: operating system
	switch {
	case report.OSErr != nil:
		fmt.Println("✗ Cannot read /etc/os-release:", report.OSErr)
		criticalIssues++
	case report.OS.ID != "debian":
		fmt.Printf("✗ Unsupported operating system %q, Debian is required\n", report.OS.ID)
		criticalIssues++
	case report.OS.PrettyName != "":
		fmt.Println("✓ Operating system:", report.OS.PrettyName)
	default:
		fmt.Println("✓ Operating system: Debian", report.OS.Codename)
	}

	// Check 2: apt available
	if report.AptPath == "" {
		fmt.Println("✗ apt-get not found on PATH")
		criticalIssues++
	} else {
		fmt.Println("✓ apt-get found:", report.AptPath)
	}

	// Check 3: free disk space
	switch {
	case report.DiskErr != nil:
		fmt.Println("✗ Cannot check free disk space:", report.DiskErr)
		criticalIssues++
	case report.FreeBytes < preflight.MinFreeBytes:
		fmt.Printf("✗ Insufficient free disk space: %.1f GiB available, %d GiB required\n",
			float64(report.FreeBytes)/(1<<30), preflight.MinFreeBytes>>30)
		criticalIssues++
	default:
		fmt.Printf("✓ Free disk space: %.1f GiB\n", float64(report.FreeBytes)/(1<<30))
	}

	// Check 4: privilege. A warning only, doctor itself needs none.
	if report.Euid != 0 {
		fmt.Printf("⚠ Not running as root (euid %d)\n", report.Euid)
		fmt.Println("  Action: Run 'sudo devstrap setup' when you are ready to provision")
		warningIssues++
	} else {
		fmt.Println("✓ Running as root")

		// Check 5: invoking user, only meaningful under sudo
		if report.InvokingUser == nil {
			fmt.Println("⚠ Cannot determine the invoking user:", report.UserReason)
			fmt.Println("  Action: Invoke via sudo so per-user steps know who to act for")
			warningIssues++
		} else {
			fmt.Println("✓ Invoking user:", report.InvokingUser.Username)
		}
	}

	// Check 6: toolchain presence
	for _, tool := range doctorTools {
		out, err := run.Execute(cmd.Context(), tool, "--version")
		if err != nil {
			fmt.Printf("⚠ %s not installed\n", tool)
			warningIssues++
			continue
		}
		version := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
		if version == "" {
			fmt.Printf("✓ %s installed\n", tool)
		} else {
			fmt.Printf("✓ %s: %s\n", tool, version)
		}
	}

	fmt.Println()
	if criticalIssues == 0 && warningIssues == 0 {
		fmt.Println(output.Green("✓ All checks passed!"))
		fmt.Println()
		fmt.Println("Next steps:")
		if _, err := os.Stat(doctorLogPath); err == nil {
			fmt.Println("  • Review the setup transcript:", doctorLogPath)
		} else {
			fmt.Println("  • Provision the host: sudo devstrap setup")
		}
		fmt.Println("  • Author project descriptors: devstrap render")
		return nil
	}

	if criticalIssues > 0 {
		msg := fmt.Sprintf("Found %d critical issue(s) and %d warning(s).", criticalIssues, warningIssues)
		fmt.Println(output.Red(msg))
		return fmt.Errorf("diagnostics failed")
	}

	// Warnings only: exit 2 directly so main's error handler is never
	// reached and the message is not printed twice.
	msg := fmt.Sprintf("Found %d warning(s). Run 'sudo devstrap setup' to install what is missing.", warningIssues)
	fmt.Println(output.Yellow(msg))
	os.Exit(2)
	return nil // unreachable; satisfies compiler
}
