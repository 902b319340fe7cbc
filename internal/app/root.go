package app

import (
	"fmt"
	"os"

	"github.com/fenwick-labs/devstrap/internal/logging"
	"github.com/spf13/cobra"
)

// RootCmd is the root command for devstrap.
var RootCmd = &cobra.Command{
	Use:   "devstrap",
	Short: "Bootstrap a PHP + Node.js development environment",
	Long: `devstrap provisions the same PHP + Composer + Node.js + pnpm toolchain
through three independent paths:

  setup     Interactive installer for a bare Debian host (run with sudo).
  render    Author declarative descriptors (cloud workspace, devcontainer)
            into a project directory.
  validate  Re-parse and structurally check rendered descriptors.
  doctor    Read-only diagnosis of the host and installed toolchain.

The setup path is deliberately flag-free: every decision (OS upgrade,
editor, Node.js channel, Git identity) is an interactive prompt, and a
timestamped transcript of the run is appended to ` + logging.DefaultPath + `.

Examples:
  # Provision this machine
  sudo devstrap setup

  # Check what setup would find
  devstrap doctor

  # Write .idx/dev.nix and .devcontainer/devcontainer.json
  devstrap render --dir ./myapp

  # Check descriptors after hand-editing
  devstrap validate --dir ./myapp`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("devstrap: PHP + Node.js environment bootstrap")
		fmt.Println()
		if _, err := os.Stat(logging.DefaultPath); os.IsNotExist(err) {
			fmt.Println("Run 'sudo devstrap setup' to provision this host.")
			fmt.Println("Run 'devstrap --help' for the full reference.")
		} else {
			fmt.Println("A setup transcript exists at " + logging.DefaultPath + ".")
			fmt.Println("Tip: Run 'devstrap doctor' to verify the installed toolchain.")
			fmt.Println("     Run 'devstrap --help' for all commands.")
		}
		return nil
	},
}

func init() {
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}
