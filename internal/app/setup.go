package app

import (
	"os"

	"github.com/fenwick-labs/devstrap/internal/provision"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install the PHP + Node.js toolchain on this Debian host",
	Long: `Provisions a bare Debian host with PHP, Composer, Node.js, pnpm,
Playwright and optionally Visual Studio Code.

The command takes no flags. Every decision is an interactive prompt:
  • whether to upgrade the OS release first (full upgrade)
  • whether to install Visual Studio Code
  • which Node.js channel to follow (lts or current)
  • whether to configure a global Git identity

Run it with sudo. The pre-sudo user receives the per-user tools (pnpm,
Playwright browsers, Git identity); when that user cannot be determined
those steps are skipped and the rest proceeds.

Execution is fail-fast: the first error ends the run with exit status 1
and nothing is retried or rolled back. A timestamped transcript is
appended to the fixed log path on every run.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	RootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	// Debconf dialogs would fight the attached apt output; answers come
	// from our own prompts, not debconf's.
	os.Setenv("DEBIAN_FRONTEND", "noninteractive")

	engine := provision.New(provision.Config{})
	return engine.Run(cmd.Context())
}
