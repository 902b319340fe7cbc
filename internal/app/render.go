package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fenwick-labs/devstrap/internal/devcontainer"
	"github.com/fenwick-labs/devstrap/internal/profile"
	"github.com/fenwick-labs/devstrap/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	renderDir     string
	renderProfile string
	renderForce   bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write workspace and devcontainer descriptors into a project",
	Long: `Renders the declarative environment descriptors into a project directory:

  .idx/dev.nix                     cloud workspace definition
  .devcontainer/devcontainer.json  container workspace definition
  .devcontainer/Dockerfile         container build mirroring the setup
                                   toolchain

All are derived from the built-in profile, or from a TOML profile given
with --profile. Existing descriptors are left untouched unless --force
is set.`,
	Example: `  # Render into the current directory with the default profile
  devstrap render

  # Render into another project from a custom profile
  devstrap render --dir ~/src/shop --profile shop.toml

  # Overwrite descriptors that already exist
  devstrap render --force`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderDir, "dir", ".", "Project directory to render into")
	renderCmd.Flags().StringVar(&renderProfile, "profile", "", "TOML profile overriding the built-in defaults")
	renderCmd.Flags().BoolVar(&renderForce, "force", false, "Overwrite descriptors that already exist")

	RootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	prof := profile.Default()
	if renderProfile != "" {
		var err error
		prof, err = profile.Load(renderProfile)
		if err != nil {
			return err
		}
	}

	targets := []string{
		workspace.Path(renderDir),
		devcontainer.DefaultPath(renderDir),
		devcontainer.DockerfilePath(renderDir),
	}

	// Refuse before writing anything, so a failed run never leaves some
	// descriptors updated and the rest stale.
	if !renderForce {
		for _, path := range targets {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists, re-run with --force to overwrite", path)
			}
		}
	}

	nix, err := workspace.Render(prof.Workspace)
	if err != nil {
		return err
	}
	container, err := devcontainer.Render(prof.Container)
	if err != nil {
		return err
	}
	dockerfile, err := devcontainer.RenderDockerfile(prof)
	if err != nil {
		return err
	}

	for i, data := range [][]byte{nix, container, dockerfile} {
		path := targets[i]
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("cannot write %s: %w", path, err)
		}
		fmt.Println("✓ Wrote", path)
	}

	return nil
}
