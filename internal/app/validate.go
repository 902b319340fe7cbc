package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fenwick-labs/devstrap/internal/devcontainer"
	"github.com/fenwick-labs/devstrap/internal/workspace"
	"github.com/spf13/cobra"
)

var validateDir string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the descriptors in a project directory",
	Long: `Re-parses the environment descriptors in a project directory and
reports structural problems:

  .idx/dev.nix                     delimiter balance, required attributes
  .devcontainer/devcontainer.json  JSONC parse, container source
                                   consistency, referenced files

Compose files named by the devcontainer descriptor are parsed as YAML.
Nothing is evaluated or started; every check is static.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateDir, "dir", ".", "Project directory to check")

	RootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	checked := 0
	problems := 0

	nixPath := workspace.Path(validateDir)
	if src, err := os.ReadFile(nixPath); err == nil {
		checked++
		if issues := workspace.Lint(src); len(issues) > 0 {
			fmt.Println("✗", nixPath)
			for _, issue := range issues {
				fmt.Println("   ", issue)
			}
			problems += len(issues)
		} else {
			fmt.Println("✓", nixPath)
		}
	}

	if path, err := devcontainer.Find(validateDir); err == nil {
		checked++
		cfg, loadErr := devcontainer.Load(path)
		switch {
		case loadErr != nil:
			fmt.Println("✗", path)
			fmt.Println("   ", loadErr)
			problems++
		default:
			if issues := devcontainer.Validate(cfg, filepath.Dir(path)); len(issues) > 0 {
				fmt.Println("✗", path)
				for _, issue := range issues {
					fmt.Println("   ", issue)
				}
				problems += len(issues)
			} else {
				fmt.Println("✓", path)
			}
		}
	}

	if checked == 0 {
		return fmt.Errorf("no descriptors found in %s, run 'devstrap render' first", validateDir)
	}

	if problems > 0 {
		return fmt.Errorf("validation failed with %d problem(s)", problems)
	}
	return nil
}
