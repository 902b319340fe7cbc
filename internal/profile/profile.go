// Package profile defines which toolchain devstrap provisions and what
// the rendered workspace descriptors contain. The built-in default
// covers the standard PHP and Node development stack; a TOML file can
// override any part of it.
package profile

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Profile is the full provisioning and rendering configuration.
type Profile struct {
	PHP       PHP       `toml:"php"`
	Packages  Packages  `toml:"packages"`
	Upgrade   Upgrade   `toml:"upgrade"`
	Workspace Workspace `toml:"workspace"`
	Container Container `toml:"container"`
}

// PHP selects the interpreter version and extension set.
type PHP struct {
	Version    string   `toml:"version"`
	Extensions []string `toml:"extensions"`
}

// DebianPackages returns the apt package names for the interpreter and
// every configured extension.
func (p PHP) DebianPackages() []string {
	pkgs := []string{fmt.Sprintf("php%s", p.Version)}
	for _, ext := range p.Extensions {
		pkgs = append(pkgs, fmt.Sprintf("php%s-%s", p.Version, ext))
	}
	return pkgs
}

// Packages lists the non-PHP apt packages.
type Packages struct {
	// Base are the prerequisites installed before any repository work.
	Base []string `toml:"base"`

	// Editor is the editor package, installed only when the operator
	// opts in.
	Editor string `toml:"editor"`
}

// Upgrade names the release the OS upgrade path moves to.
type Upgrade struct {
	Target string `toml:"target"`
}

// Workspace describes the cloud workspace descriptor: a channel, a
// package list, environment, editor extensions, preview processes and
// the two lifecycle hooks.
type Workspace struct {
	Channel    string            `toml:"channel"`
	Packages   []string          `toml:"packages"`
	Env        map[string]string `toml:"env"`
	Extensions []string          `toml:"extensions"`
	OnCreate   string            `toml:"on_create"`
	OnStart    string            `toml:"on_start"`
	Previews   []Preview         `toml:"previews"`
}

// Preview is one preview process definition.
type Preview struct {
	Name    string `toml:"name"`
	Command string `toml:"command"`
	Manager string `toml:"manager"`
}

// Container describes the devcontainer build: the FROM base image, the
// Debian suite and Node major the container's apt repositories pin, and
// the editor extensions and settings applied inside it.
type Container struct {
	Name       string            `toml:"name"`
	Image      string            `toml:"image"`
	Codename   string            `toml:"codename"`
	NodeMajor  int               `toml:"node_major"`
	Ports      []int             `toml:"ports"`
	Env        map[string]string `toml:"env"`
	Extensions []string          `toml:"extensions"`
	Settings   map[string]any    `toml:"settings"`
	OnCreate   string            `toml:"on_create"`
}

// Default returns the stock PHP and Node development profile.
func Default() Profile {
	return Profile{
		PHP: PHP{
			Version: "8.3",
			Extensions: []string{
				"cli", "fpm", "mbstring", "xml", "curl", "zip",
				"intl", "gd", "bcmath", "mysql", "sqlite3",
			},
		},
		Packages: Packages{
			Base: []string{
				"ca-certificates", "curl", "gnupg", "lsb-release",
				"apt-transport-https", "git", "unzip",
			},
			Editor: "code",
		},
		Upgrade: Upgrade{Target: "trixie"},
		Workspace: Workspace{
			Channel: "stable-24.05",
			Packages: []string{
				"pkgs.php83",
				"pkgs.php83Packages.composer",
				"pkgs.nodejs_22",
				"pkgs.nodePackages.pnpm",
			},
			Env: map[string]string{
				"COMPOSER_MEMORY_LIMIT": "-1",
			},
			Extensions: []string{
				"bmewburn.vscode-intelephense-client",
				"xdebug.php-debug",
				"dbaeumer.vscode-eslint",
				"esbenp.prettier-vscode",
			},
			OnCreate: "composer install && pnpm install",
			OnStart:  "pnpm run dev",
			Previews: []Preview{
				{
					Name:    "web",
					Command: "php -S 0.0.0.0:$PORT -t public",
					Manager: "web",
				},
			},
		},
		Container: Container{
			Name:      "php-node",
			Image:     "mcr.microsoft.com/devcontainers/base:bookworm",
			Codename:  "bookworm",
			NodeMajor: 22,
			Ports:     []int{8000},
			Env: map[string]string{
				"COMPOSER_MEMORY_LIMIT": "-1",
			},
			Extensions: []string{
				"bmewburn.vscode-intelephense-client",
				"xdebug.php-debug",
				"dbaeumer.vscode-eslint",
				"esbenp.prettier-vscode",
			},
			Settings: map[string]any{
				"editor.formatOnSave":         true,
				"php.validate.executablePath": "/usr/local/bin/php",
			},
			OnCreate: "composer install && pnpm install",
		},
	}
}

// Load reads a TOML profile. Keys absent from the file keep their
// default values.
func Load(path string) (Profile, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("cannot read profile %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("cannot parse profile %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return p, nil
}

var phpVersionRe = regexp.MustCompile(`^\d+\.\d+$`)

// Validate checks the profile for values the renderers and the
// provisioner cannot work with.
func (p Profile) Validate() error {
	if !phpVersionRe.MatchString(p.PHP.Version) {
		return fmt.Errorf("php version %q must look like 8.3", p.PHP.Version)
	}
	if p.Workspace.Channel == "" {
		return fmt.Errorf("workspace channel must not be empty")
	}
	if p.Container.Image == "" {
		return fmt.Errorf("container image must not be empty")
	}
	if p.Container.Codename == "" {
		return fmt.Errorf("container codename must not be empty")
	}
	if p.Container.NodeMajor < 1 {
		return fmt.Errorf("container node_major %d must be positive", p.Container.NodeMajor)
	}
	for _, pv := range p.Workspace.Previews {
		if pv.Name == "" || pv.Command == "" {
			return fmt.Errorf("preview entries need both a name and a command")
		}
	}
	return nil
}
