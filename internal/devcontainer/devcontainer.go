// Package devcontainer authors and checks the development container
// descriptor and its Dockerfile. Both are consumed by external container
// tooling; devstrap writes and validates the documents but never builds
// or runs a container.
//
// Hand-maintained descriptors are commonly JSONC, so loading strips
// comments with github.com/tidwall/jsonc before parsing. Rendering
// always emits plain JSON, which every JSONC reader also accepts.
package devcontainer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/fenwick-labs/devstrap/internal/profile"
	"github.com/tidwall/jsonc"
)

// Config is the descriptor subset devstrap authors and validates.
// Fields the external tooling defines beyond these pass through
// loading untouched and unchecked.
type Config struct {
	Name string `json:"name"`

	// Exactly one container source should be set: a prebuilt image, a
	// Dockerfile build, or a compose file reference.
	Image string `json:"image,omitempty"`
	Build *Build `json:"build,omitempty"`

	// DockerComposeFile is a single path or an array of paths.
	DockerComposeFile any    `json:"dockerComposeFile,omitempty"`
	Service           string `json:"service,omitempty"`

	ForwardPorts      []int             `json:"forwardPorts,omitempty"`
	ContainerEnv      map[string]string `json:"containerEnv,omitempty"`
	PostCreateCommand string            `json:"postCreateCommand,omitempty"`

	Customizations *Customizations `json:"customizations,omitempty"`
}

// Build selects a Dockerfile build.
type Build struct {
	Dockerfile string `json:"dockerfile,omitempty"`
	Context    string `json:"context,omitempty"`
}

// Customizations carries editor configuration.
type Customizations struct {
	VSCode VSCode `json:"vscode"`
}

// VSCode lists the extensions and settings applied inside the
// container editor.
type VSCode struct {
	Extensions []string       `json:"extensions,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
}

// Pattern classifies how a descriptor sources its container.
type Pattern string

const (
	PatternImage      Pattern = "image"
	PatternDockerfile Pattern = "dockerfile"
	PatternCompose    Pattern = "compose"
)

// Pattern returns the descriptor's container source. Compose wins over
// the other fields, matching how the external tooling resolves it.
func (c *Config) Pattern() Pattern {
	if c.DockerComposeFile != nil {
		return PatternCompose
	}
	if c.Build != nil {
		return PatternDockerfile
	}
	return PatternImage
}

// ComposeFiles normalizes dockerComposeFile into a path list. Nil when
// the descriptor is not compose-based.
func (c *Config) ComposeFiles() []string {
	switch v := c.DockerComposeFile.(type) {
	case string:
		return []string{v}
	case []any:
		files := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				files = append(files, s)
			}
		}
		return files
	default:
		return nil
	}
}

// Render produces the descriptor for the given container profile, as
// indented JSON. The container builds from the Dockerfile that
// RenderDockerfile writes next to the descriptor.
func Render(c profile.Container) ([]byte, error) {
	cfg := Config{
		Name:              c.Name,
		Build:             &Build{Dockerfile: "Dockerfile"},
		ForwardPorts:      c.Ports,
		ContainerEnv:      c.Env,
		PostCreateCommand: c.OnCreate,
		Customizations: &Customizations{
			VSCode: VSCode{
				Extensions: c.Extensions,
				Settings:   c.Settings,
			},
		},
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering devcontainer descriptor: %w", err)
	}
	return append(data, '\n'), nil
}

var dockerfileTmpl = template.Must(template.New("Dockerfile").Parse(`FROM {{.Base}}

# The same toolchain the host setup path installs: Sury PHP,
# NodeSource Node.js, pnpm, and Composer from the official image.
RUN apt-get update \
    && export DEBIAN_FRONTEND=noninteractive \
    && apt-get install -y --no-install-recommends \
{{.BasePackages}}    && rm -rf /var/lib/apt/lists/*

RUN curl -fsSL https://packages.sury.org/php/apt.gpg \
        -o /usr/share/keyrings/sury-php.gpg \
    && echo "deb [signed-by=/usr/share/keyrings/sury-php.gpg] https://packages.sury.org/php {{.Codename}} main" \
        > /etc/apt/sources.list.d/sury-php.list \
    && curl -fsSL https://deb.nodesource.com/gpgkey/nodesource-repo.gpg.key \
        | gpg --dearmor -o /usr/share/keyrings/nodesource.gpg \
    && echo "deb [signed-by=/usr/share/keyrings/nodesource.gpg] https://deb.nodesource.com/node_{{.NodeMajor}}.x nodistro main" \
        > /etc/apt/sources.list.d/nodesource.list

RUN apt-get update \
    && export DEBIAN_FRONTEND=noninteractive \
    && apt-get install -y --no-install-recommends \
{{.PHPPackages}}        nodejs \
    && npm install -g pnpm \
    && apt-get clean \
    && rm -rf /var/lib/apt/lists/*

COPY --from=composer:2 /usr/bin/composer /usr/local/bin/composer
`))

// dockerfileData holds pre-rendered fragments for the Dockerfile
// template.
type dockerfileData struct {
	Base         string
	Codename     string
	NodeMajor    int
	BasePackages string // one indented continuation line per package
	PHPPackages  string
}

// RenderDockerfile produces the container build file for the given
// profile, mirroring the toolchain the imperative setup path installs.
func RenderDockerfile(p profile.Profile) ([]byte, error) {
	data := dockerfileData{
		Base:         p.Container.Image,
		Codename:     p.Container.Codename,
		NodeMajor:    p.Container.NodeMajor,
		BasePackages: continuationLines(p.Packages.Base),
		PHPPackages:  continuationLines(p.PHP.DebianPackages()),
	}

	var out strings.Builder
	if err := dockerfileTmpl.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("rendering Dockerfile: %w", err)
	}
	return []byte(out.String()), nil
}

// continuationLines renders package names as backslash-continued RUN
// lines, one package per line.
func continuationLines(packages []string) string {
	var b strings.Builder
	for _, pkg := range packages {
		fmt.Fprintf(&b, "        %s \\\n", pkg)
	}
	return b.String()
}

// Find locates the descriptor under a project directory, preferring
// the .devcontainer subdirectory over the root-level file.
func Find(dir string) (string, error) {
	candidates := []string{
		filepath.Join(dir, ".devcontainer", "devcontainer.json"),
		filepath.Join(dir, ".devcontainer.json"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no devcontainer.json found in %s (searched .devcontainer/devcontainer.json and .devcontainer.json)", dir)
}

// Load reads and parses a descriptor, stripping JSONC comments first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return &cfg, nil
}

// DefaultPath returns where Render output belongs under a project
// directory.
func DefaultPath(dir string) string {
	return filepath.Join(dir, ".devcontainer", "devcontainer.json")
}

// DockerfilePath returns where RenderDockerfile output belongs under a
// project directory.
func DockerfilePath(dir string) string {
	return filepath.Join(dir, ".devcontainer", "Dockerfile")
}
