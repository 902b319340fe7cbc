package devcontainer

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Validate runs structural checks over a descriptor and returns one
// message per problem. baseDir is the directory the descriptor's
// relative paths resolve against, normally the directory containing
// devcontainer.json.
func Validate(cfg *Config, baseDir string) []string {
	var problems []string

	if cfg.Name == "" {
		problems = append(problems, "name is empty")
	}

	sources := 0
	if cfg.Image != "" {
		sources++
	}
	if cfg.Build != nil {
		sources++
	}
	if cfg.DockerComposeFile != nil {
		sources++
	}
	switch {
	case sources == 0:
		problems = append(problems, "no container source: set image, build.dockerfile or dockerComposeFile")
	case sources > 1:
		problems = append(problems, "multiple container sources set; use one of image, build or dockerComposeFile")
	}

	if cfg.Build != nil {
		if cfg.Build.Dockerfile == "" {
			problems = append(problems, "build is set but build.dockerfile is empty")
		} else if _, err := os.Stat(filepath.Join(baseDir, cfg.Build.Dockerfile)); err != nil {
			problems = append(problems, fmt.Sprintf("build.dockerfile %s does not exist", cfg.Build.Dockerfile))
		}
	}

	if cfg.DockerComposeFile != nil {
		problems = append(problems, validateCompose(cfg, baseDir)...)
	} else if cfg.Service != "" {
		problems = append(problems, "service is set but dockerComposeFile is not")
	}

	for _, port := range cfg.ForwardPorts {
		if port < 1 || port > 65535 {
			problems = append(problems, fmt.Sprintf("forwardPorts entry %d is not a valid port", port))
		}
	}

	return problems
}

// composeDoc is the slice of a compose file validation reads.
type composeDoc struct {
	Services map[string]any `yaml:"services"`
}

// validateCompose checks that every referenced compose file exists,
// parses as YAML, and that the named service is defined in one of them.
func validateCompose(cfg *Config, baseDir string) []string {
	var problems []string

	files := cfg.ComposeFiles()
	if len(files) == 0 {
		problems = append(problems, "dockerComposeFile is set but names no files")
		return problems
	}

	services := map[string]bool{}
	for _, file := range files {
		path := filepath.Join(baseDir, file)
		data, err := os.ReadFile(path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("compose file %s does not exist", file))
			continue
		}

		var doc composeDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			problems = append(problems, fmt.Sprintf("compose file %s is not valid YAML: %v", file, err))
			continue
		}
		for name := range doc.Services {
			services[name] = true
		}
	}

	switch {
	case cfg.Service == "":
		problems = append(problems, "compose configurations need a service to attach to")
	case !services[cfg.Service]:
		problems = append(problems, fmt.Sprintf("service %q is not defined in the compose files", cfg.Service))
	}

	return problems
}
