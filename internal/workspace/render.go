// Package workspace renders and checks the cloud workspace descriptor,
// a Nix attribute set consumed by the workspace platform. This package
// authors the document; nothing here evaluates Nix.
package workspace

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/fenwick-labs/devstrap/internal/profile"
)

// Path returns where the descriptor lives relative to a project
// directory.
func Path(dir string) string {
	return filepath.Join(dir, ".idx", "dev.nix")
}

// nixData holds pre-rendered fragments for the descriptor template.
type nixData struct {
	Channel    string
	Packages   string // one indented pkgs attribute per line
	Env        string // indented name = "value"; lines
	Extensions string // indented quoted extension ids
	Previews   string // fully rendered preview attribute sets
	OnCreate   string // quoted hook command
	OnStart    string // quoted hook command
}

var nixTmpl = template.Must(template.New("dev.nix").Parse(`{ pkgs, ... }: {
  # Which nixpkgs channel to use.
  channel = "{{.Channel}}";

  packages = [
{{.Packages}}  ];

  # Environment variables set in every workspace session.
  env = {
{{.Env}}  };

  idx = {
    extensions = [
{{.Extensions}}    ];

    previews = {
      enable = true;
      previews = {
{{.Previews}}      };
    };

    workspace = {
      # Runs once, when the workspace is first created.
      onCreate = {
        setup = {{.OnCreate}};
      };
      # Runs every time the workspace is (re)started.
      onStart = {
        start = {{.OnStart}};
      };
    };
  };
}
`))

// Render produces the descriptor for the given workspace profile.
func Render(w profile.Workspace) ([]byte, error) {
	data := nixData{
		Channel:  w.Channel,
		OnCreate: nixString(w.OnCreate),
		OnStart:  nixString(w.OnStart),
	}

	var pkgs strings.Builder
	for _, p := range w.Packages {
		fmt.Fprintf(&pkgs, "    %s\n", p)
	}
	data.Packages = pkgs.String()

	var env strings.Builder
	for _, key := range sortedKeys(w.Env) {
		fmt.Fprintf(&env, "    %s = %s;\n", key, nixString(w.Env[key]))
	}
	data.Env = env.String()

	var exts strings.Builder
	for _, e := range w.Extensions {
		fmt.Fprintf(&exts, "      %s\n", nixString(e))
	}
	data.Extensions = exts.String()

	var previews strings.Builder
	for _, p := range w.Previews {
		words := strings.Fields(p.Command)
		quoted := make([]string, len(words))
		for i, word := range words {
			quoted[i] = nixString(word)
		}
		fmt.Fprintf(&previews, "        %s = {\n", p.Name)
		fmt.Fprintf(&previews, "          command = [%s];\n", strings.Join(quoted, " "))
		fmt.Fprintf(&previews, "          manager = %s;\n", nixString(p.Manager))
		fmt.Fprintf(&previews, "        };\n")
	}
	data.Previews = previews.String()

	var out strings.Builder
	if err := nixTmpl.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("rendering workspace descriptor: %w", err)
	}
	return []byte(out.String()), nil
}

// nixString quotes s as a Nix double-quoted string. Interpolation
// openers are escaped so values containing them stay literal.
func nixString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, `${`, `\${`)
	return `"` + s + `"`
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
