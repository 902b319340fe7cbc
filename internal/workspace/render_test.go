package workspace

import (
	"strings"
	"testing"

	"github.com/fenwick-labs/devstrap/internal/profile"
)

func TestRenderDefaultProfile(t *testing.T) {
	out, err := Render(profile.Default().Workspace)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	nix := string(out)

	for _, want := range []string{
		`channel = "stable-24.05";`,
		"pkgs.php83",
		"pkgs.nodejs_22",
		`COMPOSER_MEMORY_LIMIT = "-1";`,
		`"bmewburn.vscode-intelephense-client"`,
		"previews = {",
		`manager = "web";`,
		`setup = "composer install && pnpm install";`,
		`start = "pnpm run dev";`,
	} {
		if !strings.Contains(nix, want) {
			t.Errorf("descriptor missing %q\nrendered:\n%s", want, nix)
		}
	}
}

func TestRenderPreviewCommandAsWordList(t *testing.T) {
	w := profile.Workspace{
		Channel: "stable-24.05",
		Previews: []profile.Preview{
			{Name: "web", Command: "php -S 0.0.0.0:$PORT -t public", Manager: "web"},
		},
	}

	out, err := Render(w)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := `command = ["php" "-S" "0.0.0.0:$PORT" "-t" "public"];`
	if !strings.Contains(string(out), want) {
		t.Errorf("descriptor missing %q\nrendered:\n%s", want, out)
	}
}

func TestRenderedDescriptorPassesLint(t *testing.T) {
	out, err := Render(profile.Default().Workspace)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if problems := Lint(out); len(problems) != 0 {
		t.Errorf("rendered descriptor has lint problems: %v", problems)
	}
}

func TestNixStringEscaping(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: `"plain"`},
		{in: `say "hi"`, want: `"say \"hi\""`},
		{in: `a\b`, want: `"a\\b"`},
		{in: "echo ${HOME}", want: `"echo \${HOME}"`},
		{in: "port $PORT", want: `"port $PORT"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := nixString(tt.in); got != tt.want {
				t.Errorf("nixString(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestPath(t *testing.T) {
	if got := Path("/srv/app"); got != "/srv/app/.idx/dev.nix" {
		t.Errorf("Path() = %q", got)
	}
}
