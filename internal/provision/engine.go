// Package provision orchestrates the interactive Debian setup: the
// precondition gate, host file adjustments, the optional OS release
// upgrade, toolchain installation, the checksum-verified Composer
// install, per-user steps and cleanup. Execution is strictly sequential
// and fail-fast: the first error ends the run, nothing is retried and
// nothing is rolled back.
package provision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenwick-labs/devstrap/internal/apt"
	"github.com/fenwick-labs/devstrap/internal/composer"
	"github.com/fenwick-labs/devstrap/internal/hostcfg"
	"github.com/fenwick-labs/devstrap/internal/logging"
	"github.com/fenwick-labs/devstrap/internal/noderelease"
	"github.com/fenwick-labs/devstrap/internal/output"
	"github.com/fenwick-labs/devstrap/internal/preflight"
	"github.com/fenwick-labs/devstrap/internal/profile"
	"github.com/fenwick-labs/devstrap/internal/prompt"
	"github.com/fenwick-labs/devstrap/internal/system"
	"github.com/fenwick-labs/devstrap/internal/userenv"
)

// Package repository URLs. These are written into source-list files,
// never fetched, so they stay fixed even under test.
const (
	vscodeRepoURL = "https://packages.microsoft.com/repos/code"
	suryRepoURL   = "https://packages.sury.org/php"
	nodeRepoFmt   = "https://deb.nodesource.com/node_%d.x"
)

// Endpoints collects the upstream URLs setup fetches from, per each
// vendor's published install instructions. Tests point them at local
// servers.
type Endpoints struct {
	MicrosoftKey      string
	SuryKey           string
	NodeKey           string
	NodeIndex         string
	ComposerSig       string
	ComposerInstaller string
	PnpmScript        string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		MicrosoftKey:      "https://packages.microsoft.com/keys/microsoft.asc",
		SuryKey:           "https://packages.sury.org/php/apt.gpg",
		NodeKey:           "https://deb.nodesource.com/gpgkey/nodesource-repo.gpg.key",
		NodeIndex:         noderelease.DefaultIndexURL,
		ComposerSig:       composer.DefaultSigURL,
		ComposerInstaller: composer.DefaultInstallerURL,
		PnpmScript:        userenv.DefaultPnpmScriptURL,
	}
}

// Host adjustments applied before any package work. The gai.conf line
// prefers IPv4 so apt mirrors with broken IPv6 routing do not stall
// downloads.
const (
	gaiPrecedenceLine = "precedence ::ffff:0:0/96  100"
	composerEnvLine   = "COMPOSER_MEMORY_LIMIT=-1"
)

// totalSteps is the number of visible setup steps after the
// precondition gate.
const totalSteps = 9

// Config carries the engine's collaborators. Zero fields fall back to
// their production defaults, so callers typically set only Profile.
type Config struct {
	Runner    system.Runner
	Prompt    *prompt.Prompter
	Client    *http.Client
	Probes    preflight.Probes
	Profile   profile.Profile
	Endpoints Endpoints
	Out       io.Writer

	// Log is an already-open transcript. When nil the engine opens
	// LogPath itself once the precondition gate has passed.
	Log     *logging.Transcript
	LogPath string

	// Root prefixes every host path the engine edits, so tests can run
	// against a scratch directory. Production leaves it at "/".
	Root string
}

// Engine runs the setup procedure.
type Engine struct {
	run       system.Runner
	prompt    *prompt.Prompter
	log       *logging.Transcript
	probes    preflight.Probes
	profile   profile.Profile
	endpoints Endpoints
	out       io.Writer
	root      string
	logPath   string

	apt      *apt.Manager
	sources  *apt.Sources
	node     *noderelease.Client
	composer *composer.Installer
	user     *userenv.Steps

	report *preflight.Report

	// codename is the release the rest of the run configures sources
	// against: the running codename, or the upgrade target once the
	// operator has taken the upgrade path.
	codename string
}

// New builds an Engine from cfg, filling in production defaults for
// anything unset.
func New(cfg Config) *Engine {
	if cfg.Runner == nil {
		cfg.Runner = system.NewExec()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Prompt == nil {
		cfg.Prompt = prompt.New(os.Stdin, cfg.Out)
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Probes.Euid == nil {
		cfg.Probes = preflight.Defaults()
	}
	if cfg.Profile.PHP.Version == "" {
		cfg.Profile = profile.Default()
	}
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints()
	}
	if cfg.LogPath == "" {
		cfg.LogPath = logging.DefaultPath
	}
	if cfg.Root == "" {
		cfg.Root = "/"
	}

	e := &Engine{
		run:       cfg.Runner,
		prompt:    cfg.Prompt,
		log:       cfg.Log,
		probes:    cfg.Probes,
		profile:   cfg.Profile,
		endpoints: cfg.Endpoints,
		out:       cfg.Out,
		root:      cfg.Root,
		logPath:   cfg.LogPath,

		apt:      apt.NewManager(cfg.Runner),
		sources:  apt.NewSources(cfg.Runner, cfg.Client),
		node:     noderelease.NewClient(cfg.Client),
		composer: composer.New(cfg.Runner, cfg.Client),
		user:     userenv.New(cfg.Runner, cfg.Client),
	}
	e.node.URL = cfg.Endpoints.NodeIndex
	e.composer.SigURL = cfg.Endpoints.ComposerSig
	e.composer.InstallerURL = cfg.Endpoints.ComposerInstaller
	e.user.PnpmScriptURL = cfg.Endpoints.PnpmScript
	e.sources.KeyringDir = filepath.Join(cfg.Root, "usr/share/keyrings")
	e.sources.ListDir = filepath.Join(cfg.Root, "etc/apt/sources.list.d")
	return e
}

// Run executes the whole procedure and returns the first error. The
// precondition gate runs before anything else; no mutation happens on a
// gated host. Every failure after the gate is logged to the transcript
// before it propagates.
func (e *Engine) Run(ctx context.Context) error {
	e.report = preflight.Inspect(e.probes)
	violations := e.report.Violations()

	// An unprivileged run cannot write the transcript either, so the
	// privilege failure is the one violation reported without a log.
	if e.report.Euid != 0 {
		return fmt.Errorf("precondition failed: %s", violations[0])
	}

	if e.log == nil {
		t, err := logging.Open(e.logPath)
		if err != nil {
			return err
		}
		e.log = t
		defer e.log.Close()
	}

	if len(violations) > 0 {
		err := fmt.Errorf("precondition failed: %s", violations[0])
		e.log.Errorf("setup aborted: %v", err)
		return err
	}

	if err := e.steps(ctx); err != nil {
		e.log.Errorf("setup aborted: %v", err)
		return err
	}

	e.log.Infof("setup completed successfully")
	fmt.Fprintf(e.out, "\n%s\n", output.Green("✓ Setup complete."))
	if e.log.Path() != "" {
		fmt.Fprintf(e.out, "Transcript written to %s\n", e.log.Path())
	}
	return nil
}

func (e *Engine) steps(ctx context.Context) error {
	e.codename = e.report.OS.Codename

	fmt.Fprintf(e.out, "Setting up a PHP %s + Node.js development host on %s\n",
		e.profile.PHP.Version, e.report.OS.PrettyName)
	e.log.Infof("setup started on %s", e.report.OS.PrettyName)

	if e.report.InvokingUser == nil {
		e.warnf("invoking user unknown (%s); per-user steps will be skipped", e.report.UserReason)
	}

	if err := e.hostAdjustments(); err != nil {
		return err
	}
	if err := e.systemUpdate(ctx); err != nil {
		return err
	}
	if err := e.basePackages(ctx); err != nil {
		return err
	}
	if err := e.installEditor(ctx); err != nil {
		return err
	}
	if err := e.installNode(ctx); err != nil {
		return err
	}
	if err := e.installPHP(ctx); err != nil {
		return err
	}
	if err := e.installComposer(ctx); err != nil {
		return err
	}
	if err := e.userSteps(ctx); err != nil {
		return err
	}
	return e.cleanup(ctx)
}

// hostPath maps an absolute host path into the engine's filesystem
// root.
func (e *Engine) hostPath(rel string) string {
	return filepath.Join(e.root, rel)
}

func (e *Engine) banner(n int, title string) {
	if n > 1 {
		fmt.Fprintln(e.out)
	}
	fmt.Fprintf(e.out, "Step %d/%d: %s\n", n, totalSteps, title)
	e.log.Infof("step %d/%d: %s", n, totalSteps, title)
}

func (e *Engine) okf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(e.out, "  ✓ %s\n", msg)
	e.log.Infof("%s", msg)
}

func (e *Engine) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(e.out, "  ⚠ %s\n", msg)
	e.log.Warnf("%s", msg)
}

// notef prints an indented plain line and records it in the transcript,
// used for manual-recovery instructions that must survive in the log.
func (e *Engine) notef(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(e.out, "  %s\n", msg)
	e.log.Infof("%s", msg)
}

func (e *Engine) hostAdjustments() error {
	e.banner(1, "Host configuration")

	edits := []struct {
		path  string
		line  string
		label string
	}{
		{e.hostPath("etc/gai.conf"), gaiPrecedenceLine, "IPv4 connection precedence"},
		{e.hostPath("etc/environment"), composerEnvLine, "Composer memory limit"},
	}

	for _, edit := range edits {
		added, err := hostcfg.EnsureLine(edit.path, edit.line)
		if err != nil {
			return fmt.Errorf("updating %s: %w", edit.path, err)
		}
		if added {
			e.okf("%s written to %s", edit.label, edit.path)
		} else {
			e.okf("%s already present in %s", edit.label, edit.path)
		}
	}
	return nil
}

func (e *Engine) systemUpdate(ctx context.Context) error {
	e.banner(2, "System update")

	target := e.profile.Upgrade.Target
	upgrade := false
	if target != "" && target != e.codename {
		var err error
		upgrade, err = e.prompt.Confirm(fmt.Sprintf("Upgrade the OS to Debian %s (full upgrade)?", target))
		if err != nil {
			return err
		}
	}

	if upgrade {
		if e.codename == "" {
			return fmt.Errorf("cannot rewrite apt sources: the running release codename is unknown")
		}
		n, err := apt.RewriteCodename(e.hostPath("etc/apt/sources.list"), e.codename, target)
		if err != nil {
			return err
		}
		e.okf("rewrote %d source entries from %s to %s", n, e.codename, target)

		if err := e.apt.Update(ctx); err != nil {
			return err
		}
		if err := e.apt.FullUpgrade(ctx); err != nil {
			return err
		}
		e.codename = target
		e.okf("full upgrade to %s finished", target)
		return nil
	}

	if err := e.apt.Update(ctx); err != nil {
		return err
	}
	if err := e.apt.Upgrade(ctx); err != nil {
		return err
	}
	if e.codename != "" {
		e.okf("standard update applied (staying on %s)", e.codename)
	} else {
		e.okf("standard update applied")
	}
	return nil
}

func (e *Engine) basePackages(ctx context.Context) error {
	e.banner(3, "Base packages")

	if err := e.apt.Install(ctx, e.profile.Packages.Base...); err != nil {
		return err
	}
	e.okf("installed %s", strings.Join(e.profile.Packages.Base, " "))
	return nil
}

func (e *Engine) installEditor(ctx context.Context) error {
	e.banner(4, "Visual Studio Code")

	if e.apt.IsInstalled(ctx, e.profile.Packages.Editor) {
		e.okf("%s already installed", e.profile.Packages.Editor)
		return nil
	}

	install, err := e.prompt.Confirm("Install Visual Studio Code?")
	if err != nil {
		return err
	}
	if !install {
		e.okf("Visual Studio Code skipped by choice")
		return nil
	}

	arch, err := e.apt.Architecture(ctx)
	if err != nil {
		return err
	}

	repo := apt.Repo{
		Name:       "vscode",
		KeyURL:     e.endpoints.MicrosoftKey,
		URL:        vscodeRepoURL,
		Suite:      "stable",
		Components: "main",
		Arch:       arch,
	}
	if _, err := e.sources.EnsureRepo(ctx, repo); err != nil {
		return err
	}
	if err := e.apt.Update(ctx); err != nil {
		return err
	}
	if err := e.apt.Install(ctx, e.profile.Packages.Editor); err != nil {
		return err
	}
	e.okf("%s installed from packages.microsoft.com", e.profile.Packages.Editor)
	return nil
}

func (e *Engine) installNode(ctx context.Context) error {
	e.banner(5, "Node.js")

	answer, err := e.prompt.Choice("Install the LTS or Current Node.js release?", []string{"lts", "current"})
	if err != nil {
		return err
	}
	channel := noderelease.ChannelLTS
	if answer == "current" {
		channel = noderelease.ChannelCurrent
	}

	spin := output.NewSpinner(fmt.Sprintf("Resolving the newest %s release", channel))
	spin.SetWriter(e.out)
	spin.Start()
	rel, err := e.node.Resolve(ctx, channel)
	if err != nil {
		spin.Stop()
		return err
	}
	spin.StopWithMessage(fmt.Sprintf("  ✓ Resolved Node.js %s", rel.Version))
	e.log.Infof("resolved Node.js %s (%s channel, major %d)", rel.Version, channel, rel.Major)

	repo := apt.Repo{
		Name:       "nodesource",
		KeyURL:     e.endpoints.NodeKey,
		URL:        fmt.Sprintf(nodeRepoFmt, rel.Major),
		Suite:      "nodistro",
		Components: "main",
	}
	if _, err := e.sources.EnsureRepo(ctx, repo); err != nil {
		return err
	}
	if err := e.apt.Update(ctx); err != nil {
		return err
	}
	if err := e.apt.Install(ctx, "nodejs"); err != nil {
		return err
	}
	e.okf("Node.js %s installed", rel.Version)
	return nil
}

func (e *Engine) installPHP(ctx context.Context) error {
	e.banner(6, fmt.Sprintf("PHP %s", e.profile.PHP.Version))

	repo := apt.Repo{
		Name:       "sury-php",
		KeyURL:     e.endpoints.SuryKey,
		URL:        suryRepoURL,
		Suite:      e.codename,
		Components: "main",
	}
	if _, err := e.sources.EnsureRepo(ctx, repo); err != nil {
		return err
	}
	if err := e.apt.Update(ctx); err != nil {
		return err
	}

	pkgs := e.profile.PHP.DebianPackages()
	if err := e.apt.Install(ctx, pkgs...); err != nil {
		return err
	}
	e.okf("installed %s", strings.Join(pkgs, " "))
	return nil
}

func (e *Engine) installComposer(ctx context.Context) error {
	e.banner(7, "Composer")

	if err := e.composer.Install(ctx); err != nil {
		return err
	}
	e.okf("Composer installed to %s with a verified checksum", e.composer.BinDir)
	return nil
}

func (e *Engine) userSteps(ctx context.Context) error {
	e.banner(8, "User tools (pnpm, Playwright, Git identity)")

	u := e.report.InvokingUser
	if u == nil {
		e.warnf("skipping per-user steps: %s", e.report.UserReason)
		e.notef("Run these later as your normal user:")
		e.notef("  curl -fsSL %s | sh -", e.user.PnpmScriptURL)
		e.notef("  npx --yes playwright install chromium")
		e.notef("  git config --global user.name \"Your Name\"")
		e.notef("  git config --global user.email you@example.com")
		return nil
	}

	if err := e.user.InstallPnpm(ctx, u); err != nil {
		return err
	}
	e.okf("pnpm installed for %s", u.Username)

	if err := e.user.InstallPlaywright(ctx, u); err != nil {
		return err
	}
	e.okf("Playwright Chromium installed for %s", u.Username)

	configure, err := e.prompt.Confirm(fmt.Sprintf("Configure a global Git identity for %s?", u.Username))
	if err != nil {
		return err
	}
	if !configure {
		e.okf("Git identity left unchanged")
		return nil
	}

	name, err := e.prompt.Line("Git user.name")
	if err != nil {
		return err
	}
	email, err := e.prompt.Line("Git user.email")
	if err != nil {
		return err
	}
	if err := e.user.ConfigureGit(ctx, u, name, email); err != nil {
		return err
	}
	e.okf("Git identity configured for %s", u.Username)
	return nil
}

func (e *Engine) cleanup(ctx context.Context) error {
	e.banner(9, "Cleanup")

	if err := e.apt.AutoRemove(ctx); err != nil {
		return err
	}
	if err := e.apt.Clean(ctx); err != nil {
		return err
	}
	e.okf("removed unneeded packages and cleared the apt cache")
	return nil
}
