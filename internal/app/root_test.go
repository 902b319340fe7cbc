package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "devstrap" {
		t.Errorf("expected Use to be 'devstrap', got '%s'", RootCmd.Use)
	}
	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}
	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	foundCommands := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range []string{"setup", "doctor", "render", "validate"} {
		if !foundCommands[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandConfiguration(t *testing.T) {
	if !RootCmd.SilenceUsage {
		t.Error("expected SilenceUsage to be true")
	}
	if !RootCmd.SilenceErrors {
		t.Error("expected SilenceErrors to be true")
	}
	if RootCmd.SuggestionsMinimumDistance != 2 {
		t.Errorf("SuggestionsMinimumDistance = %d, want 2", RootCmd.SuggestionsMinimumDistance)
	}
	if RootCmd.RunE == nil {
		t.Fatal("expected RootCmd.RunE to be set for bare invocation")
	}
}

func TestRootCmd_BareInvocationOrients(t *testing.T) {
	var runErr error
	out := captureStdout(t, func() {
		runErr = RootCmd.RunE(RootCmd, []string{})
	})
	if runErr != nil {
		t.Fatalf("RootCmd.RunE: %v", runErr)
	}

	if !strings.Contains(out, "devstrap: PHP + Node.js environment bootstrap") {
		t.Errorf("expected orientation header, got:\n%s", out)
	}
	// Both orientation branches point at --help.
	if !strings.Contains(out, "devstrap --help") {
		t.Errorf("expected help hint, got:\n%s", out)
	}
}

func TestRootCommandHelpMentionsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	defer RootCmd.SetOut(nil)
	RootCmd.SetErr(bytes.NewBuffer(nil))
	defer RootCmd.SetErr(nil)

	RootCmd.SetArgs([]string{"--help"})
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("Execute --help: %v", err)
	}

	out := buf.String()
	for _, name := range []string{"setup", "doctor", "render", "validate"} {
		if !strings.Contains(out, name) {
			t.Errorf("expected help output to mention '%s', got:\n%s", name, out)
		}
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	RootCmd.SetOut(bytes.NewBuffer(nil))
	defer RootCmd.SetOut(nil)
	RootCmd.SetErr(bytes.NewBuffer(nil))
	defer RootCmd.SetErr(nil)

	RootCmd.SetArgs([]string{"blorp"})
	err := Execute()

	if err == nil {
		t.Fatal("expected Execute() to return an error for an unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected error to contain 'unknown command', got: %v", err)
	}
}
