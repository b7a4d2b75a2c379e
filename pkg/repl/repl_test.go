package repl_test

import (
	"strings"
	"testing"

	"malhdb/pkg/repl"

	"github.com/google/uuid"
)

func echoCommand(payload string, _ *repl.REPLConfig) (string, error) {
	return "echo: " + payload, nil
}

func TestAddCommand(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("echo", echoCommand, "echoes input")
	if len(r.GetCommands()) != 1 {
		t.Fatalf("repl has %d commands, want 1", len(r.GetCommands()))
	}
	// The help meta-command cannot be overridden.
	r.AddCommand(repl.TriggerHelpMetacommand, echoCommand, "nope")
	if _, exists := r.GetCommands()[repl.TriggerHelpMetacommand]; exists {
		t.Error(".help was registered as a user command")
	}
	if !strings.Contains(r.HelpString(), "echoes input") {
		t.Error("help string missing registered command")
	}
}

func TestCombineRepls(t *testing.T) {
	a := repl.NewRepl()
	a.AddCommand("one", echoCommand, "")
	b := repl.NewRepl()
	b.AddCommand("two", echoCommand, "")
	combined, err := repl.CombineRepls([]*repl.REPL{a, b})
	if err != nil {
		t.Fatal("Failed to combine disjoint repls:", err)
	}
	if len(combined.GetCommands()) != 2 {
		t.Errorf("combined repl has %d commands, want 2", len(combined.GetCommands()))
	}

	c := repl.NewRepl()
	c.AddCommand("one", echoCommand, "")
	if _, err := repl.CombineRepls([]*repl.REPL{a, c}); err != repl.ErrOverlappingCommands {
		t.Errorf("combining overlapping repls returned %v", err)
	}

	empty, err := repl.CombineRepls(nil)
	if err != nil || len(empty.GetCommands()) != 0 {
		t.Error("combining no repls should give an empty repl")
	}
}

func TestRunDispatch(t *testing.T) {
	r := repl.NewRepl()
	r.AddCommand("echo", echoCommand, "echoes input")
	input := strings.NewReader("echo hello world\nbogus\n\n")
	var output strings.Builder
	r.Run(uuid.New(), "> ", input, &output)
	out := output.String()
	if !strings.Contains(out, "echo: echo hello world") {
		t.Errorf("output missing command result: %q", out)
	}
	if !strings.Contains(out, repl.ErrorPrependStr+repl.ErrCommandNotFound.Error()) {
		t.Errorf("output missing command-not-found error: %q", out)
	}
}
