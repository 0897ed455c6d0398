package clitest

import (
	"errors"
	"strings"
	"testing"

	"github.com/dmora/claudeacp"
	"github.com/dmora/claudeacp/engine/cli"
)

// validResumeID is a conversation id every backend must accept.
const validResumeID = "0199a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b"

// RunBackendTests runs the Spawner and Parser compliance suites for a
// [cli.Backend].
func RunBackendTests(t *testing.T, factory func() cli.Backend) {
	t.Helper()

	t.Run("Spawner", func(t *testing.T) {
		RunSpawnerTests(t, func() cli.Spawner { return factory() })
	})
	t.Run("Parser", func(t *testing.T) {
		RunParserTests(t, func() cli.Parser { return factory() })
	})
}

// RunSpawnerTests tests the [cli.Spawner] behavioral contract.
// The factory is called once per subtest to ensure fresh backend state.
func RunSpawnerTests(t *testing.T, factory func() cli.Spawner) {
	t.Helper()
	runSpawnerStructural(t, factory)
	runSpawnerSafety(t, factory)
}

// runSpawnerStructural tests structural invariants: binary, prompt placement,
// continuation.
func runSpawnerStructural(t *testing.T, factory func() cli.Spawner) {
	t.Helper()

	t.Run("BinaryMatches", func(t *testing.T) {
		s := factory()
		binary, _, err := s.SpawnArgs(claudeacp.Request{Prompt: "hello"})
		if err != nil {
			t.Fatalf("SpawnArgs: %v", err)
		}
		if binary == "" || binary != s.Binary() {
			t.Errorf("binary = %q, want non-empty and equal to Binary() %q", binary, s.Binary())
		}
	})

	t.Run("ZeroRequest", func(t *testing.T) {
		s := factory()
		_, args, err := s.SpawnArgs(claudeacp.Request{})
		if err != nil {
			t.Fatalf("SpawnArgs(zero) should succeed: %v", err)
		}
		if args == nil {
			t.Error("args must be non-nil")
		}
	})

	t.Run("PromptIsLastArg", func(t *testing.T) {
		s := factory()
		_, args, err := s.SpawnArgs(claudeacp.Request{Prompt: "hello there", Model: "m", MaxTurns: 2})
		if err != nil {
			t.Fatalf("SpawnArgs: %v", err)
		}
		if len(args) == 0 || args[len(args)-1] != "hello there" {
			t.Errorf("last arg = %v, want prompt", args)
		}
	})

	t.Run("ResumeIDPassed", func(t *testing.T) {
		s := factory()
		_, args, err := s.SpawnArgs(claudeacp.Request{Prompt: "hello", ResumeID: validResumeID})
		if err != nil {
			t.Fatalf("SpawnArgs: %v", err)
		}
		if !containsArg(args, validResumeID) {
			t.Errorf("args %v must contain resume ID %q", args, validResumeID)
		}
	})
}

// runSpawnerSafety tests safety contracts: null-byte and leading-dash defense.
func runSpawnerSafety(t *testing.T, factory func() cli.Spawner) {
	t.Helper()

	t.Run("NoNullBytesInArgs", func(t *testing.T) {
		s := factory()
		_, args, err := s.SpawnArgs(claudeacp.Request{Prompt: "hello", Model: "test-model"})
		if err != nil {
			t.Fatalf("SpawnArgs: %v", err)
		}
		if i, ok := indexNullArg(args); ok {
			t.Errorf("args[%d] contains null bytes", i)
		}
	})

	t.Run("NullBytePromptRejected", func(t *testing.T) {
		s := factory()
		if _, _, err := s.SpawnArgs(claudeacp.Request{Prompt: "hello\x00world"}); err == nil {
			t.Error("null-byte prompt must be rejected")
		}
	})

	t.Run("LeadingDashModelRejected", func(t *testing.T) {
		s := factory()
		if _, _, err := s.SpawnArgs(claudeacp.Request{Prompt: "hello", Model: "-evil"}); err == nil {
			t.Error("leading-dash model must be rejected")
		}
	})

	t.Run("LeadingDashPromptNotAFlag", func(t *testing.T) {
		s := factory()
		_, args, err := s.SpawnArgs(claudeacp.Request{Prompt: "--dangerously-skip-permissions"})
		if err != nil {
			t.Fatalf("SpawnArgs: %v", err)
		}
		n := len(args)
		if n < 2 || args[n-2] != "--" {
			t.Errorf("args %v: flag-like prompt must follow a -- separator", args)
		}
	})

	t.Run("FlagLikeResumeIDRejected", func(t *testing.T) {
		s := factory()
		if _, _, err := s.SpawnArgs(claudeacp.Request{Prompt: "hello", ResumeID: "--print"}); err == nil {
			t.Error("flag-like resume id must be rejected")
		}
	})
}

// RunParserTests tests the [cli.Parser] behavioral contract.
// Assertions use [errors.Is] to match how the CLI engine checks parser results.
// The factory is called once per subtest to ensure fresh backend state.
func RunParserTests(t *testing.T, factory func() cli.Parser) {
	t.Helper()
	runParserErrors(t, factory)
	runParserRobustness(t, factory)
}

// runParserErrors tests error-path semantics: ErrSkipLine vs real errors.
func runParserErrors(t *testing.T, factory func() cli.Parser) {
	t.Helper()

	t.Run("EmptyLineReturnsErrSkipLine", func(t *testing.T) {
		p := factory()
		_, err := p.ParseLine("")
		if !errors.Is(err, cli.ErrSkipLine) {
			t.Errorf("ParseLine(\"\") error = %v, want ErrSkipLine", err)
		}
	})

	t.Run("WhitespaceOnlyReturnsErrSkipLine", func(t *testing.T) {
		p := factory()
		_, err := p.ParseLine("   ")
		if !errors.Is(err, cli.ErrSkipLine) {
			t.Errorf("ParseLine(\"   \") error = %v, want ErrSkipLine", err)
		}
	})

	t.Run("InvalidJSONReturnsNonSkipError", func(t *testing.T) {
		p := factory()
		_, err := p.ParseLine("not json")
		if err == nil {
			t.Error("ParseLine(\"not json\") should return an error")
		}
		if errors.Is(err, cli.ErrSkipLine) {
			t.Error("ParseLine(\"not json\") should return a non-skip error, got ErrSkipLine")
		}
	})
}

// garbageCorpus is a fixed set of adversarial inputs used by robustness tests.
var garbageCorpus = []string{
	"\x00",
	strings.Repeat("x", 65536),
	"{{{",
	"\xff\xfe",
	`{"":null}`,
	"null",
	"[]",
	`{"type":"assistant","message":{"content":"plain"}}`,
	`{"type":"user","message":{"content":[{"type":"tool_result","content":{"weird":true}}]}}`,
	`{"type":"stream_event","event":"nope"}`,
}

// runParserRobustness tests no-panic guarantees and guard invariants.
func runParserRobustness(t *testing.T, factory func() cli.Parser) {
	t.Helper()

	t.Run("TypeFieldWrongTypeNoPanic", func(t *testing.T) { //nolint:revive // no assertions, panics are the failure signal
		_ = t
		p := factory()
		for _, input := range []string{`{"type":99}`, `{"type":true}`, `{"type":[]}`} {
			_, _ = p.ParseLine(input)
		}
	})

	t.Run("GarbageNoPanic", func(t *testing.T) { //nolint:revive // no assertions, panics are the failure signal
		_ = t
		p := factory()
		for _, input := range garbageCorpus {
			_, _ = p.ParseLine(input)
		}
	})

	t.Run("ParsedEventsHaveType", func(t *testing.T) {
		// Guard invariant: any input that parses (nil error) yields at least
		// one event, and every event has a non-empty Type.
		p := factory()
		corpus := make([]string, 0, len(garbageCorpus)+2)
		corpus = append(corpus, garbageCorpus...)
		corpus = append(corpus, `{"type":99}`, `{"type":"unknown"}`)
		for _, input := range corpus {
			evs, err := p.ParseLine(input)
			if err != nil {
				continue
			}
			if len(evs) == 0 {
				t.Errorf("ParseLine(%q) returned no events and nil error", input)
			}
			for _, ev := range evs {
				if ev == nil || ev.Type() == "" {
					t.Errorf("ParseLine(%q) returned an event with empty Type", input)
				}
			}
		}
	})
}

// containsArg reports whether args contains s as an exact element.
func containsArg(args []string, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}

// indexNullArg returns the index of the first arg containing a null byte.
func indexNullArg(args []string) (int, bool) {
	for i, a := range args {
		if strings.Contains(a, "\x00") {
			return i, true
		}
	}
	return 0, false
}
