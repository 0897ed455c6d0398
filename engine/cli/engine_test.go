//go:build !windows

package cli_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmora/claudeacp"
	"github.com/dmora/claudeacp/engine/cli"
)

const (
	binEcho  = "echo"
	binSleep = "sleep"
	binBash  = "bash"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// drain collects all events from a run.
func drain(r claudeacp.Run) []claudeacp.Event {
	evs := make([]claudeacp.Event, 0, 8)
	for ev := range r.Events() {
		evs = append(evs, ev)
	}
	return evs
}

// textParser parses each line as a text event.
func textParser(line string) ([]claudeacp.Event, error) {
	return []claudeacp.Event{claudeacp.TextEvent{Text: line}}, nil
}

func texts(evs []claudeacp.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		if te, ok := ev.(claudeacp.TextEvent); ok {
			out = append(out, te.Text)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Stub backend (function-field injection)
// ---------------------------------------------------------------------------

type testBackend struct {
	binary  string
	spawnFn func(claudeacp.Request) (string, []string, error)
	parseFn func(string) ([]claudeacp.Event, error)
}

func (b *testBackend) Binary() string { return b.binary }

func (b *testBackend) SpawnArgs(r claudeacp.Request) (string, []string, error) {
	return b.spawnFn(r)
}

func (b *testBackend) ParseLine(line string) ([]claudeacp.Event, error) { return b.parseFn(line) }

// echoBackend spawns "echo" with the request prompt.
func echoBackend() *testBackend {
	return &testBackend{
		binary: binEcho,
		spawnFn: func(r claudeacp.Request) (string, []string, error) {
			return binEcho, []string{r.Prompt}, nil
		},
		parseFn: textParser,
	}
}

// bashBackend runs script with bash -c.
func bashBackend(script string) *testBackend {
	return &testBackend{
		binary: binBash,
		spawnFn: func(_ claudeacp.Request) (string, []string, error) {
			return binBash, []string{"-c", script}, nil
		},
		parseFn: textParser,
	}
}

func stopCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ---------------------------------------------------------------------------
// Validate tests
// ---------------------------------------------------------------------------

func TestValidate_Found(t *testing.T) {
	eng := cli.NewEngine(echoBackend())
	if err := eng.Validate(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestValidate_NotFound(t *testing.T) {
	b := echoBackend()
	b.binary = "nonexistent-binary-xyz-999"
	err := cli.NewEngine(b).Validate()
	if !errors.Is(err, claudeacp.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Start tests
// ---------------------------------------------------------------------------

func TestStart_Echo(t *testing.T) {
	eng := cli.NewEngine(echoBackend())
	r, err := eng.Start(testCtx(t), claudeacp.Request{Prompt: "hello", CWD: t.TempDir()})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := texts(drain(r))
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("events = %q, want [hello]", got)
	}
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestStart_EmptyCWDInherits(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	wd, _ = filepath.EvalSymlinks(wd)
	eng := cli.NewEngine(bashBackend("pwd -P"))
	r, err := eng.Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := texts(drain(r))
	if len(got) != 1 || got[0] != wd {
		t.Fatalf("pwd = %q, want %q", got, wd)
	}
}

func TestStart_CWDApplied(t *testing.T) {
	dir := t.TempDir()
	eng := cli.NewEngine(bashBackend("pwd -P"))
	r, err := eng.Start(testCtx(t), claudeacp.Request{CWD: dir})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got := texts(drain(r))
	if len(got) != 1 || got[0] != want {
		t.Fatalf("pwd = %q, want %q", got, want)
	}
}

func TestStart_InvalidCWD(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		cwd  string
	}{
		{"relative", "relative/path"},
		{"nonexistent", "/nonexistent/path/xyz"},
		{"not_a_dir", file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := cli.NewEngine(echoBackend())
			if _, err := eng.Start(testCtx(t), claudeacp.Request{CWD: tt.cwd}); err == nil {
				t.Fatalf("expected error for CWD %q", tt.cwd)
			}
		})
	}
}

func TestStart_SpawnArgsError(t *testing.T) {
	b := echoBackend()
	wantErr := errors.New("bad request")
	b.spawnFn = func(_ claudeacp.Request) (string, []string, error) { return "", nil, wantErr }
	_, err := cli.NewEngine(b).Start(testCtx(t), claudeacp.Request{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestStart_BinaryNotFound(t *testing.T) {
	b := echoBackend()
	b.spawnFn = func(_ claudeacp.Request) (string, []string, error) {
		return "nonexistent-binary-xyz-999", nil, nil
	}
	_, err := cli.NewEngine(b).Start(testCtx(t), claudeacp.Request{})
	if !errors.Is(err, claudeacp.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestStart_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cli.NewEngine(echoBackend()).Start(ctx, claudeacp.Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Parsing tests
// ---------------------------------------------------------------------------

func TestRun_MultiLineOrder(t *testing.T) {
	eng := cli.NewEngine(bashBackend(`printf 'line1\nline2\nline3\n'`))
	r, err := eng.Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := strings.Join(texts(drain(r)), ",")
	if got != "line1,line2,line3" {
		t.Fatalf("events = %q", got)
	}
}

func TestRun_SkipAndParseErrors(t *testing.T) {
	b := bashBackend(`printf 'keep\n\nbad\nkeep2\n'`)
	b.parseFn = func(line string) ([]claudeacp.Event, error) {
		switch line {
		case "":
			return nil, cli.ErrSkipLine
		case "bad":
			return nil, errors.New("malformed")
		}
		return textParser(line)
	}
	r, err := cli.NewEngine(b).Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := strings.Join(texts(drain(r)), ",")
	if got != "keep,keep2" {
		t.Fatalf("events = %q, want keep,keep2", got)
	}
	if err := r.Wait(); err != nil {
		t.Fatalf("parse errors must not fail the run, got %v", err)
	}
}

func TestRun_LineExpandsToSeveralEvents(t *testing.T) {
	b := echoBackend()
	b.parseFn = func(line string) ([]claudeacp.Event, error) {
		parts := strings.Split(line, " ")
		evs := make([]claudeacp.Event, 0, len(parts))
		for _, p := range parts {
			evs = append(evs, claudeacp.TextEvent{Text: p})
		}
		return evs, nil
	}
	r, err := cli.NewEngine(b).Start(testCtx(t), claudeacp.Request{Prompt: "a b c"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := strings.Join(texts(drain(r)), ","); got != "a,b,c" {
		t.Fatalf("events = %q", got)
	}
}

func TestRun_ParserPanic(t *testing.T) {
	b := echoBackend()
	b.parseFn = func(string) ([]claudeacp.Event, error) { panic("boom") }
	r, err := cli.NewEngine(b).Start(testCtx(t), claudeacp.Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(r)
	if err := r.Wait(); err == nil || !strings.Contains(err.Error(), "parser panic") {
		t.Fatalf("expected parser panic error, got %v", err)
	}
}

func TestRun_ScannerOverflow(t *testing.T) {
	eng := cli.NewEngine(bashBackend(`head -c 4096 /dev/zero | tr '\0' 'x'; echo`), cli.WithScannerBuffer(64))
	r, err := eng.Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(r)
	if err := r.Wait(); err == nil || !strings.Contains(err.Error(), "scanner") {
		t.Fatalf("expected scanner error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Exit tests
// ---------------------------------------------------------------------------

func TestRun_ExitErrorCarriesStderr(t *testing.T) {
	eng := cli.NewEngine(bashBackend(`echo out; echo "auth failed" >&2; exit 3`))
	r, err := eng.Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := texts(drain(r)); len(got) != 1 {
		t.Fatalf("events = %q, want 1", got)
	}
	werr := r.Wait()
	code, ok := claudeacp.ExitCode(werr)
	if !ok || code != 3 {
		t.Fatalf("ExitCode = (%d, %v), want (3, true); err = %v", code, ok, werr)
	}
	var exitErr *claudeacp.ExitError
	if !errors.As(werr, &exitErr) {
		t.Fatalf("expected *ExitError, got %T", werr)
	}
	if exitErr.Stderr != "auth failed" {
		t.Fatalf("Stderr = %q, want %q", exitErr.Stderr, "auth failed")
	}
	if r.Err() != werr {
		t.Fatalf("Err() = %v, want %v", r.Err(), werr)
	}
}

func TestRun_StderrTailBounded(t *testing.T) {
	eng := cli.NewEngine(bashBackend(`head -c 1000 /dev/zero | tr '\0' 'e' >&2; printf 'TAIL' >&2; exit 1`),
		cli.WithStderrLimit(16))
	r, err := eng.Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(r)
	var exitErr *claudeacp.ExitError
	if !errors.As(r.Wait(), &exitErr) {
		t.Fatal("expected *ExitError")
	}
	if len(exitErr.Stderr) > 16 || !strings.HasSuffix(exitErr.Stderr, "TAIL") {
		t.Fatalf("Stderr = %q, want <=16 bytes ending in TAIL", exitErr.Stderr)
	}
}

func TestRun_CleanExit(t *testing.T) {
	r, err := cli.NewEngine(echoBackend()).Start(testCtx(t), claudeacp.Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(r)
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Stop tests
// ---------------------------------------------------------------------------

func TestStop_Graceful(t *testing.T) {
	eng := cli.NewEngine(bashBackend(`echo ready; exec sleep 60`))
	r, err := eng.Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-r.Events()

	start := time.Now()
	err = r.Stop(stopCtx(t))
	if !errors.Is(err, claudeacp.ErrTerminated) {
		t.Fatalf("Stop = %v, want ErrTerminated", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("SIGTERM should stop sleep promptly")
	}
	if _, ok := <-r.Events(); ok {
		t.Fatal("events channel should be closed after Stop")
	}
}

func TestStop_EscalatesToKill(t *testing.T) {
	eng := cli.NewEngine(bashBackend(`trap '' TERM; echo ready; while true; do sleep 0.05; done`),
		cli.WithGracePeriod(200*time.Millisecond))
	r, err := eng.Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-r.Events()

	start := time.Now()
	if err := r.Stop(stopCtx(t)); !errors.Is(err, claudeacp.ErrTerminated) {
		t.Fatalf("Stop = %v, want ErrTerminated", err)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Fatalf("Stop returned after %v, before the grace period", elapsed)
	}
}

func TestStop_Idempotent(t *testing.T) {
	r, err := cli.NewEngine(bashBackend(`exec sleep 60`)).Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := range 3 {
		if err := r.Stop(stopCtx(t)); !errors.Is(err, claudeacp.ErrTerminated) {
			t.Fatalf("Stop #%d = %v, want ErrTerminated", i, err)
		}
	}
}

func TestStop_AfterNaturalExit(t *testing.T) {
	r, err := cli.NewEngine(echoBackend()).Start(testCtx(t), claudeacp.Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(r)
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := r.Stop(stopCtx(t)); err != nil {
		t.Fatalf("Stop after clean exit = %v, want nil", err)
	}
}

func TestStop_UnblocksFullChannel(t *testing.T) {
	eng := cli.NewEngine(bashBackend(`for i in $(seq 1 1000); do echo $i; done; exec sleep 60`),
		cli.WithOutputBuffer(1))
	r, err := eng.Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-r.Events()

	done := make(chan error, 1)
	go func() { done <- r.Stop(stopCtx(t)) }()
	select {
	case err := <-done:
		if !errors.Is(err, claudeacp.ErrTerminated) {
			t.Fatalf("Stop = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on an undrained events channel")
	}
}

func TestStop_KillsProcessGroup(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "child-alive")
	script := fmt.Sprintf(`(sleep 1; touch %q) & echo ready; wait`, marker)
	r, err := cli.NewEngine(bashBackend(script)).Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-r.Events()
	if err := r.Stop(stopCtx(t)); !errors.Is(err, claudeacp.ErrTerminated) {
		t.Fatalf("Stop = %v", err)
	}
	time.Sleep(1500 * time.Millisecond)
	if _, err := os.Stat(marker); err == nil {
		t.Fatal("background child survived Stop")
	}
}

// ---------------------------------------------------------------------------
// Drain integration
// ---------------------------------------------------------------------------

func TestDrain_RealSubprocess(t *testing.T) {
	r, err := cli.NewEngine(bashBackend(`echo a; echo b; exit 2`)).Start(testCtx(t), claudeacp.Request{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	var got []string
	err = claudeacp.Drain(testCtx(t), r, func(ev claudeacp.Event) error {
		got = append(got, ev.(claudeacp.TextEvent).Text)
		return nil
	})
	if code, ok := claudeacp.ExitCode(err); !ok || code != 2 {
		t.Fatalf("Drain err = %v, want exit 2", err)
	}
	if strings.Join(got, "") != "ab" {
		t.Fatalf("got %q", got)
	}
}
