package claude

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmora/claudeacp"
	"github.com/dmora/claudeacp/engine/cli"
	"github.com/dmora/claudeacp/engine/cli/internal/jsonutil"
)

const defaultBinary = "claude"

// resumeIDPattern matches Claude conversation ids (UUIDs in practice) and
// never a flag.
var resumeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,127}$`)

// Backend is the Claude Code CLI backend.
type Backend struct {
	binary          string
	partialMessages bool
}

// Compile-time interface satisfaction checks.
var (
	_ cli.Backend = (*Backend)(nil)
	_ cli.Spawner = (*Backend)(nil)
	_ cli.Parser  = (*Backend)(nil)
)

// Option configures a Backend at construction time.
type Option func(*Backend)

// WithBinary overrides the Claude CLI binary path.
// Empty values are ignored; the default is "claude".
func WithBinary(path string) Option {
	return func(b *Backend) {
		if path != "" {
			b.binary = path
		}
	}
}

// WithPartialMessages controls whether runs include
// --include-partial-messages, which adds stream_event deltas to the output.
// Default is false: only complete messages are emitted.
func WithPartialMessages(enabled bool) Option {
	return func(b *Backend) {
		b.partialMessages = enabled
	}
}

// New creates a Claude Code CLI backend with the given options.
func New(opts ...Option) *Backend {
	b := &Backend{binary: defaultBinary}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Binary returns the configured Claude executable.
func (b *Backend) Binary() string { return b.binary }

// SpawnArgs builds the command line for req. Values that cannot be passed
// safely (null bytes, flag-like model names, malformed resume ids, unknown
// permission modes, negative turn limits) are rejected.
func (b *Backend) SpawnArgs(req claudeacp.Request) (string, []string, error) {
	if jsonutil.ContainsNull(req.Prompt) {
		return "", nil, errors.New("claude: prompt contains null bytes")
	}

	args := baseArgs()
	if b.partialMessages {
		args = append(args, "--include-partial-messages")
	}

	if req.ResumeID != "" {
		if !resumeIDPattern.MatchString(req.ResumeID) {
			return "", nil, fmt.Errorf("claude: invalid resume id %q", req.ResumeID)
		}
		args = append(args, "--resume", req.ResumeID)
	}

	if req.Model != "" {
		if jsonutil.ContainsNull(req.Model) || strings.HasPrefix(req.Model, "-") {
			return "", nil, fmt.Errorf("claude: invalid model %q", req.Model)
		}
		args = append(args, "--model", req.Model)
	}

	if mode := req.PermissionMode; mode != "" && mode != claudeacp.PermissionDefault {
		if !mode.Valid() {
			return "", nil, fmt.Errorf("%w: %q", claudeacp.ErrInvalidPermissionMode, mode)
		}
		args = append(args, "--permission-mode", string(mode))
	}

	switch {
	case req.MaxTurns < 0:
		return "", nil, fmt.Errorf("claude: max turns must not be negative, got %d", req.MaxTurns)
	case req.MaxTurns > 0:
		args = append(args, "--max-turns", strconv.Itoa(req.MaxTurns))
	}

	// Prompt is always the last positional argument. A leading dash would
	// otherwise be read as a flag.
	if strings.HasPrefix(req.Prompt, "-") {
		args = append(args, "--")
	}
	args = append(args, req.Prompt)
	return b.binary, args, nil
}

// baseArgs returns the flags every run uses.
func baseArgs() []string {
	return []string{
		"-p",
		"--verbose",
		"--output-format", "stream-json",
	}
}
