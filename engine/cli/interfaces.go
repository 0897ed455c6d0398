package cli

import (
	"errors"

	"github.com/dmora/claudeacp"
)

// ErrSkipLine is returned by [Parser.ParseLine] for lines that carry no
// event (blank lines). The run drops them silently.
var ErrSkipLine = errors.New("cli: skip line")

// Spawner builds the command line for one prompt execution.
// Interfaces are owned here, at the consumer side; backend packages provide
// the implementations.
type Spawner interface {
	// Binary returns the executable name or path the backend launches.
	Binary() string

	// SpawnArgs returns the binary and arguments for req. It returns an
	// error when req cannot be expressed safely on a command line.
	SpawnArgs(req claudeacp.Request) (string, []string, error)
}

// Parser turns one stdout line into zero or more events.
//
// A single line may expand to several events (for example, a message holding
// several tool results). Lines that fail to parse return a non-nil error and
// are logged and dropped by the run.
type Parser interface {
	ParseLine(line string) ([]claudeacp.Event, error)
}

// Backend is the full contract a CLI tool adapter implements.
type Backend interface {
	Spawner
	Parser
}
