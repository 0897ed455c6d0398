package cli_test

import (
	"github.com/dmora/claudeacp"
	"github.com/dmora/claudeacp/engine/cli"
)

// Compile-time interface satisfaction checks.
// These fail the build if any signature drifts.

type stubSpawner struct{}

func (stubSpawner) Binary() string { return "" }

func (stubSpawner) SpawnArgs(_ claudeacp.Request) (string, []string, error) { return "", nil, nil }

var _ cli.Spawner = stubSpawner{}

type stubParser struct{}

func (stubParser) ParseLine(_ string) ([]claudeacp.Event, error) { return nil, nil }

var _ cli.Parser = stubParser{}

var _ cli.Backend = struct {
	stubSpawner
	stubParser
}{}
