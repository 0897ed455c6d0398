package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmora/claudeacp"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude-acp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Config{
		PermissionMode: claudeacp.PermissionDefault,
		MaxTurns:       10,
		ClaudePath:     "claude",
	}, cfg)

	fromFlags, err := Load(nil, flags(t))
	require.NoError(t, err)
	assert.Equal(t, cfg, fromFlags, "unset flags must not override")
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
debug: true
permissionMode: accept-edits
maxTurns: 3
model: opus
claudePath: /opt/claude
partialMessages: true
forwardResult: true
`)
	cfg, err := Load([]string{EnvConfig + "=" + path}, nil)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Debug:           true,
		PermissionMode:  claudeacp.PermissionAcceptEdits,
		MaxTurns:        3,
		Model:           "opus",
		ClaudePath:      "/opt/claude",
		PartialMessages: true,
		ForwardResult:   true,
	}, cfg)
}

func TestLoad_FileExplicitFalse(t *testing.T) {
	path := writeFile(t, "partialMessages: false\nmaxTurns: 0\n")
	cfg, err := Load([]string{EnvPartialMessages + "=on"}, flags(t, "--config", path))
	require.NoError(t, err)
	assert.True(t, cfg.PartialMessages, "env overrides file")
	assert.Zero(t, cfg.MaxTurns)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "model: from-file\nmaxTurns: 4\npermissionMode: plan\n")
	environ := []string{
		EnvConfig + "=" + path,
		EnvModel + "=from-env",
		EnvMaxTurns + "=5",
	}

	cfg, err := Load(environ, flags(t, "--model", "from-flag"))
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Model)
	assert.Equal(t, 5, cfg.MaxTurns)
	assert.Equal(t, claudeacp.PermissionPlan, cfg.PermissionMode)
}

func TestLoad_FlagConfigOverridesEnvConfig(t *testing.T) {
	envPath := writeFile(t, "model: env-file\n")
	flagPath := writeFile(t, "model: flag-file\n")
	cfg, err := Load([]string{EnvConfig + "=" + envPath}, flags(t, "--config", flagPath))
	require.NoError(t, err)
	assert.Equal(t, "flag-file", cfg.Model)
}

func TestLoad_Env(t *testing.T) {
	cfg, err := Load([]string{
		EnvDebug + "=1",
		EnvPermissionMode + "=bypass",
		EnvClaudePath + "=/usr/local/bin/claude",
		EnvForwardResult + "=yes",
	}, nil)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, claudeacp.PermissionBypass, cfg.PermissionMode)
	assert.Equal(t, "/usr/local/bin/claude", cfg.ClaudePath)
	assert.True(t, cfg.ForwardResult)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := Load(nil, flags(t,
		"--debug",
		"--permission-mode", "acceptEdits",
		"--max-turns", "0",
		"--claude-path", "claude-beta",
		"--partial-messages",
		"--forward-result=false",
	))
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, claudeacp.PermissionAcceptEdits, cfg.PermissionMode)
	assert.Zero(t, cfg.MaxTurns)
	assert.Equal(t, "claude-beta", cfg.ClaudePath)
	assert.True(t, cfg.PartialMessages)
	assert.False(t, cfg.ForwardResult)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		environ []string
		args    []string
		file    string
		is      error
	}{
		{name: "env mode", environ: []string{EnvPermissionMode + "=yolo"}, is: claudeacp.ErrInvalidPermissionMode},
		{name: "env max turns", environ: []string{EnvMaxTurns + "=-1"}},
		{name: "env bool", environ: []string{EnvDebug + "=maybe"}},
		{name: "flag mode", args: []string{"--permission-mode", "yolo"}, is: claudeacp.ErrInvalidPermissionMode},
		{name: "flag negative turns", args: []string{"--max-turns", "-2"}},
		{name: "flag empty claude path", args: []string{"--claude-path", " "}},
		{name: "file mode", file: "permissionMode: yolo\n", is: claudeacp.ErrInvalidPermissionMode},
		{name: "file unknown key", file: "modle: opus\n"},
		{name: "file bad yaml", file: "maxTurns: [\n"},
		{name: "file missing", args: []string{"--config", "/nonexistent/claude-acp.yaml"}, is: os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.file != "" {
				args = append(args, "--config", writeFile(t, tt.file))
			}
			_, err := Load(tt.environ, flags(t, args...))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}
