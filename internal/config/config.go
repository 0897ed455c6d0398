// Package config loads claude-acp settings.
//
// Settings are layered, lowest precedence first: built-in defaults, an
// optional YAML file, ACP_* environment variables, then command-line flags.
// The result is read once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/dmora/claudeacp"
)

// DefaultMaxTurns bounds agentic turns per prompt unless configured.
const DefaultMaxTurns = 10

// Config is the resolved configuration.
type Config struct {
	Debug           bool
	PermissionMode  claudeacp.PermissionMode
	MaxTurns        int
	Model           string
	ClaudePath      string
	PartialMessages bool
	ForwardResult   bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PermissionMode: claudeacp.PermissionDefault,
		MaxTurns:       DefaultMaxTurns,
		ClaudePath:     "claude",
	}
}

// fileConfig is the YAML file schema. Pointer fields distinguish "unset"
// from the zero value.
type fileConfig struct {
	Debug           *bool   `json:"debug,omitempty"`
	PermissionMode  *string `json:"permissionMode,omitempty"`
	MaxTurns        *int    `json:"maxTurns,omitempty"`
	Model           *string `json:"model,omitempty"`
	ClaudePath      *string `json:"claudePath,omitempty"`
	PartialMessages *bool   `json:"partialMessages,omitempty"`
	ForwardResult   *bool   `json:"forwardResult,omitempty"`
}

// Flag names registered by RegisterFlags.
const (
	FlagConfig          = "config"
	FlagDebug           = "debug"
	FlagPermissionMode  = "permission-mode"
	FlagMaxTurns        = "max-turns"
	FlagModel           = "model"
	FlagClaudePath      = "claude-path"
	FlagPartialMessages = "partial-messages"
	FlagForwardResult   = "forward-result"
)

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagConfig, "", "path to a YAML config file (env "+EnvConfig+")")
	fs.Bool(FlagDebug, d.Debug, "enable debug logging on stderr")
	fs.String(FlagPermissionMode, string(d.PermissionMode),
		"default permission mode: "+strings.Join(modeNames(), ", "))
	fs.Int(FlagMaxTurns, d.MaxTurns, "maximum agentic turns per prompt (0 = unlimited)")
	fs.String(FlagModel, d.Model, "model passed to claude (empty = claude default)")
	fs.String(FlagClaudePath, d.ClaudePath, "claude executable name or path")
	fs.Bool(FlagPartialMessages, d.PartialMessages, "stream partial assistant messages")
	fs.Bool(FlagForwardResult, d.ForwardResult, "forward the final result text as a message")
}

// Load resolves the configuration from a YAML file, environ ("KEY=VALUE"
// pairs, as returned by os.Environ) and the flags in fs that were set.
// fs may be nil.
func Load(environ []string, fs *pflag.FlagSet) (Config, error) {
	cfg := Default()
	env := envMap(environ)

	path := env[EnvConfig]
	if fs != nil && fs.Changed(FlagConfig) {
		path, _ = fs.GetString(FlagConfig)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}
	if fs != nil {
		if err := cfg.applyFlags(fs); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports invalid settings.
func (c Config) Validate() error {
	var errs []error
	if !c.PermissionMode.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", claudeacp.ErrInvalidPermissionMode, c.PermissionMode))
	}
	if c.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("config: max turns %d must not be negative", c.MaxTurns))
	}
	if strings.TrimSpace(c.ClaudePath) == "" {
		errs = append(errs, errors.New("config: claude path must not be empty"))
	}
	return errors.Join(errs...)
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var f fileConfig
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	if f.PermissionMode != nil {
		mode, err := claudeacp.ParsePermissionMode(*f.PermissionMode)
		if err != nil {
			return fmt.Errorf("config: %s: %w", path, err)
		}
		c.PermissionMode = mode
	}
	c.Debug = ptr.Deref(f.Debug, c.Debug)
	c.MaxTurns = ptr.Deref(f.MaxTurns, c.MaxTurns)
	c.Model = ptr.Deref(f.Model, c.Model)
	c.ClaudePath = ptr.Deref(f.ClaudePath, c.ClaudePath)
	c.PartialMessages = ptr.Deref(f.PartialMessages, c.PartialMessages)
	c.ForwardResult = ptr.Deref(f.ForwardResult, c.ForwardResult)
	return nil
}

func (c *Config) applyEnv(env map[string]string) error {
	var errs []error
	boolEnv := func(key string, dst *bool) {
		v, ok, err := boolVar(env, key)
		if err != nil {
			errs = append(errs, err)
		} else if ok {
			*dst = v
		}
	}
	boolEnv(EnvDebug, &c.Debug)
	boolEnv(EnvPartialMessages, &c.PartialMessages)
	boolEnv(EnvForwardResult, &c.ForwardResult)

	if n, ok, err := positiveIntVar(env, EnvMaxTurns); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.MaxTurns = n
	}
	if v := env[EnvPermissionMode]; v != "" {
		mode, err := claudeacp.ParsePermissionMode(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvPermissionMode, err))
		} else {
			c.PermissionMode = mode
		}
	}
	c.Model = stringVar(env, EnvModel, c.Model)
	c.ClaudePath = stringVar(env, EnvClaudePath, c.ClaudePath)
	return errors.Join(errs...)
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	var err error
	if fs.Changed(FlagDebug) {
		c.Debug, err = fs.GetBool(FlagDebug)
		if err != nil {
			return err
		}
	}
	if fs.Changed(FlagPartialMessages) {
		c.PartialMessages, err = fs.GetBool(FlagPartialMessages)
		if err != nil {
			return err
		}
	}
	if fs.Changed(FlagForwardResult) {
		c.ForwardResult, err = fs.GetBool(FlagForwardResult)
		if err != nil {
			return err
		}
	}
	if fs.Changed(FlagMaxTurns) {
		c.MaxTurns, err = fs.GetInt(FlagMaxTurns)
		if err != nil {
			return err
		}
	}
	if fs.Changed(FlagModel) {
		c.Model, err = fs.GetString(FlagModel)
		if err != nil {
			return err
		}
	}
	if fs.Changed(FlagClaudePath) {
		c.ClaudePath, err = fs.GetString(FlagClaudePath)
		if err != nil {
			return err
		}
	}
	if fs.Changed(FlagPermissionMode) {
		v, err := fs.GetString(FlagPermissionMode)
		if err != nil {
			return err
		}
		mode, err := claudeacp.ParsePermissionMode(v)
		if err != nil {
			return fmt.Errorf("--%s: %w", FlagPermissionMode, err)
		}
		c.PermissionMode = mode
	}
	return nil
}

func modeNames() []string {
	names := make([]string, len(claudeacp.PermissionModes))
	for i, m := range claudeacp.PermissionModes {
		names[i] = string(m)
	}
	return names
}
