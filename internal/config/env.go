package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables read by Load.
const (
	EnvConfig          = "ACP_CONFIG"
	EnvDebug           = "ACP_DEBUG"
	EnvPermissionMode  = "ACP_PERMISSION_MODE"
	EnvMaxTurns        = "ACP_MAX_TURNS"
	EnvModel           = "ACP_MODEL"
	EnvClaudePath      = "ACP_CLAUDE_PATH"
	EnvPartialMessages = "ACP_PARTIAL_MESSAGES"
	EnvForwardResult   = "ACP_FORWARD_RESULT"
)

// envMap turns os.Environ-style "KEY=VALUE" pairs into a map. Later
// duplicates win, as in the process environment.
func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}

// stringVar returns the value for key in env, or defaultVal if the key
// is absent or empty.
func stringVar(env map[string]string, key, defaultVal string) string {
	if v := env[key]; v != "" {
		return v
	}
	return defaultVal
}

// positiveIntVar returns the integer value for key in env.
// If the key is absent or empty, it returns (0, false, nil).
// If the value is present but not a valid positive integer, or contains
// null bytes, it returns an error.
func positiveIntVar(env map[string]string, key string) (int, bool, error) {
	v := env[key]
	if v == "" {
		return 0, false, nil
	}
	if strings.Contains(v, "\x00") {
		return 0, false, fmt.Errorf("%s: value contains null bytes", key)
	}
	v = strings.TrimSpace(v)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %q is not a valid integer", key, v)
	}
	if n <= 0 {
		return 0, false, fmt.Errorf("%s: %q must be a positive integer", key, v)
	}
	return n, true, nil
}

// boolVar returns the boolean value for key in env.
// If the key is absent or empty, it returns (false, false, nil).
// Truthy values: "true", "on", "1", "yes" (case-insensitive).
// Falsy values: "false", "off", "0", "no" (case-insensitive).
// Unrecognized values return an error.
func boolVar(env map[string]string, key string) (bool, bool, error) {
	v := env[key]
	if v == "" {
		return false, false, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true, true, nil
	case "false", "off", "0", "no":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("%s: %q is not a recognized boolean value", key, v)
	}
}
