// Package actions reads workflow inputs and state and writes workflow
// commands for a GitHub Actions style runner.
package actions

import (
	"io"
	"log/slog"
	"os"

	"github.com/sethvargo/go-githubactions"
)

// Env looks up environment variables. [OS] reads the process environment.
type Env func(name string) string

// OS is the process environment.
var OS Env = os.Getenv

// Action returns a workflow command writer that reads from e and writes
// commands to w.
func (e Env) Action(w io.Writer) *githubactions.Action {
	return githubactions.New(
		githubactions.WithGetenv(githubactions.GetenvFunc(e)),
		githubactions.WithWriter(w),
	)
}

// Input returns the trimmed value of the named action input.
//
// Inputs are passed as INPUT_<NAME> with the name upper-cased and spaces
// replaced by underscores. Dashes are kept.
func (e Env) Input(name string) string {
	return e.Action(io.Discard).GetInput(name)
}

// State returns a value saved by an earlier step of the same action.
func (e Env) State(name string) string {
	return e.Action(io.Discard).Getenv("STATE_" + name)
}

// Debug reports whether step debug logging is enabled.
func (e Env) Debug() bool {
	return e("RUNNER_DEBUG") == "1"
}

// LogLevel is slog.LevelDebug when step debug logging is enabled and
// slog.LevelInfo otherwise.
func (e Env) LogLevel() slog.Level {
	if e.Debug() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// TempDir returns the runner's temporary directory, or "" outside a runner.
func (e Env) TempDir() string {
	return e("RUNNER_TEMP")
}

// MapEnv returns an Env backed by m.
func MapEnv(m map[string]string) Env {
	return func(name string) string { return m[name] }
}
