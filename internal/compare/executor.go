// Package compare invokes the external comparison command for one sample and
// captures its combined output for parsing.
package compare

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const (
	// TimeoutExitCode distinguishes a killed-on-timeout run from a normal
	// nonzero exit (which may still carry valid metrics).
	TimeoutExitCode = 124
	// SpawnExitCode marks a command that could not be started at all.
	SpawnExitCode = -1
	// TimeoutMarker is appended to the captured output on timeout so the
	// failure classifier can surface it as the reason.
	TimeoutMarker = "单样本测试超时"
)

// Result is the raw outcome of one comparison attempt.
type Result struct {
	ExitCode int
	Output   string
	TimedOut bool
}

// Runner executes the profile's fixed comparison command, handing it the
// sample locator through one environment variable. It performs no retries;
// re-runs are a selection-policy decision across invocations of the tool.
type Runner struct {
	inputEnv string
	command  []string
}

func NewRunner(inputEnv string, command []string) *Runner {
	return &Runner{inputEnv: inputEnv, command: command}
}

// Run invokes the comparison command for sample with the given timeout.
// Stdout and stderr are captured separately and concatenated, matching what
// the metric parser and classifier expect. On timeout the process is killed,
// the exit status is synthesized as TimeoutExitCode, and a marker line naming
// the configured seconds is appended to whatever output was captured.
func (r *Runner) Run(ctx context.Context, sample string, timeout time.Duration) Result {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.command[0], r.command[1:]...)
	cmd.Env = append(os.Environ(), r.inputEnv+"="+sample)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Bound Wait in case a grandchild keeps the output pipes open after the
	// kill.
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	output := stdout.String() + "\n" + stderr.String()

	if runCtx.Err() == context.DeadlineExceeded {
		output += fmt.Sprintf("\n%s: %ds", TimeoutMarker, int(timeout/time.Second))
		return Result{ExitCode: TimeoutExitCode, Output: output, TimedOut: true}
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return Result{ExitCode: exitErr.ExitCode(), Output: output}
		}
		// Spawn failure: no process ran, record the error text as output so
		// the classifier has something to work with.
		return Result{ExitCode: SpawnExitCode, Output: output + "\n" + err.Error()}
	}
	return Result{ExitCode: 0, Output: output}
}
