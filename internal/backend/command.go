package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Command runs an external simulator process.
//
// Arguments may reference {manifest} and {workdir}; they are substituted
// before the process starts. The process runs in the work directory and
// must produce every declared output file before exiting zero.
type Command struct {
	Path string
	Args []string
	Env  []string

	// WaitDelay bounds how long output pipes are drained after the process
	// is killed on timeout. Zero means one second.
	WaitDelay time.Duration
}

// ExecError reports a non-zero exit of an external simulator.
type ExecError struct {
	Tool     string
	ExitCode int
	Output   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, e.Output)
}

// maxOutput bounds how much process output is kept for diagnostics.
const maxOutput = 4096

// Simulate writes the manifest and runs the command, blocking until it exits
// or ctx expires.
func (c *Command) Simulate(ctx context.Context, inv *Invocation) error {
	manifest, err := inv.WriteManifest()
	if err != nil {
		return err
	}
	r := strings.NewReplacer("{manifest}", manifest, "{workdir}", inv.WorkDir)
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.Replace(a)
	}

	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Dir = inv.WorkDir
	cmd.Env = append(cmd.Environ(), c.Env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = c.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = time.Second
	}

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", c.Path, ErrTimeout)
		}
		return ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExecError{Tool: c.Path, ExitCode: exitErr.ExitCode(), Output: tail(out.String())}
		}
		return fmt.Errorf("start %s: %w", c.Path, err)
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutput {
		return "..." + s[len(s)-maxOutput:]
	}
	return s
}
