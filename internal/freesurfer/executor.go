package freesurfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Command is a single external program invocation.
type Command struct {
	Name string
	Args []string
}

// String renders the command line the way it is echoed to the console.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandRunner executes commands and reports their exit status.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (exitCode int, err error)
}

// Executor runs commands locally with a fixed environment, streaming their
// output to the console.
type Executor struct {
	Env    []string
	DryRun bool
	Stdout io.Writer
	Stderr io.Writer
}

var _ CommandRunner = (*Executor)(nil)

// NewExecutor creates a new executor
func NewExecutor(env []string, dryRun bool) *Executor {
	return &Executor{
		Env:    env,
		DryRun: dryRun,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes cmd and waits for it. A process that starts and exits
// non-zero returns its exit code along with an error; a process that
// cannot start returns -1.
func (e *Executor) Run(ctx context.Context, cmd Command) (int, error) {
	if e.DryRun {
		fmt.Fprintf(e.Stdout, "[DRY-RUN] Would execute: %s\n", cmd)
		return 0, nil
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Env = e.Env
	c.Stdout = e.Stdout
	c.Stderr = e.Stderr

	err := c.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), fmt.Errorf("%s exited with status %d", cmd.Name, exitErr.ExitCode())
	}
	return -1, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
}

// FakeCommandRunner records commands instead of executing them.
type FakeCommandRunner struct {
	mu       sync.Mutex
	Commands []Command
	// ExitCodes maps a program name to the exit code it reports.
	ExitCodes map[string]int
	// StartErr, when set, is returned for every command as a start failure.
	StartErr error
}

var _ CommandRunner = (*FakeCommandRunner)(nil)

// Run records cmd and reports the configured outcome for its program.
func (f *FakeCommandRunner) Run(ctx context.Context, cmd Command) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Commands = append(f.Commands, Command{Name: cmd.Name, Args: append([]string(nil), cmd.Args...)})
	if f.StartErr != nil {
		return -1, f.StartErr
	}
	if code := f.ExitCodes[cmd.Name]; code != 0 {
		return code, fmt.Errorf("%s exited with status %d", cmd.Name, code)
	}
	return 0, nil
}

// Names returns the program names run so far, in order.
func (f *FakeCommandRunner) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, len(f.Commands))
	for i, c := range f.Commands {
		names[i] = c.Name
	}
	return names
}
