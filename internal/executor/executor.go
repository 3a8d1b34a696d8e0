// Package executor is the Engine's Executor collaborator (spec §6):
// execute(FileOperation) -> result string; readFile(path) -> string. It
// dispatches patch-shaped operations to the Patcher and "run" operations
// to a POSIX shell interpreter.
//
// Grounded on the teacher's internal/tool/bash.go (timeout/output-cap
// shape) and internal/tool/write.go/read.go (file IO via workspace-
// relative paths), generalized to the spec's single execute() entry
// point and its own `run` operation type.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/logging"
	"github.com/forgepilot/agentcore/internal/patch"
)

// DefaultTimeout bounds a `run` operation's wall-clock time, matching the
// teacher's DefaultBashTimeout.
const DefaultTimeout = 120 * time.Second

// MaxOutputLength caps how much combined stdout/stderr is kept, matching
// the teacher's MaxOutputLength.
const MaxOutputLength = 30000

// Executor dispatches FileOperations to the Patcher (for edit-like
// operations) or a shell interpreter (for `run`).
type Executor struct {
	patcher *patch.Patcher
	ws      patch.Workspace
	dir     string
	timeout time.Duration
}

// New returns an Executor rooted at dir, applying file operations
// through patcher over ws.
func New(patcher *patch.Patcher, ws patch.Workspace, dir string) *Executor {
	return &Executor{patcher: patcher, ws: ws, dir: dir, timeout: DefaultTimeout}
}

// Execute runs op and returns a human-readable result string, or an
// error (spec §6 "execute(FileOperation) -> result string").
func (e *Executor) Execute(ctx context.Context, op *domain.FileOperation) (string, error) {
	logging.Operation(string(op.Type), op.Path).Msg("executor: dispatching operation")

	if op.Type == domain.OpRun {
		return e.runCommand(ctx, op.Command)
	}

	result := e.patcher.Apply(op)
	if result.Error != nil {
		return "", result.Error
	}
	return successMessage(op), nil
}

func successMessage(op *domain.FileOperation) string {
	switch op.Type {
	case domain.OpCreate:
		return fmt.Sprintf("successfully created %s", op.Path)
	case domain.OpDelete:
		return fmt.Sprintf("successfully deleted %s", op.Path)
	case domain.OpWriteFull:
		return fmt.Sprintf("successfully wrote %s", op.Path)
	case domain.OpMultiWrite:
		return "successfully updated multiple files"
	default:
		return fmt.Sprintf("successfully updated %s", op.Path)
	}
}

// ReadFile implements the Executor collaborator's readFile(path) ->
// string. All paths are workspace-relative with forward slashes (spec
// §6).
func (e *Executor) ReadFile(path string) (string, error) {
	content, exists, err := e.ws.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("executor: file does not exist: %s", path)
	}
	return string(content), nil
}

// runCommand parses and runs a POSIX shell command with mvdan.cc/sh/v3
// (chosen over os/exec "sh" "-c" for deterministic, injection-safe
// parsing — the teacher's wider dependency pack already carries this
// library for shell-aware tooling), bounding output length and wall
// clock the same way the teacher's bash tool does.
func (e *Executor) runCommand(ctx context.Context, command string) (string, error) {
	if command == "" {
		return "", fmt.Errorf("executor: run operation has no command")
	}

	file, err := syntax.NewParser().Parse(bytes.NewReader([]byte(command)), "")
	if err != nil {
		return "", fmt.Errorf("executor: parsing command: %w", err)
	}

	var out bytes.Buffer
	runner, err := interp.New(
		interp.Dir(e.dir),
		interp.StdIO(nil, &out, &out),
	)
	if err != nil {
		return "", fmt.Errorf("executor: creating shell runner: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	runErr := runner.Run(runCtx, file)

	output := out.String()
	if len(output) > MaxOutputLength {
		output = output[:MaxOutputLength] + "\n... (output truncated)"
	}

	if runErr != nil {
		return output, fmt.Errorf("executor: command failed: %w", runErr)
	}
	return output, nil
}
