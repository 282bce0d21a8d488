// internal/toolrun/toolrun.go
package toolrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes an external tool and returns its stdout.
// A non-zero exit is returned as *ToolError.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ToolError describes a failed external invocation.
type ToolError struct {
	Name   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s failed: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Name, e.Err, msg)
}

func (e *ToolError) Unwrap() error { return e.Err }

// MissingToolError is returned by Require for tools absent from PATH.
type MissingToolError struct{ Names []string }

func (e *MissingToolError) Error() string {
	return "required tool not found in PATH: " + strings.Join(e.Names, ", ")
}

// Exec runs tools with os/exec. Stderr is captured for error reports.
type Exec struct {
	Log *zap.Logger
}

func (x Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	log := x.Log
	if log == nil {
		log = zap.NewNop()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("exec", zap.String("tool", name), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ToolError{Name: name, Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// LookPath is swapped in tests.
var LookPath = exec.LookPath

// Require checks that every named tool resolves on PATH.
func Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, err := LookPath(n); err != nil {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingToolError{Names: missing}
	}
	return nil
}

// IsToolFailure reports whether err came from a failed external tool.
func IsToolFailure(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}
