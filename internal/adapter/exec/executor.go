// Package exec runs domain commands as child processes.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

// Executor implements pipeline.CommandExecutor with os/exec. Commands run
// without a shell, so arguments are never re-quoted.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute runs cmd and waits for it. Moves create the destination directory
// first, since durable day directories appear on demand.
func (e *Executor) Execute(ctx context.Context, cmd domain.Command) error {
	if cmd.Name == "mv" && len(cmd.Args) == 2 {
		if err := os.MkdirAll(filepath.Dir(cmd.Args[1]), 0o755); err != nil {
			return fmt.Errorf("create destination of %s: %w", cmd, err)
		}
	}
	_, err := e.Output(ctx, cmd)
	return err
}

// Output runs cmd and returns its standard output. A failing command's
// standard error is included in the returned error.
func (e *Executor) Output(ctx context.Context, cmd domain.Command) ([]byte, error) {
	e.logger.Debug("running command", "command", cmd.String())

	c := osexec.CommandContext(ctx, cmd.Name, cmd.Args...)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", cmd, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", cmd, err, msg)
	}
	return stdout.Bytes(), nil
}
