//nolint:contextcheck // Context is passed via CommandWrapper.WithContext()
package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/exec"
)

// Command is a registry that queries an external package tool. The tool must
// support three subcommands, each printing one path per line:
//
//	<tool> project                     # active project manifest, or nothing
//	<tool> installed <owner-uuid>      # installed version roots
//	<tool> global-manifest <toolchain> # global manifest for the toolchain
type Command struct {
	tool    string
	wrapper *exec.CommandWrapper
}

// CommandOption configures a Command registry.
type CommandOption func(*Command)

// WithExecutor sets the executor used to run the tool.
func WithExecutor(executor exec.Executor) CommandOption {
	return func(c *Command) {
		c.wrapper = exec.NewWrapper(executor, c.tool)
	}
}

// NewCommand creates a registry that runs tool. The tool inherits the
// caller's environment.
func NewCommand(tool string, opts ...CommandOption) *Command {
	c := &Command{tool: tool}
	c.wrapper = exec.NewWrapper(exec.New(exec.WithInheritEnv()), tool)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentManifest runs `<tool> project`.
func (c *Command) CurrentManifest(ctx context.Context) (string, error) {
	lines, err := c.run(ctx, "project")
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], nil
}

// InstalledVersions runs `<tool> installed <owner>`.
func (c *Command) InstalledVersions(ctx context.Context, owner uuid.UUID) ([]string, error) {
	return c.run(ctx, "installed", owner.String())
}

// GlobalManifest runs `<tool> global-manifest <toolchain>`.
func (c *Command) GlobalManifest(ctx context.Context, toolchain string) (string, error) {
	lines, err := c.run(ctx, "global-manifest", toolchain)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], nil
}

func (c *Command) run(ctx context.Context, args ...string) ([]string, error) {
	result, err := c.wrapper.Clone().WithContext(ctx).Run(args...)
	if err != nil {
		wrapped := errors.Wrapf(err, errors.CodeExecutionFailed, "%s %s failed", c.tool, args[0])
		if result != nil && result.Stderr != "" {
			return nil, errors.WithContext(wrapped, "stderr", strings.TrimSpace(result.Stderr))
		}
		return nil, wrapped
	}
	return splitLines(result.Stdout), nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
